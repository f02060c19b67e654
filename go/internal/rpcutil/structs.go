// Package rpcutil carries JSON-shaped messages over connect as google.protobuf.Struct,
// so services can be served without generated stubs.
package rpcutil

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts any JSON-marshalable value into a Struct. v must encode as an object.
func ToStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("message is not an object: %w", err)
	}
	return structpb.NewStruct(fields)
}

// FromStruct decodes s into dst using dst's json tags.
func FromStruct(s *structpb.Struct, dst interface{}) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("marshal struct: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}

// Bind decodes a request body, reporting failures as InvalidArgument.
func Bind(req *connect.Request[structpb.Struct], dst interface{}) error {
	if err := FromStruct(req.Msg, dst); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return nil
}

// Respond wraps v in a connect response.
func Respond(v interface{}) (*connect.Response[structpb.Struct], error) {
	msg, err := ToStruct(v)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}
