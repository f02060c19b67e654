package rpcutil

import (
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

type sample struct {
	Name   string   `json:"name"`
	Count  int      `json:"count"`
	Tags   []string `json:"tags"`
	Active bool     `json:"active"`
}

func TestStructRoundTrip(t *testing.T) {
	in := sample{Name: "wheel", Count: 3, Tags: []string{"a", "b"}, Active: true}

	s, err := ToStruct(in)
	require.NoError(t, err)
	assert.Equal(t, "wheel", s.Fields["name"].GetStringValue())
	assert.Equal(t, float64(3), s.Fields["count"].GetNumberValue())

	var out sample
	require.NoError(t, FromStruct(s, &out))
	assert.Equal(t, in, out)
}

func TestToStruct_RejectsNonObject(t *testing.T) {
	_, err := ToStruct([]int{1, 2})
	assert.Error(t, err)
}

func TestFromStruct_Nil(t *testing.T) {
	var out sample
	require.NoError(t, FromStruct(nil, &out))
	assert.Equal(t, sample{}, out)
}

func TestBind_InvalidArgument(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]interface{}{"count": "three"})
	require.NoError(t, err)

	var out sample
	err = Bind(connect.NewRequest(msg), &out)
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}
