package sqlutil

import (
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/sqlc-dev/pqtype"
	"github.com/stretchr/testify/assert"
)

func TestStringConversions(t *testing.T) {
	assert.Equal(t, sql.NullString{}, ToSqlString(""))
	assert.Equal(t, sql.NullString{String: "x", Valid: true}, ToSqlString("x"))

	assert.Equal(t, "fallback", FromSqlString(sql.NullString{}, "fallback"))
	assert.Equal(t, "x", FromSqlString(sql.NullString{String: "x", Valid: true}, "fallback"))
}

func TestRawMessageConversions(t *testing.T) {
	assert.False(t, ToNullRawMessage(nil).Valid)

	raw := json.RawMessage(`{"winner_index":3}`)
	got := ToNullRawMessage(raw)
	assert.True(t, got.Valid)
	assert.JSONEq(t, string(raw), string(got.RawMessage))

	assert.Nil(t, FromNullRawMessage(pqtype.NullRawMessage{}))
	assert.JSONEq(t, string(raw), string(FromNullRawMessage(got)))
}
