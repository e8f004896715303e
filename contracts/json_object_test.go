package contracts

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONObject(t *testing.T) {
	t.Run("accepts an object", func(t *testing.T) {
		obj, err := DecodeJSONObject([]byte(` {"a":1} `))

		require.NoError(t, err)
		assert.True(t, obj.Has("a"))
	})

	t.Run("rejects non objects", func(t *testing.T) {
		for _, input := range []string{``, `[]`, `"x"`, `null`, `{`} {
			_, err := DecodeJSONObject([]byte(input))
			assert.Error(t, err, input)
		}
	})
}

func TestFieldExtraction(t *testing.T) {
	obj, err := DecodeJSONObject([]byte(`{"name":"cs1","count":3,"nothing":null,"bad":true}`))
	require.NoError(t, err)

	t.Run("Mandatory returns the parsed value", func(t *testing.T) {
		v, err := Mandatory(obj, "name", ParseString)

		require.NoError(t, err)
		assert.Equal(t, "cs1", v)
	})

	t.Run("Mandatory reports a missing field by name", func(t *testing.T) {
		_, err := Mandatory(obj, "missing", ParseString)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingField)
		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "missing", pe.Field)
		assert.Contains(t, err.Error(), "'missing'")
	})

	t.Run("Mandatory treats null as missing", func(t *testing.T) {
		_, err := Mandatory(obj, "nothing", ParseString)

		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("Mandatory reports conversion failures by name", func(t *testing.T) {
		_, err := Mandatory(obj, "bad", ParseString)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "'bad'")
	})

	t.Run("OptionalField yields None when absent", func(t *testing.T) {
		v, err := OptionalField(obj, "missing", ParseInt)

		require.NoError(t, err)
		assert.False(t, v.IsSet())
	})

	t.Run("OptionalField fails when present but invalid", func(t *testing.T) {
		_, err := OptionalField(obj, "name", ParseInt)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "'name'")
	})

	t.Run("nested errors carry the full path", func(t *testing.T) {
		nested, err := DecodeJSONObject([]byte(`{"statusInfo":{"reasonCode":"this reason code is far too long"}}`))
		require.NoError(t, err)

		_, err = Mandatory(nested, "statusInfo", func(r json.RawMessage) (StatusInfo, error) {
			return ParseStatusInfo(r)
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "'statusInfo.reasonCode'")
	})
}

func TestJSONWriter(t *testing.T) {
	t.Run("keeps insertion order", func(t *testing.T) {
		data, err := NewJSONWriter().Set("z", 1).Set("a", "x").Bytes()

		require.NoError(t, err)
		assert.Equal(t, `{"z":1,"a":"x"}`, string(data))
	})

	t.Run("Prepend moves the key first", func(t *testing.T) {
		w := NewJSONWriter().Set("status", "Accepted")
		w.Prepend(ContextField, "https://example.org/ctx")

		data, err := w.Bytes()

		require.NoError(t, err)
		assert.Equal(t, `{"@context":"https://example.org/ctx","status":"Accepted"}`, string(data))
	})

	t.Run("SetOptional skips unset values", func(t *testing.T) {
		w := NewJSONWriter()
		SetOptional(w, "a", None[string]())
		SetOptional(w, "b", Some("x"))

		data, err := w.Bytes()

		require.NoError(t, err)
		assert.Equal(t, `{"b":"x"}`, string(data))
	})

	t.Run("Delete removes a key", func(t *testing.T) {
		w := NewJSONWriter().Set("a", 1).Set("b", 2).Delete("a")

		assert.False(t, w.Has("a"))
		assert.Equal(t, []string{"b"}, w.Keys())
	})
}

func TestOptional(t *testing.T) {
	assert.True(t, OptionalEqual(None[int](), None[int]()))
	assert.True(t, OptionalEqual(Some(1), Some(1)))
	assert.False(t, OptionalEqual(Some(1), None[int]()))
	assert.False(t, OptionalEqual(Some(1), Some(2)))
	assert.Equal(t, 5, None[int]().OrElse(5))

	v := 3
	assert.Equal(t, Some(3), FromPtr(&v))
	assert.False(t, FromPtr[int](nil).IsSet())
}
