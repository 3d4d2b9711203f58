package kv_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/ledger/kv"
)

type sample struct {
	ID    string `json:"id"`
	Count uint64 `json:"count"`
}

func TestJSONCodec(t *testing.T) {
	codec := kv.NewJSONCodec[sample]("sample", 2)

	t.Run("EnvelopeIsSelfDescribing", func(t *testing.T) {
		data, err := codec.Encode(sample{ID: "a", Count: 3})
		require.NoError(t, err)

		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Equal(t, "sample", raw["schema"])
		assert.EqualValues(t, 2, raw["version"])

		decoded, err := codec.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, sample{ID: "a", Count: 3}, decoded)
	})

	t.Run("OlderVersionAccepted", func(t *testing.T) {
		decoded, err := codec.Decode([]byte(`{"schema":"sample","version":1,"data":{"id":"b","count":7}}`))
		require.NoError(t, err)
		assert.Equal(t, "b", decoded.ID)
		assert.EqualValues(t, 7, decoded.Count)
	})

	t.Run("LegacyBareRecord", func(t *testing.T) {
		decoded, err := codec.Decode([]byte(`{"id":"c","count":1}`))
		require.NoError(t, err)
		assert.Equal(t, sample{ID: "c", Count: 1}, decoded)
	})

	t.Run("NewerVersionRejected", func(t *testing.T) {
		_, err := codec.Decode([]byte(`{"schema":"sample","version":3,"data":{"id":"d"}}`))
		assert.ErrorIs(t, err, kv.ErrUnsupportedVersion)
	})

	t.Run("WrongSchemaRejected", func(t *testing.T) {
		_, err := codec.Decode([]byte(`{"schema":"other","version":1,"data":{"id":"e"}}`))
		assert.ErrorIs(t, err, kv.ErrSchemaMismatch)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := codec.Decode([]byte(`not json`))
		assert.ErrorIs(t, err, kv.ErrCorruptRecord)
	})
}
