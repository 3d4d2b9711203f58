package kv

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrCorruptRecord indicates stored bytes could not be decoded
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrSchemaMismatch indicates a record was written for a different table
	ErrSchemaMismatch = errors.New("record schema mismatch")

	// ErrUnsupportedVersion indicates a record was written by a newer encoder
	ErrUnsupportedVersion = errors.New("unsupported record version")
)

// Codec converts records to and from their persisted byte form.
type Codec[V any] interface {
	Encode(value V) ([]byte, error)
	Decode(data []byte) (V, error)
}

// envelope is the persisted form written by JSONCodec.
type envelope struct {
	Schema  string          `json:"schema"`
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// JSONCodec stores records as JSON wrapped in a schema-tagged envelope, so
// every persisted value can be decoded without outside coordination.
//
// Records written before the envelope existed (a bare JSON object) decode as
// version 0.
type JSONCodec[V any] struct {
	Schema  string
	Version int
}

// NewJSONCodec creates a codec for the named schema at the given version.
func NewJSONCodec[V any](schema string, version int) JSONCodec[V] {
	return JSONCodec[V]{Schema: schema, Version: version}
}

// Encode marshals value into a versioned envelope.
func (c JSONCodec[V]) Encode(value V) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s record: %w", c.Schema, err)
	}
	return json.Marshal(envelope{
		Schema:  c.Schema,
		Version: c.Version,
		Data:    data,
	})
}

// Decode unmarshals an envelope, or a bare legacy record.
func (c JSONCodec[V]) Decode(data []byte) (V, error) {
	var value V

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return value, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	if env.Schema == "" && env.Data == nil {
		if err := json.Unmarshal(data, &value); err != nil {
			return value, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		return value, nil
	}

	if env.Schema != c.Schema {
		return value, fmt.Errorf("%w: got %q, want %q", ErrSchemaMismatch, env.Schema, c.Schema)
	}
	if env.Version > c.Version {
		return value, fmt.Errorf("%w: %s v%d (supported up to v%d)", ErrUnsupportedVersion, env.Schema, env.Version, c.Version)
	}

	if err := json.Unmarshal(env.Data, &value); err != nil {
		return value, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return value, nil
}
