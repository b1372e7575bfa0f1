package wwise

import (
	"fmt"
	"maps"
)

// ChunkDecoder builds a chunk from its payload bytes.
type ChunkDecoder func(payload []byte) (Chunk, error)

// ChunkRegistry resolves chunk tags to decoders. Tags without a decoder are
// skipped by the bank decoder.
type ChunkRegistry struct {
	decoders map[[4]byte]ChunkDecoder
}

// NewChunkRegistry returns a registry holding the four chunk kinds the bank
// container understands.
func NewChunkRegistry() *ChunkRegistry {
	return &ChunkRegistry{
		decoders: map[[4]byte]ChunkDecoder{
			CIDBankHeader: func(p []byte) (Chunk, error) { return newBankHeader(p) },
			CIDIndex:      func(p []byte) (Chunk, error) { return newIndex(p) },
			CIDData:       func(p []byte) (Chunk, error) { return newData(p) },
			CIDHierarchy:  func(p []byte) (Chunk, error) { return newHierarchy(p) },
		},
	}
}

// Register sets the decoder for id, replacing any earlier one.
func (r *ChunkRegistry) Register(id [4]byte, dec ChunkDecoder) {
	if r == nil || dec == nil {
		return
	}

	if r.decoders == nil {
		r.decoders = make(map[[4]byte]ChunkDecoder)
	}

	r.decoders[id] = dec
}

// Clone returns an independent copy of the registry.
func (r *ChunkRegistry) Clone() *ChunkRegistry {
	if r == nil {
		return NewChunkRegistry()
	}

	return &ChunkRegistry{decoders: maps.Clone(r.decoders)}
}

// Decode dispatches a payload to the decoder registered for id. The boolean
// is false when no decoder is registered.
func (r *ChunkRegistry) Decode(id [4]byte, payload []byte) (Chunk, bool, error) {
	if r == nil {
		return nil, false, nil
	}

	dec, ok := r.decoders[id]
	if !ok {
		return nil, false, nil
	}

	chunk, err := dec(payload)
	if err != nil {
		return nil, true, fmt.Errorf("chunk %s decode failed: %w", id, err)
	}

	return chunk, true, nil
}

// RawChunkDecoder keeps chunks verbatim so they survive a save.
func RawChunkDecoder(id [4]byte) ChunkDecoder {
	return func(p []byte) (Chunk, error) {
		return &RawChunk{ID: id, Data: p}, nil
	}
}
