package wwise

import (
	"encoding/binary"
	"errors"
	"fmt"
)

type testChunk struct {
	id   string
	size uint32
	data []byte
}

type chunkInventoryEntry struct {
	id   string
	size uint32
}

var errChunkExceedsInput = errors.New("chunk exceeds input")

// splitBankChunks frames a serialized bank without interpreting any chunk.
func splitBankChunks(data []byte) ([]testChunk, error) {
	chunks := make([]testChunk, 0)

	offset := 0
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		offset += 8

		end := offset + int(size)
		if end > len(data) {
			return nil, fmt.Errorf("%w: %q", errChunkExceedsInput, id)
		}

		payload := append([]byte(nil), data[offset:end]...)
		chunks = append(chunks, testChunk{id: id, size: size, data: payload})

		offset = end
	}

	return chunks, nil
}

func findChunk(chunks []testChunk, id string) (*testChunk, int) {
	for i := range chunks {
		if chunks[i].id == id {
			return &chunks[i], i
		}
	}

	return nil, -1
}

func buildChunkInventory(chunks []testChunk) []chunkInventoryEntry {
	out := make([]chunkInventoryEntry, 0, len(chunks))
	for _, ch := range chunks {
		out = append(out, chunkInventoryEntry{id: ch.id, size: ch.size})
	}

	return out
}
