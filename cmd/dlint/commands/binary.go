package commands

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/l3aro/divergence-lint/pkg/cache"
)

// readWords reads path as a flat little-endian uint32 word stream, the
// wire format ir.DecodeModule expects.
func readWords(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return wordsFromBytes(path, data)
}

// readWordsAndHash is readWords plus the SHA256 hash of the raw file
// bytes, used as the verdict cache key: two files with identical
// content lint identically, regardless of path or mtime.
func readWordsAndHash(path string) ([]uint32, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	words, err := wordsFromBytes(path, data)
	if err != nil {
		return nil, "", err
	}
	return words, cache.HashBytes(data), nil
}

func wordsFromBytes(path string, data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("reading %s: length %d is not a multiple of 4", path, len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}
