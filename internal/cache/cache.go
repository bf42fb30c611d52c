// Package cache provides a Redis-backed embeddings cache keyed by content
// hash and model, so re-ingesting unchanged chunks does not re-embed them.
// FalkorDB speaks the Redis protocol, so the cache rides the same server on
// a separate logical database.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCacheMiss is returned when an entry is not found in the cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCorruptEntry is returned when a cached payload fails to decode.
	ErrCorruptEntry = errors.New("corrupt cache entry")
)

// embCacheMagic identifies the binary vector encoding. "EMB1".
const embCacheMagic = 0x454D4231

// Config contains cache connection configuration.
type Config struct {
	// Addr is the Redis address, host:port.
	Addr string

	// Password authenticates the connection when non-empty.
	Password string

	// DB is the logical database number. Kept separate from the graph.
	DB int

	// TTL is the entry lifetime. Zero means entries do not expire.
	TTL time.Duration
}

// cacheKey builds the cache key for a model and content pair.
func cacheKey(model, content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("codegraph:emb:%s:%s", model, hex.EncodeToString(sum[:]))
}

// encodeVector serializes a vector as magic + count + float32 bits,
// little endian throughout.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 8+4*len(vec))
	binary.LittleEndian.PutUint32(buf[0:4], embCacheMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(vec)))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[8+4*i:], floatBits(v))
	}
	return buf
}

// decodeVector deserializes a vector, rejecting malformed payloads.
func decodeVector(data []byte) ([]float32, error) {
	if len(data) < 8 {
		return nil, ErrCorruptEntry
	}
	if binary.LittleEndian.Uint32(data[0:4]) != embCacheMagic {
		return nil, ErrCorruptEntry
	}

	count := int(binary.LittleEndian.Uint32(data[4:8]))
	if len(data) != 8+4*count {
		return nil, ErrCorruptEntry
	}

	vec := make([]float32, count)
	for i := range vec {
		vec[i] = floatFromBits(binary.LittleEndian.Uint32(data[8+4*i:]))
	}
	return vec, nil
}
