package flexihash

import (
	"crypto/md5"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// A Hasher maps arbitrary bytes to a position on the ring.
//
// Implementations must be pure: the same input must produce the same position
// across calls and across processes, with near-uniform distribution over the
// full 64-bit space. A Ring hashes targets and resources through the same
// Hasher, so all positions it ever sees come from one implementation;
// swapping Hashers on a live Ring is not supported.
type Hasher interface {
	// Hash returns the position for data.
	Hash(data []byte) uint64
}

// HasherFunc implements Hasher.
type HasherFunc func(data []byte) uint64

// Hash implements Hasher.
func (f HasherFunc) Hash(data []byte) uint64 { return f(data) }

// XXHasher hashes with xxHash (XXH64). It is the fastest Hasher shipped with
// this package and the default for New; use it when lookup speed dominates
// and keys are not attacker-controlled.
type XXHasher struct{}

var _ Hasher = XXHasher{}

// Hash implements Hasher.
func (XXHasher) Hash(data []byte) uint64 { return xxhash.Sum64(data) }

// MD5Hasher hashes with MD5, folded to 64 bits by taking the first 8 digest
// bytes in big-endian order. It is slower than XXHasher but harder to bias
// with adversarially chosen keys.
type MD5Hasher struct{}

var _ Hasher = MD5Hasher{}

// Hash implements Hasher.
func (MD5Hasher) Hash(data []byte) uint64 {
	sum := md5.Sum(data)
	return binary.BigEndian.Uint64(sum[:8])
}
