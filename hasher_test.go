package flexihash

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"
)

func TestXXHasher(t *testing.T) {
	t.Run("deterministic across instances", func(t *testing.T) {
		a, b := XXHasher{}, XXHasher{}
		require.Equal(t, a.Hash([]byte("some-key")), b.Hash([]byte("some-key")))
	})

	t.Run("matches xxhash.Sum64", func(t *testing.T) {
		in := "Hello, world!"
		require.Equal(t, xxhash.Sum64String(in), XXHasher{}.Hash([]byte(in)))
	})

	t.Run("distinct inputs land apart", func(t *testing.T) {
		require.NotEqual(t, XXHasher{}.Hash([]byte("node-a")), XXHasher{}.Hash([]byte("node-b")))
	})
}

func TestMD5Hasher(t *testing.T) {
	t.Run("deterministic across instances", func(t *testing.T) {
		a, b := MD5Hasher{}, MD5Hasher{}
		require.Equal(t, a.Hash([]byte("some-key")), b.Hash([]byte("some-key")))
	})

	t.Run("folds the leading digest bytes", func(t *testing.T) {
		// md5("") = d41d8cd98f00b204e9800998ecf8427e; the position is the
		// first 8 bytes read big-endian.
		require.Equal(t, uint64(0xd41d8cd98f00b204), MD5Hasher{}.Hash(nil))
	})

	t.Run("distinct inputs land apart", func(t *testing.T) {
		require.NotEqual(t, MD5Hasher{}.Hash([]byte("node-a")), MD5Hasher{}.Hash([]byte("node-b")))
	})
}

func TestHasherFunc(t *testing.T) {
	var got []byte
	h := HasherFunc(func(data []byte) uint64 {
		got = data
		return 42
	})

	require.Equal(t, uint64(42), h.Hash([]byte("in")))
	require.Equal(t, []byte("in"), got)
}
