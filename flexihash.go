// Package flexihash implements a consistent-hashing ring: a mapping from an
// arbitrary resource key to one or more members of a dynamic set of targets
// (servers, shards, cache nodes). Each target is placed at several hashed
// positions on the ring, and a resource resolves to the target owning the
// next position after the resource's own hash, wrapping at the ring boundary.
// Adding or removing a target only remaps the resources adjacent to that
// target's positions.
//
// The hash function is pluggable through the Hasher interface; XXHasher is
// the default and MD5Hasher is provided for adversarial key distributions.
package flexihash
