// Package hashutil implements the one hash function every component in the
// cluster must agree on.
//
// The storage node's /range filter and the proxy's ring lookup have to
// produce byte-identical results for the same key, or migration silently
// corrupts data: a key the ring says belongs to the new owner might never
// match the range the proxy asked the old owner to scan. FNV-1a is chosen
// because it is simple enough to implement by hand (no risk of pulling in
// two different library versions with different output) and fast enough
// that hashing on every /range entry is not a bottleneck.
package hashutil

const (
	offsetBasis64 uint64 = 0xcbf29ce484222325
	prime64       uint64 = 0x100000001b3
)

// FNV1a computes the 64-bit FNV-1a hash of key.
//
// This is a from-scratch implementation of the well-known algorithm rather
// than hash/fnv from the standard library so that ring.go and store.go can
// both depend on this single package without importing hash.Hash64 plumbing
// neither of them otherwise needs.
func FNV1a(key []byte) uint64 {
	h := offsetBasis64
	for _, b := range key {
		h ^= uint64(b)
		h *= prime64
	}
	return h
}

// FNV1aString is a convenience wrapper avoiding a []byte conversion at call
// sites that already hold a string.
func FNV1aString(key string) uint64 {
	h := offsetBasis64
	for i := 0; i < len(key); i++ {
		h ^= uint64(key[i])
		h *= prime64
	}
	return h
}

// InRange reports whether h falls in the half-open-on-the-left,
// closed-on-the-right interval (start, end], wrapping around the ring when
// start >= end. This predicate is shared by the ring's migration-task
// computation and the storage node's /range scan so the two can never
// disagree about which keys a task covers.
func InRange(h, start, end uint64) bool {
	if start < end {
		return h > start && h <= end
	}
	return h > start || h <= end
}
