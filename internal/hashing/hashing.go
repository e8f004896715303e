// Package hashing builds the precomputed hash codes of envelope values.
//
// Each field hash is multiplied by a distinct odd multiplier before it is folded
// into the running value, so equal values in different fields do not cancel out.
package hashing

import (
	"hash/fnv"
	"math/bits"
	"sort"
)

// String hashes a string with FNV-1a
func String(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// Bytes hashes raw bytes with FNV-1a
func Bytes(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// Int hashes an integer
func Int(i int64) uint64 {
	return uint64(i) * 0x9E3779B97F4A7C15
}

// Bool hashes a boolean
func Bool(b bool) uint64 {
	if b {
		return 1231
	}
	return 1237
}

// Optional returns 0 for an absent value and a non-zero hash otherwise
func Optional(set bool, h uint64) uint64 {
	if !set {
		return 0
	}
	return h | 1
}

// Strings hashes an ordered list of strings
func Strings(values []string) uint64 {
	fields := make([]uint64, len(values))
	for i, v := range values {
		fields[i] = String(v)
	}
	return Combine(fields...)
}

// Map hashes a map independent of iteration order
func Map[V any](m map[string]V, value func(V) uint64) uint64 {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]uint64, 0, 2*len(keys))
	for _, k := range keys {
		fields = append(fields, String(k), value(m[k]))
	}
	return Combine(fields...)
}

// Combine folds field hashes, multiplying field i by the odd number 2i+3
func Combine(fields ...uint64) uint64 {
	var h uint64 = 17
	for i, f := range fields {
		h ^= f * uint64(2*i+3)
		h = bits.RotateLeft64(h, 7)
	}
	return h
}
