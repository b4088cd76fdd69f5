package eventsource

// Hash maps s to a non-negative integer, reproducibly across processes and
// languages:
//
//  1. rolling multiply-and-add over the UTF-8 bytes, h = h*31 + b, wrapping
//     at 32 bits;
//  2. the murmur3 fmix32 finalizer, so seeds differing only in the last
//     character (consecutive days) do not give consecutive values;
//  3. the 32 bits are read as a signed int32 and the absolute value is
//     returned widened to int64 (math.MinInt32 maps to 2147483648).
//
// Callers take the result modulo their bucket count.
func Hash(s string) int64 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}

	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	v := int64(int32(h))
	if v < 0 {
		v = -v
	}

	return v
}
