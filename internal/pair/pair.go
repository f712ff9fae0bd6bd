// Package pair holds the canonical ordering rule shared by the mutual
// match registry and the chat room provisioner. Persisting or looking up
// an unordered user pair must always go through Normalize, otherwise
// duplicate rows for the same pair silently proliferate.
package pair

// Normalize returns the two user ids with the smaller one first.
func Normalize(a, b uint64) (low, high uint64) {
	if a > b {
		return b, a
	}
	return a, b
}
