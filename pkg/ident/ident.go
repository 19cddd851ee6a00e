// Package ident canonicalizes participant pairs. The canonical ordered pair
// is the uniqueness key for threads, so every code path that creates or looks
// up a thread must go through CanonicalPair.
package ident

import "matchchat/pkg/errdefs"

// CanonicalPair orders two distinct participant ids so that low < high.
// It is pure and deterministic: any unordered pair always yields the same
// ordered pair. Equal or non-positive ids fail with ErrInvalidPair.
func CanonicalPair(a, b int64) (low, high int64, err error) {
	if a <= 0 || b <= 0 || a == b {
		return 0, 0, errdefs.ErrInvalidPair
	}
	if a < b {
		return a, b, nil
	}
	return b, a, nil
}
