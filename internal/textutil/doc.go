// Package textutil provides word normalization for transcript matching,
// term-list hashing, and filesystem-safe token helpers.
//
// Normalization lowercases with Unicode case folding and strips punctuation
// from both ends of a word. Nothing else is done: no stemming, no
// transliteration, no spelling correction.
package textutil
