// Package similarity provides the pure scoring primitives used by retrieval:
// cosine similarity over embedding vectors and trigram overlap over text.
//
// Functions here hold no state and never fail. Malformed input degrades to
// a score of zero.
package similarity
