// Package normalisers provides text normalisation for knowledge records.
//
// The record normaliser canonicalises question, answer and content text,
// prepares text for lexical matching, and owns the hygiene predicates that
// decide whether a record is eligible for retrieval or maintenance.
package normalisers
