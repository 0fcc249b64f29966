// Package document defines the core data model for the section engine.
//
// A Document is an immutable, ordered sequence of Pages; a Page is an ordered
// sequence of positioned TextBlocks; a Section is a contiguous slice of those
// blocks, the atomic unit of ranking and retrieval.
package document
