// Package scoring ranks sections against a persona/job query.
//
// The score is a weighted combination of lexical keyword overlap and
// semantic embedding similarity, each normalized to [0,1]. Ranking is a
// total order: ties are broken deterministically so identical input always
// produces identical ranks.
package scoring
