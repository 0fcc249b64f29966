// Package similarity ranks indexed sections by semantic closeness to a
// probe text.
//
// Results below the configured similarity floor are dropped rather than
// padded into a forced top-K list: an empty result means "nothing worth
// surfacing", which is a different answer from "nothing at all" and is
// communicated as such.
package similarity
