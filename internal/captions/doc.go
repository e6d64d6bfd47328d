// Package captions implements the time-indexed caption store and the SRT
// interchange codec. A Set holds the ordered, non-overlapping entries for a
// single project; lookups by playback time assume that ordering.
package captions
