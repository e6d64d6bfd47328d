// Package playback synchronizes a media clock with the caption and
// interpretation timelines, forwarding the active interpretation to the
// sign-language rendering widget as the playhead crosses entry boundaries.
package playback
