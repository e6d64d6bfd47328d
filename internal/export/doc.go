// Package export assembles the final downloadable artifact: the current
// video frame composited with the sign-language widget's visual output,
// encoded and uploaded to durable storage with progress reporting.
package export
