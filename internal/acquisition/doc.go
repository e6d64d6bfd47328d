// Package acquisition retrieves captions for a project's video source.
//
// Remote sources go through a CaptionProvider (the YouTube Data API client or
// the built-in fixture), with language selection against the configured
// target. Uploaded sources go through a SpeechExtractor, which is a
// not-implemented stub until a transcription backend exists.
package acquisition
