// Package interpretation turns caption text into sign-language-oriented
// interpretation strings through a generative text provider. Calls go out in
// fixed-size batches with a pacing delay between batches, and per-entry
// failures degrade to a marked fallback string instead of aborting the run.
package interpretation
