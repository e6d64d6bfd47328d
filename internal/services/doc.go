// Package services holds the shared error taxonomy and context plumbing used
// by every workflow stage. Stage code wraps failures with a sentinel marker so
// the workflow manager can classify them without inspecting message text.
package services
