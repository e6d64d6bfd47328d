// Package project defines the persisted project model and its SQLite store.
// A project owns one caption set and one interpretation set; both are written
// fully before the workflow is allowed to advance past the producing stage.
package project
