// Package main hosts the LibrasFlow CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into workflow
// manager calls: project creation, stage runs, caption editing,
// interpretation review, export assembly, and configuration scaffolding.
// It centralizes configuration resolution, session locking, and structured
// logging setup so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
