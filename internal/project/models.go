package project

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound reports a missing project or child record.
var ErrNotFound = errors.New("project not found")

// Status represents the lifecycle of a project.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Stage is one phase of the linear workflow. Stages are totally ordered:
// upload < captions < interpretation < export.
type Stage string

const (
	StageUpload         Stage = "upload"
	StageCaptions       Stage = "captions"
	StageInterpretation Stage = "interpretation"
	StageExport         Stage = "export"
)

var stageOrder = []Stage{StageUpload, StageCaptions, StageInterpretation, StageExport}

// Stages returns the ordered list of workflow stages.
func Stages() []Stage {
	cp := make([]Stage, len(stageOrder))
	copy(cp, stageOrder)
	return cp
}

// Rank returns the position of the stage in workflow order, or -1 when unknown.
func (s Stage) Rank() int {
	for i, stage := range stageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// Next returns the stage that follows s, or s itself when s is the last stage.
func (s Stage) Next() Stage {
	rank := s.Rank()
	if rank < 0 || rank == len(stageOrder)-1 {
		return s
	}
	return stageOrder[rank+1]
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized.Rank() < 0 {
		return "", false
	}
	return normalized, true
}

// SourceKind distinguishes the two ingest paths.
type SourceKind string

const (
	SourceUpload SourceKind = "upload"
	SourceRemote SourceKind = "remote"
)

// VideoSource identifies where a project's video comes from: either an
// uploaded binary held in object storage or a remote-platform video id.
type VideoSource struct {
	Kind SourceKind
	// FileRef is the object-storage reference for uploaded videos.
	FileRef string
	// PlatformVideoID is the remote platform identifier for remote videos.
	PlatformVideoID string
}

// Ref returns the source reference appropriate for the kind.
func (v VideoSource) Ref() string {
	if v.Kind == SourceRemote {
		return v.PlatformVideoID
	}
	return v.FileRef
}

// InterpretationEntry is the sign-language rendering derived from one caption
// entry. Times and original text are snapshots from generation time so the
// interpretation timeline can be consulted independently.
type InterpretationEntry struct {
	SubtitleID           string
	StartTime            float64
	EndTime              float64
	OriginalText         string
	LibrasInterpretation string
	// Instruction is the exact directive used to produce this entry, kept for
	// regeneration traceability. Empty means the default directive was used.
	Instruction string
	// Stale marks entries whose source caption text changed after generation.
	Stale bool
}

// Project is the persisted record driving one conversion workflow.
type Project struct {
	ID           string
	OwnerID      string
	Title        string
	Status       Status
	Stage        Stage
	Source       VideoSource
	ArtifactURL  string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SetFailed marks the project as errored with the given message.
func (p *Project) SetFailed(message string) {
	p.Status = StatusError
	p.ErrorMessage = message
}

// ClearError resets error state ahead of a retry.
func (p *Project) ClearError() {
	if p.Status == StatusError {
		p.Status = StatusProcessing
	}
	p.ErrorMessage = ""
}

// DeriveStage reconstructs the current stage purely from artifact presence.
// It is the single routine used when resuming a persisted project; the stored
// stage field must agree with it, and this result wins on disagreement.
func DeriveStage(hasSource, hasCaptions, hasInterpretations bool) Stage {
	switch {
	case !hasSource:
		return StageUpload
	case !hasCaptions:
		return StageCaptions
	case !hasInterpretations:
		return StageInterpretation
	default:
		return StageExport
	}
}
