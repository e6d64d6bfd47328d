// Package stage defines the contract between the workflow manager and the
// per-stage side effects it runs.
package stage

import (
	"context"

	"librasflow/internal/project"
)

// Handler describes the contract the workflow manager needs from each stage.
// Prepare validates preconditions and may mutate the project record; Execute
// performs the stage's side effect and stores its artifact.
type Handler interface {
	Prepare(context.Context, *project.Project) error
	Execute(context.Context, *project.Project) error
	HealthCheck(context.Context) Health
}
