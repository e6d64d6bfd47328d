package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"librasflow/internal/logging"
	"librasflow/internal/project"
	"librasflow/internal/services"
	"librasflow/internal/stage"
)

func (m *Manager) runStage(ctx context.Context, proj *project.Project, target project.Stage, handler stage.Handler) (*project.Project, error) {
	runCtx, cancel := context.WithCancel(ctx)
	m.registerSession(proj.ID, cancel)
	defer m.clearSession(proj.ID)

	stageCtx := services.WithRequestID(
		services.WithStage(services.WithProjectID(runCtx, proj.ID), string(target)),
		uuid.NewString(),
	)
	logger := logging.WithContext(stageCtx, m.logger)

	if err := handler.Prepare(stageCtx, proj); err != nil {
		// Gate rejections surface immediately without transitioning the
		// project; only genuine stage work moves it into error.
		if services.FailureStatus(err) != project.StatusError {
			return nil, err
		}
		return nil, m.failStage(ctx, proj, target, err)
	}

	proj.Stage = target
	proj.Status = project.StatusProcessing
	proj.ErrorMessage = ""
	if err := m.store.Update(stageCtx, proj); err != nil {
		return nil, fmt.Errorf("persist processing transition: %w", err)
	}

	start := time.Now()
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	if err := handler.Execute(stageCtx, proj); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("stage interrupted by cancellation")
			return nil, err
		}
		return nil, m.failStage(ctx, proj, target, err)
	}

	if proj.Status == project.StatusProcessing {
		proj.Status = project.StatusPending
	}
	if err := m.store.Update(stageCtx, proj); err != nil {
		return nil, fmt.Errorf("persist stage result: %w", err)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_stage", string(proj.Stage)),
		logging.Duration("stage_duration", time.Since(start)),
	)
	return proj, nil
}

// failStage classifies the error, persists the failure on the project, and
// leaves every previously stored artifact untouched.
func (m *Manager) failStage(ctx context.Context, proj *project.Project, target project.Stage, stageErr error) error {
	message := services.Message(stageErr)
	if message == "" {
		message = fmt.Sprintf("%s failed", target)
	}
	status := services.FailureStatus(stageErr)
	if status == project.StatusError {
		proj.SetFailed(message)
	} else {
		// Correctable input problem surfaced mid-stage: the project goes
		// back to awaiting input instead of recording a failed run.
		proj.Status = status
		proj.ErrorMessage = ""
	}

	persistCtx := context.WithoutCancel(ctx)
	if err := m.store.Update(persistCtx, proj); err != nil {
		m.logger.Error("failed to persist stage failure",
			logging.String(logging.FieldProjectID, proj.ID),
			logging.Error(err),
		)
	}
	m.logger.Error("stage failed",
		logging.String(logging.FieldProjectID, proj.ID),
		logging.String(logging.FieldStage, string(target)),
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)
	if status == project.StatusError {
		if err := m.notifier.NotifyStageFailed(persistCtx, proj.Title, target, stageErr); err != nil {
			m.logger.Warn("failure notification failed", logging.Error(err))
		}
	}
	return stageErr
}

func (m *Manager) notifyCompleted(ctx context.Context, proj *project.Project, completed project.Stage, artifactKind string, count int) {
	if err := m.notifier.NotifyStageCompleted(ctx, proj.Title, completed, artifactKind, count); err != nil {
		m.logger.Warn("completion notification failed",
			logging.String(logging.FieldProjectID, proj.ID),
			logging.Error(err),
		)
	}
}

// registerSession installs the cancel func for a project's in-flight stage
// work, aborting any previous run still active for the same project.
func (m *Manager) registerSession(projectID string, cancel context.CancelFunc) {
	m.mu.Lock()
	previous, ok := m.sessions[projectID]
	m.sessions[projectID] = cancel
	m.mu.Unlock()
	if ok {
		previous()
	}
}

func (m *Manager) clearSession(projectID string) {
	m.mu.Lock()
	delete(m.sessions, projectID)
	m.mu.Unlock()
}
