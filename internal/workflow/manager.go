package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"librasflow/internal/acquisition"
	"librasflow/internal/captions"
	"librasflow/internal/export"
	"librasflow/internal/logging"
	"librasflow/internal/notifications"
	"librasflow/internal/project"
	"librasflow/internal/services"
	"librasflow/internal/stage"
	"librasflow/internal/storage"
)

// Acquirer retrieves captions for a video source.
type Acquirer interface {
	Acquire(ctx context.Context, source project.VideoSource, creds acquisition.Credentials) (*captions.Set, error)
}

// Generator produces interpretations from a caption set.
type Generator interface {
	Generate(ctx context.Context, set *captions.Set, instruction string) ([]project.InterpretationEntry, error)
	Regenerate(ctx context.Context, entry project.InterpretationEntry, newInstruction string) (project.InterpretationEntry, error)
}

// Exporter assembles and uploads the final artifact.
type Exporter interface {
	Export(ctx context.Context, proj *project.Project, frames export.FrameSource, overlays export.OverlaySource, onProgress export.ProgressFunc) (string, error)
}

// Manager drives projects through the ordered stages, persisting each stage's
// artifact before the next stage may begin and reconciling failures without
// losing upstream work.
type Manager struct {
	store     *project.Store
	acquirer  Acquirer
	generator Generator
	exporter  Exporter
	objects   storage.ObjectStore
	notifier  notifications.Service
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]context.CancelFunc
}

// Option configures the manager.
type Option func(*Manager)

// WithAcquirer installs the caption acquisition capability.
func WithAcquirer(acquirer Acquirer) Option {
	return func(m *Manager) { m.acquirer = acquirer }
}

// WithGenerator installs the interpretation capability.
func WithGenerator(generator Generator) Option {
	return func(m *Manager) { m.generator = generator }
}

// WithExporter installs the export capability.
func WithExporter(exporter Exporter) Option {
	return func(m *Manager) { m.exporter = exporter }
}

// WithObjectStore installs the object store used for deletion cascades.
func WithObjectStore(store storage.ObjectStore) Option {
	return func(m *Manager) { m.objects = store }
}

// WithNotifier installs the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithLogger routes manager diagnostics to the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logging.NewComponentLogger(logger, "workflow-manager")
	}
}

// NewManager constructs a workflow manager over the project store.
func NewManager(store *project.Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("project store required")
	}
	manager := &Manager{
		store:    store,
		notifier: notifications.NewNoop(),
		logger:   logging.NewNop(),
		sessions: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(manager)
	}
	return manager, nil
}

// CreateProject validates the source and persists a new project, already
// positioned at the captions stage awaiting acquisition.
func (m *Manager) CreateProject(ctx context.Context, ownerID, title string, source project.VideoSource) (*project.Project, error) {
	if err := validateSource(source); err != nil {
		return nil, err
	}
	proj, err := m.store.Create(ctx, ownerID, title, source)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, string(project.StageUpload), "create project", err.Error(), err)
	}
	proj.Stage = project.StageCaptions
	if err := m.store.Update(ctx, proj); err != nil {
		return nil, fmt.Errorf("persist stage transition: %w", err)
	}
	m.logger.Info("project created",
		logging.String(logging.FieldProjectID, proj.ID),
		logging.String("owner_id", proj.OwnerID),
		logging.String("source_kind", string(source.Kind)),
	)
	return proj, nil
}

// StageParams carries the per-run inputs stage side effects need. Credentials
// are threaded explicitly rather than looked up from ambient state.
type StageParams struct {
	Credentials acquisition.Credentials
	Instruction string
	Frames      export.FrameSource
	Overlays    export.OverlaySource
	OnProgress  export.ProgressFunc
}

// EnterStage moves the project to the target stage and runs that stage's side
// effect. Backward navigation is always permitted and discards no artifacts;
// moving forward requires the previous stage's artifact to be present.
func (m *Manager) EnterStage(ctx context.Context, projectID string, target project.Stage, params StageParams) (*project.Project, error) {
	proj, err := m.store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if target.Rank() < 0 {
		return nil, services.Wrap(services.ErrValidation, string(target), "enter stage",
			fmt.Sprintf("unknown stage %q", target), nil)
	}

	if target.Rank() < proj.Stage.Rank() {
		// Backward navigation repositions the project without touching any
		// later-stage artifacts already computed.
		proj.Stage = target
		proj.ClearError()
		proj.Status = project.StatusPending
		if err := m.store.Update(ctx, proj); err != nil {
			return nil, fmt.Errorf("persist stage transition: %w", err)
		}
		return proj, nil
	}

	handler, err := m.handlerFor(target, params)
	if err != nil {
		return nil, err
	}
	return m.runStage(ctx, proj, target, handler)
}

// Advance enters the project's current pending stage, running its side
// effect. It is the "do the next thing" operation used by the CLI.
func (m *Manager) Advance(ctx context.Context, projectID string, params StageParams) (*project.Project, error) {
	proj, err := m.store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if proj.Stage == project.StageUpload {
		return nil, services.Wrap(services.ErrValidation, string(project.StageUpload), "advance",
			"project has no video source yet", nil)
	}
	return m.EnterStage(ctx, projectID, proj.Stage, params)
}

// Retry clears the error state and re-enters the stage that failed. Retries
// are always explicit; the manager never retries on its own.
func (m *Manager) Retry(ctx context.Context, projectID string, params StageParams) (*project.Project, error) {
	proj, err := m.store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if proj.Status != project.StatusError {
		return nil, services.Wrap(services.ErrValidation, string(proj.Stage), "retry",
			"project is not in an error state", nil)
	}
	proj.ClearError()
	proj.Status = project.StatusPending
	if err := m.store.Update(ctx, proj); err != nil {
		return nil, fmt.Errorf("persist retry: %w", err)
	}
	return m.EnterStage(ctx, projectID, proj.Stage, params)
}

// Resume reloads a persisted project and reconciles its stored stage against
// artifact presence. The derived stage wins on disagreement so a project can
// always continue without re-running completed stages.
func (m *Manager) Resume(ctx context.Context, projectID string) (*project.Project, error) {
	proj, err := m.store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	captionCount, interpretationCount, err := m.store.ArtifactCounts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	derived := project.DeriveStage(proj.Source.Ref() != "", captionCount > 0, interpretationCount > 0)
	if derived != proj.Stage {
		m.logger.Warn("stored stage disagrees with artifacts",
			logging.String(logging.FieldProjectID, proj.ID),
			logging.String("stored_stage", string(proj.Stage)),
			logging.String("derived_stage", string(derived)),
		)
		proj.Stage = derived
		if err := m.store.Update(ctx, proj); err != nil {
			return nil, fmt.Errorf("persist stage reconciliation: %w", err)
		}
	}
	return proj, nil
}

// Cancel aborts any in-flight stage work for the project.
func (m *Manager) Cancel(projectID string) {
	m.mu.Lock()
	cancel, ok := m.sessions[projectID]
	delete(m.sessions, projectID)
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// Close cancels all in-flight work.
func (m *Manager) Close() {
	m.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(m.sessions))
	for id, cancel := range m.sessions {
		cancels = append(cancels, cancel)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// Health reports the readiness of each configured stage capability.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, 3)
	for _, target := range []project.Stage{project.StageCaptions, project.StageInterpretation, project.StageExport} {
		handler, err := m.handlerFor(target, StageParams{})
		if err != nil {
			checks = append(checks, stage.Unhealthy(string(target), services.Message(err)))
			continue
		}
		checks = append(checks, handler.HealthCheck(ctx))
	}
	return checks
}

func validateSource(source project.VideoSource) error {
	switch source.Kind {
	case project.SourceUpload:
		if strings.TrimSpace(source.FileRef) == "" {
			return services.Wrap(services.ErrValidation, string(project.StageUpload), "validate source",
				"uploaded source requires a file reference", nil)
		}
	case project.SourceRemote:
		if _, err := acquisition.ExtractVideoID(source.PlatformVideoID); err != nil {
			return services.Wrap(services.ErrValidation, string(project.StageUpload), "validate source",
				"remote source requires a valid platform video id", err)
		}
	default:
		return services.Wrap(services.ErrValidation, string(project.StageUpload), "validate source",
			fmt.Sprintf("unknown source kind %q", source.Kind), nil)
	}
	return nil
}
