package workflow

import (
	"context"
	"fmt"

	"librasflow/internal/acquisition"
	"librasflow/internal/logging"
	"librasflow/internal/project"
	"librasflow/internal/services"
	"librasflow/internal/stage"
)

func (m *Manager) handlerFor(target project.Stage, params StageParams) (stage.Handler, error) {
	switch target {
	case project.StageCaptions:
		if m.acquirer == nil {
			return nil, services.Wrap(services.ErrConfiguration, string(target), "configure stage",
				"no caption acquisition capability configured", nil)
		}
		return &captionsHandler{manager: m, creds: params.Credentials}, nil
	case project.StageInterpretation:
		if m.generator == nil {
			return nil, services.Wrap(services.ErrConfiguration, string(target), "configure stage",
				"no interpretation capability configured", nil)
		}
		return &interpretationHandler{manager: m, instruction: params.Instruction}, nil
	case project.StageExport:
		if m.exporter == nil {
			return nil, services.Wrap(services.ErrConfiguration, string(target), "configure stage",
				"no export capability configured", nil)
		}
		return &exportHandler{manager: m, params: params}, nil
	default:
		return nil, services.Wrap(services.ErrValidation, string(target), "configure stage",
			fmt.Sprintf("stage %q has no side effect", target), nil)
	}
}

// captionsHandler populates the caption store from the project's source.
type captionsHandler struct {
	manager *Manager
	creds   acquisition.Credentials
}

func (h *captionsHandler) Prepare(_ context.Context, proj *project.Project) error {
	if proj.Source.Ref() == "" {
		return services.Wrap(services.ErrValidation, string(project.StageCaptions), "prepare",
			"project has no video source", nil)
	}
	return nil
}

func (h *captionsHandler) Execute(ctx context.Context, proj *project.Project) error {
	set, err := h.manager.acquirer.Acquire(ctx, proj.Source, h.creds)
	if err != nil {
		return err
	}
	if err := h.manager.store.ReplaceCaptions(ctx, proj.ID, set.Entries()); err != nil {
		return fmt.Errorf("persist captions: %w", err)
	}
	proj.Stage = project.StageInterpretation
	h.manager.notifyCompleted(ctx, proj, project.StageCaptions, "captions", set.Len())
	return nil
}

func (h *captionsHandler) HealthCheck(context.Context) stage.Health {
	if h.manager.acquirer == nil {
		return stage.Unhealthy(string(project.StageCaptions), "acquisition capability missing")
	}
	return stage.Healthy(string(project.StageCaptions))
}

// interpretationHandler turns the caption artifact into interpretations.
type interpretationHandler struct {
	manager     *Manager
	instruction string
}

func (h *interpretationHandler) Prepare(ctx context.Context, proj *project.Project) error {
	set, err := h.manager.store.Captions(ctx, proj.ID)
	if err != nil {
		return fmt.Errorf("load captions: %w", err)
	}
	if set.Len() == 0 {
		return services.Wrap(services.ErrValidation, string(project.StageInterpretation), "prepare",
			"caption set is empty; run the captions stage first", nil)
	}
	return nil
}

func (h *interpretationHandler) Execute(ctx context.Context, proj *project.Project) error {
	set, err := h.manager.store.Captions(ctx, proj.ID)
	if err != nil {
		return fmt.Errorf("load captions: %w", err)
	}
	entries, err := h.manager.generator.Generate(ctx, set, h.instruction)
	if err != nil {
		return err
	}
	if err := h.manager.store.ReplaceInterpretations(ctx, proj.ID, entries); err != nil {
		return fmt.Errorf("persist interpretations: %w", err)
	}
	proj.Stage = project.StageExport
	h.manager.notifyCompleted(ctx, proj, project.StageInterpretation, "interpretations", len(entries))
	return nil
}

func (h *interpretationHandler) HealthCheck(context.Context) stage.Health {
	if h.manager.generator == nil {
		return stage.Unhealthy(string(project.StageInterpretation), "generation capability missing")
	}
	return stage.Healthy(string(project.StageInterpretation))
}

// exportHandler assembles and uploads the final artifact. The artifact URL is
// linked to the project only after the upload is confirmed.
type exportHandler struct {
	manager *Manager
	params  StageParams
}

func (h *exportHandler) Prepare(ctx context.Context, proj *project.Project) error {
	_, interpretationCount, err := h.manager.store.ArtifactCounts(ctx, proj.ID)
	if err != nil {
		return fmt.Errorf("count artifacts: %w", err)
	}
	if interpretationCount == 0 {
		return services.Wrap(services.ErrValidation, string(project.StageExport), "prepare",
			"interpretation set is empty; run the interpretation stage first", nil)
	}
	if h.params.Frames == nil || h.params.Overlays == nil {
		return services.Wrap(services.ErrValidation, string(project.StageExport), "prepare",
			"export requires a frame source and an overlay source", nil)
	}
	return nil
}

func (h *exportHandler) Execute(ctx context.Context, proj *project.Project) error {
	url, err := h.manager.exporter.Export(ctx, proj, h.params.Frames, h.params.Overlays, h.params.OnProgress)
	if err != nil {
		return err
	}
	proj.ArtifactURL = url
	proj.Status = project.StatusCompleted
	if err := h.manager.notifier.NotifyProjectCompleted(ctx, proj.Title, url); err != nil {
		h.manager.logger.Warn("completion notification failed", logging.Error(err))
	}
	return nil
}

func (h *exportHandler) HealthCheck(context.Context) stage.Health {
	if h.manager.exporter == nil {
		return stage.Unhealthy(string(project.StageExport), "export capability missing")
	}
	return stage.Healthy(string(project.StageExport))
}
