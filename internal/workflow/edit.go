package workflow

import (
	"context"
	"errors"
	"fmt"

	"librasflow/internal/captions"
	"librasflow/internal/export"
	"librasflow/internal/logging"
	"librasflow/internal/project"
	"librasflow/internal/services"
	"librasflow/internal/storage"
)

// GetProject fetches a project by id.
func (m *Manager) GetProject(ctx context.Context, projectID string) (*project.Project, error) {
	return m.store.Get(ctx, projectID)
}

// ListProjects returns the owner's projects, newest first.
func (m *Manager) ListProjects(ctx context.Context, ownerID string) ([]*project.Project, error) {
	return m.store.ListByOwner(ctx, ownerID)
}

// Captions returns the project's caption artifact.
func (m *Manager) Captions(ctx context.Context, projectID string) (*captions.Set, error) {
	return m.store.Captions(ctx, projectID)
}

// Interpretations returns the project's interpretation artifact.
func (m *Manager) Interpretations(ctx context.Context, projectID string) ([]project.InterpretationEntry, error) {
	return m.store.Interpretations(ctx, projectID)
}

// EditCaption replaces one caption entry's text. When an interpretation was
// already generated from the previous text it is flagged stale rather than
// silently left inconsistent.
func (m *Manager) EditCaption(ctx context.Context, projectID, entryID, text string) error {
	if err := m.store.UpdateCaptionText(ctx, projectID, entryID, text); err != nil {
		return err
	}
	m.logger.Info("caption edited",
		logging.String(logging.FieldProjectID, projectID),
		logging.String("entry_id", entryID),
	)
	return nil
}

// RegenerateEntry regenerates a single interpretation with a new instruction,
// leaving the rest of the set untouched.
func (m *Manager) RegenerateEntry(ctx context.Context, projectID, subtitleID, instruction string) (project.InterpretationEntry, error) {
	if m.generator == nil {
		return project.InterpretationEntry{}, services.Wrap(services.ErrConfiguration,
			string(project.StageInterpretation), "regenerate", "no interpretation capability configured", nil)
	}
	entries, err := m.store.Interpretations(ctx, projectID)
	if err != nil {
		return project.InterpretationEntry{}, err
	}
	var current *project.InterpretationEntry
	for i := range entries {
		if entries[i].SubtitleID == subtitleID {
			current = &entries[i]
			break
		}
	}
	if current == nil {
		return project.InterpretationEntry{}, services.Wrap(services.ErrNotFound,
			string(project.StageInterpretation), "regenerate",
			fmt.Sprintf("no interpretation for subtitle %q", subtitleID), nil)
	}

	updated, err := m.generator.Regenerate(ctx, *current, instruction)
	if err != nil {
		return project.InterpretationEntry{}, err
	}
	if err := m.store.UpdateInterpretation(ctx, projectID, updated); err != nil {
		return project.InterpretationEntry{}, err
	}
	return updated, nil
}

// DeleteProject removes a project owned by ownerID and cascades to its stored
// binary artifacts. Deleting another user's project is a permission error.
func (m *Manager) DeleteProject(ctx context.Context, projectID, ownerID string) error {
	proj, err := m.store.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if proj.OwnerID != ownerID {
		return services.Wrap(services.ErrPermission, "project", "delete",
			"only the project owner may delete it", nil)
	}

	m.Cancel(projectID)
	if _, err := m.store.Delete(ctx, projectID); err != nil {
		return err
	}

	if m.objects != nil {
		paths := []string{
			storage.ObjectPath(proj.OwnerID, proj.ID, export.ArtifactName),
		}
		if proj.Source.Kind == project.SourceUpload && proj.Source.FileRef != "" {
			paths = append(paths, proj.Source.FileRef)
		}
		for _, path := range paths {
			if err := m.objects.Delete(ctx, path); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
				m.logger.Warn("artifact cleanup failed",
					logging.String(logging.FieldProjectID, projectID),
					logging.String("object_path", path),
					logging.Error(err),
				)
			}
		}
	}
	m.logger.Info("project deleted", logging.String(logging.FieldProjectID, projectID))
	return nil
}
