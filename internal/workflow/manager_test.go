package workflow

import (
	"context"
	"errors"
	"image"
	"testing"

	"librasflow/internal/acquisition"
	"librasflow/internal/captions"
	"librasflow/internal/export"
	"librasflow/internal/project"
	"librasflow/internal/services"
	"librasflow/internal/storage"
	"librasflow/internal/testsupport"
)

type fakeAcquirer struct {
	set   *captions.Set
	err   error
	calls int
}

func (f *fakeAcquirer) Acquire(_ context.Context, _ project.VideoSource, _ acquisition.Credentials) (*captions.Set, error) {
	f.calls++
	return f.set, f.err
}

type fakeGenerator struct {
	err   error
	calls int
}

func (f *fakeGenerator) Generate(_ context.Context, set *captions.Set, instruction string) ([]project.InterpretationEntry, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	entries := set.Entries()
	out := make([]project.InterpretationEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, project.InterpretationEntry{
			SubtitleID:           entry.ID,
			StartTime:            entry.StartTime,
			EndTime:              entry.EndTime,
			OriginalText:         entry.Text,
			LibrasInterpretation: "LIBRAS " + entry.Text,
			Instruction:          instruction,
		})
	}
	return out, nil
}

func (f *fakeGenerator) Regenerate(_ context.Context, entry project.InterpretationEntry, newInstruction string) (project.InterpretationEntry, error) {
	if f.err != nil {
		return project.InterpretationEntry{}, f.err
	}
	entry.LibrasInterpretation = "REGEN " + entry.OriginalText
	entry.Instruction = newInstruction
	entry.Stale = false
	return entry, nil
}

type fakeExporter struct {
	url string
	err error
}

func (f *fakeExporter) Export(_ context.Context, _ *project.Project, _ export.FrameSource, _ export.OverlaySource, onProgress export.ProgressFunc) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if onProgress != nil {
		onProgress(100)
	}
	return f.url, nil
}

type stubImageSource struct{}

func (stubImageSource) Frame(context.Context) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (stubImageSource) Overlay(context.Context) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func sampleSet(t *testing.T) *captions.Set {
	t.Helper()
	set, err := captions.NewSet([]captions.Entry{
		{ID: "1", StartTime: 0, EndTime: 5, Text: "Olá, bem-vindo ao vídeo."},
		{ID: "2", StartTime: 5, EndTime: 10, Text: "Hoje vamos falar sobre acessibilidade."},
	})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	return set
}

func newManager(t *testing.T, opts ...Option) (*Manager, *project.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager, err := NewManager(store, opts...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return manager, store
}

func remoteSource() project.VideoSource {
	return project.VideoSource{Kind: project.SourceRemote, PlatformVideoID: "dQw4w9WgXcQ"}
}

func exportParams() StageParams {
	return StageParams{Frames: stubImageSource{}, Overlays: stubImageSource{}}
}

func TestCreateProjectValidatesSource(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	_, err := manager.CreateProject(ctx, "user-1", "Aula", project.VideoSource{Kind: project.SourceRemote, PlatformVideoID: "nope"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for bad video id, got %v", err)
	}
	_, err = manager.CreateProject(ctx, "user-1", "Aula", project.VideoSource{Kind: project.SourceUpload})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing file ref, got %v", err)
	}
}

func TestCreateProjectMovesToCaptionsStage(t *testing.T) {
	manager, _ := newManager(t)
	proj, err := manager.CreateProject(context.Background(), "user-1", "Aula", remoteSource())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if proj.Stage != project.StageCaptions {
		t.Fatalf("stage = %s, want captions", proj.Stage)
	}
	if proj.Status != project.StatusPending {
		t.Fatalf("status = %s, want pending", proj.Status)
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	acquirer := &fakeAcquirer{set: sampleSet(t)}
	generator := &fakeGenerator{}
	exporter := &fakeExporter{url: "file:///exports/export.jpg"}
	manager, store := newManager(t,
		WithAcquirer(acquirer), WithGenerator(generator), WithExporter(exporter))
	ctx := context.Background()

	proj, err := manager.CreateProject(ctx, "user-1", "Aula", remoteSource())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	proj, err = manager.Advance(ctx, proj.ID, StageParams{Credentials: acquisition.Credentials{AccessToken: "tok"}})
	if err != nil {
		t.Fatalf("advance into captions: %v", err)
	}
	if proj.Stage != project.StageInterpretation {
		t.Fatalf("stage after captions = %s, want interpretation", proj.Stage)
	}
	set, err := store.Captions(ctx, proj.ID)
	if err != nil || set.Len() != 2 {
		t.Fatalf("captions not persisted: len=%d err=%v", set.Len(), err)
	}

	proj, err = manager.Advance(ctx, proj.ID, StageParams{})
	if err != nil {
		t.Fatalf("advance into interpretation: %v", err)
	}
	if proj.Stage != project.StageExport {
		t.Fatalf("stage after interpretation = %s, want export", proj.Stage)
	}
	entries, err := store.Interpretations(ctx, proj.ID)
	if err != nil || len(entries) != 2 {
		t.Fatalf("interpretations not persisted: len=%d err=%v", len(entries), err)
	}
	if entries[0].SubtitleID != "1" || entries[0].LibrasInterpretation == "" {
		t.Fatalf("unexpected interpretation %+v", entries[0])
	}

	proj, err = manager.Advance(ctx, proj.ID, exportParams())
	if err != nil {
		t.Fatalf("advance into export: %v", err)
	}
	if proj.Status != project.StatusCompleted {
		t.Fatalf("status = %s, want completed", proj.Status)
	}
	if proj.ArtifactURL != "file:///exports/export.jpg" {
		t.Fatalf("artifact url = %q", proj.ArtifactURL)
	}
}

func TestStageGates(t *testing.T) {
	manager, _ := newManager(t,
		WithAcquirer(&fakeAcquirer{set: sampleSet(t)}),
		WithGenerator(&fakeGenerator{}),
		WithExporter(&fakeExporter{url: "u"}))
	ctx := context.Background()

	proj, err := manager.CreateProject(ctx, "user-1", "Aula", remoteSource())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	// No captions yet: interpretation and export entry are both rejected.
	if _, err := manager.EnterStage(ctx, proj.ID, project.StageInterpretation, StageParams{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error entering interpretation, got %v", err)
	}
	if _, err := manager.EnterStage(ctx, proj.ID, project.StageExport, exportParams()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error entering export, got %v", err)
	}

	// A rejected gate leaves the project untouched.
	reloaded, err := manager.GetProject(ctx, proj.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if reloaded.Status != project.StatusPending || reloaded.Stage != project.StageCaptions {
		t.Fatalf("gate rejection mutated project: status=%s stage=%s", reloaded.Status, reloaded.Stage)
	}
}

func TestStageFailurePreservesEarlierArtifacts(t *testing.T) {
	generator := &fakeGenerator{err: services.Wrap(services.ErrProvider, "interpretation", "generate", "rate limited", nil)}
	manager, store := newManager(t,
		WithAcquirer(&fakeAcquirer{set: sampleSet(t)}),
		WithGenerator(generator))
	ctx := context.Background()

	proj, err := manager.CreateProject(ctx, "user-1", "Aula", remoteSource())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := manager.Advance(ctx, proj.ID, StageParams{Credentials: acquisition.Credentials{AccessToken: "tok"}}); err != nil {
		t.Fatalf("captions stage: %v", err)
	}

	if _, err := manager.Advance(ctx, proj.ID, StageParams{}); err == nil {
		t.Fatal("expected interpretation failure")
	}

	reloaded, err := manager.GetProject(ctx, proj.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if reloaded.Status != project.StatusError {
		t.Fatalf("status = %s, want error", reloaded.Status)
	}
	if reloaded.ErrorMessage == "" {
		t.Fatal("error message not recorded")
	}
	set, err := store.Captions(ctx, proj.ID)
	if err != nil || set.Len() != 2 {
		t.Fatalf("captions artifact lost after failure: len=%d err=%v", set.Len(), err)
	}
}

func TestRetryAfterFailure(t *testing.T) {
	generator := &fakeGenerator{err: errors.New("transient")}
	manager, _ := newManager(t,
		WithAcquirer(&fakeAcquirer{set: sampleSet(t)}),
		WithGenerator(generator))
	ctx := context.Background()

	proj, err := manager.CreateProject(ctx, "user-1", "Aula", remoteSource())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := manager.Advance(ctx, proj.ID, StageParams{Credentials: acquisition.Credentials{AccessToken: "tok"}}); err != nil {
		t.Fatalf("captions stage: %v", err)
	}
	if _, err := manager.Advance(ctx, proj.ID, StageParams{}); err == nil {
		t.Fatal("expected interpretation failure")
	}

	// Retry before fixing: still failing. Retry is never automatic.
	if _, err := manager.Retry(ctx, proj.ID, StageParams{}); err == nil {
		t.Fatal("expected retry to fail while provider is broken")
	}

	generator.err = nil
	proj, err = manager.Retry(ctx, proj.ID, StageParams{})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if proj.Stage != project.StageExport || proj.Status != project.StatusPending {
		t.Fatalf("unexpected state after retry: stage=%s status=%s", proj.Stage, proj.Status)
	}
	if proj.ErrorMessage != "" {
		t.Fatalf("error message not cleared: %q", proj.ErrorMessage)
	}
}

func TestRetryRequiresErrorState(t *testing.T) {
	manager, _ := newManager(t)
	proj, err := manager.CreateProject(context.Background(), "user-1", "Aula", remoteSource())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := manager.Retry(context.Background(), proj.ID, StageParams{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResumeReconcilesStage(t *testing.T) {
	manager, store := newManager(t, WithAcquirer(&fakeAcquirer{set: sampleSet(t)}))
	ctx := context.Background()

	proj, err := manager.CreateProject(ctx, "user-1", "Aula", remoteSource())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := manager.Advance(ctx, proj.ID, StageParams{Credentials: acquisition.Credentials{AccessToken: "tok"}}); err != nil {
		t.Fatalf("captions stage: %v", err)
	}

	// Corrupt the stored stage; artifacts say interpretation is next.
	proj, err = manager.GetProject(ctx, proj.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	proj.Stage = project.StageUpload
	if err := store.Update(ctx, proj); err != nil {
		t.Fatalf("Update: %v", err)
	}

	resumed, err := manager.Resume(ctx, proj.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Stage != project.StageInterpretation {
		t.Fatalf("resumed stage = %s, want interpretation", resumed.Stage)
	}
}

func TestBackwardNavigationKeepsArtifacts(t *testing.T) {
	acquirer := &fakeAcquirer{set: sampleSet(t)}
	manager, store := newManager(t, WithAcquirer(acquirer), WithGenerator(&fakeGenerator{}))
	ctx := context.Background()

	proj, err := manager.CreateProject(ctx, "user-1", "Aula", remoteSource())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	creds := StageParams{Credentials: acquisition.Credentials{AccessToken: "tok"}}
	if _, err := manager.Advance(ctx, proj.ID, creds); err != nil {
		t.Fatalf("captions stage: %v", err)
	}
	if _, err := manager.Advance(ctx, proj.ID, StageParams{}); err != nil {
		t.Fatalf("interpretation stage: %v", err)
	}

	proj, err = manager.EnterStage(ctx, proj.ID, project.StageCaptions, StageParams{})
	if err != nil {
		t.Fatalf("backward navigation: %v", err)
	}
	if proj.Stage != project.StageCaptions {
		t.Fatalf("stage = %s, want captions", proj.Stage)
	}
	if acquirer.calls != 1 {
		t.Fatalf("backward navigation must not re-run acquisition, calls=%d", acquirer.calls)
	}
	entries, err := store.Interpretations(ctx, proj.ID)
	if err != nil || len(entries) != 2 {
		t.Fatalf("later-stage artifacts discarded: len=%d err=%v", len(entries), err)
	}
}

func TestRegenerateEntry(t *testing.T) {
	manager, _ := newManager(t,
		WithAcquirer(&fakeAcquirer{set: sampleSet(t)}),
		WithGenerator(&fakeGenerator{}))
	ctx := context.Background()

	proj, err := manager.CreateProject(ctx, "user-1", "Aula", remoteSource())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := manager.Advance(ctx, proj.ID, StageParams{Credentials: acquisition.Credentials{AccessToken: "tok"}}); err != nil {
		t.Fatalf("captions stage: %v", err)
	}
	if _, err := manager.Advance(ctx, proj.ID, StageParams{}); err != nil {
		t.Fatalf("interpretation stage: %v", err)
	}

	updated, err := manager.RegenerateEntry(ctx, proj.ID, "2", "mais formal")
	if err != nil {
		t.Fatalf("RegenerateEntry: %v", err)
	}
	if updated.Instruction != "mais formal" {
		t.Fatalf("instruction not recorded: %q", updated.Instruction)
	}

	entries, err := manager.Interpretations(ctx, proj.ID)
	if err != nil {
		t.Fatalf("Interpretations: %v", err)
	}
	if entries[1].LibrasInterpretation != "REGEN Hoje vamos falar sobre acessibilidade." {
		t.Fatalf("entry not updated: %+v", entries[1])
	}
	if entries[0].LibrasInterpretation != "LIBRAS Olá, bem-vindo ao vídeo." {
		t.Fatalf("other entries must be untouched: %+v", entries[0])
	}

	if _, err := manager.RegenerateEntry(ctx, proj.ID, "missing", "x"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestDeleteProjectOwnerCheckAndCascade(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	objects, err := storage.NewLocalStore(cfg.Storage.LocalDir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	manager, err := NewManager(store, WithObjectStore(objects))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx := context.Background()

	proj, err := manager.CreateProject(ctx, "user-1", "Aula", remoteSource())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	artifactPath := storage.ObjectPath(proj.OwnerID, proj.ID, export.ArtifactName)
	if _, err := objects.Put(ctx, artifactPath, []byte("jpeg"), "image/jpeg"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := manager.DeleteProject(ctx, proj.ID, "someone-else"); !errors.Is(err, services.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if err := manager.DeleteProject(ctx, proj.ID, "user-1"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := manager.GetProject(ctx, proj.ID); !errors.Is(err, project.ErrNotFound) {
		t.Fatalf("project should be gone, got %v", err)
	}
	if _, err := objects.Get(ctx, artifactPath); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("artifact should be gone, got %v", err)
	}
}

func TestHealthReportsMissingCapabilities(t *testing.T) {
	manager, _ := newManager(t, WithAcquirer(&fakeAcquirer{}))
	checks := manager.Health(context.Background())
	if len(checks) != 3 {
		t.Fatalf("got %d checks, want 3", len(checks))
	}
	if !checks[0].Ready {
		t.Fatalf("captions should be ready: %+v", checks[0])
	}
	if checks[1].Ready || checks[2].Ready {
		t.Fatalf("unconfigured stages should be unready: %+v", checks[1:])
	}
}

type recordingNotifier struct {
	completed []string
	failed    []string
	projects  []string
}

func (r *recordingNotifier) NotifyStageCompleted(_ context.Context, title string, stage project.Stage, artifactKind string, count int) error {
	r.completed = append(r.completed, string(stage))
	return nil
}

func (r *recordingNotifier) NotifyStageFailed(_ context.Context, title string, stage project.Stage, err error) error {
	r.failed = append(r.failed, string(stage))
	return nil
}

func (r *recordingNotifier) NotifyProjectCompleted(_ context.Context, title, artifactURL string) error {
	r.projects = append(r.projects, artifactURL)
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func TestStageOutcomesNotify(t *testing.T) {
	notifier := &recordingNotifier{}
	generator := &fakeGenerator{err: services.Wrap(services.ErrProvider, "interpretation", "generate", "model unavailable", nil)}
	manager, _ := newManager(t,
		WithAcquirer(&fakeAcquirer{set: sampleSet(t)}),
		WithGenerator(generator),
		WithExporter(&fakeExporter{url: "https://example.test/export.jpg"}),
		WithNotifier(notifier),
	)
	ctx := context.Background()

	proj, err := manager.CreateProject(ctx, "user-1", "Aula", remoteSource())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := manager.Advance(ctx, proj.ID, StageParams{}); err != nil {
		t.Fatalf("Advance captions: %v", err)
	}
	if len(notifier.completed) != 1 || notifier.completed[0] != string(project.StageCaptions) {
		t.Fatalf("expected captions completion notice, got %v", notifier.completed)
	}

	if _, err := manager.Advance(ctx, proj.ID, StageParams{}); err == nil {
		t.Fatal("expected interpretation failure")
	}
	if len(notifier.failed) != 1 || notifier.failed[0] != string(project.StageInterpretation) {
		t.Fatalf("expected interpretation failure notice, got %v", notifier.failed)
	}

	generator.err = nil
	if _, err := manager.Retry(ctx, proj.ID, StageParams{}); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if _, err := manager.Advance(ctx, proj.ID, exportParams()); err != nil {
		t.Fatalf("Advance export: %v", err)
	}
	if len(notifier.projects) != 1 || notifier.projects[0] != "https://example.test/export.jpg" {
		t.Fatalf("expected project completion notice, got %v", notifier.projects)
	}
}

func TestExecuteValidationFailureLeavesProjectPending(t *testing.T) {
	acquirer := &fakeAcquirer{err: services.Wrap(services.ErrValidation, "captions", "select caption track",
		"no captions in pt-BR (available: en)", nil)}
	manager, store := newManager(t, WithAcquirer(acquirer))
	ctx := context.Background()

	proj, err := manager.CreateProject(ctx, "user-1", "Aula", remoteSource())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := manager.Advance(ctx, proj.ID, StageParams{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// The project awaits corrected input; it is not a failed run.
	stored, err := store.Get(ctx, proj.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != project.StatusPending {
		t.Fatalf("status = %s, want %s", stored.Status, project.StatusPending)
	}
	if stored.ErrorMessage != "" {
		t.Fatalf("error message should stay empty, got %q", stored.ErrorMessage)
	}
	if stored.Stage != project.StageCaptions {
		t.Fatalf("stage = %s, want %s", stored.Stage, project.StageCaptions)
	}
}
