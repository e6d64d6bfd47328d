package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"librasflow/internal/captions"
	"librasflow/internal/logging"
	"librasflow/internal/project"
)

// Transport is the underlying media clock. Play, pause and seek are
// pass-through controls; the synchronizer holds no playback position of its
// own.
type Transport interface {
	Play() error
	Pause() error
	Seek(seconds float64) error
	CurrentTime() float64
}

// ActiveChange is emitted when the entry under the playhead changes identity.
// Both fields are nil when playback moves into a gap or past the last entry.
type ActiveChange struct {
	Time           float64
	Caption        *captions.Entry
	Interpretation *project.InterpretationEntry
}

// Synchronizer binds a media clock to the caption and interpretation
// timelines. Each tick recomputes the active entry from scratch, so seeks in
// either direction need no special handling.
type Synchronizer struct {
	transport Transport
	widget    Widget
	logger    *slog.Logger

	mu              sync.Mutex
	captionSet      *captions.Set
	interpretations map[string]project.InterpretationEntry
	lastActiveID    string
	hasActive       bool
	listeners       []func(ActiveChange)
}

// SyncOption configures the synchronizer.
type SyncOption func(*Synchronizer)

// WithWidget attaches the rendering widget. Without one, active-entry changes
// still reach listeners but nothing is forwarded for rendering.
func WithWidget(widget Widget) SyncOption {
	return func(s *Synchronizer) {
		s.widget = widget
	}
}

// WithSyncLogger routes synchronizer diagnostics to the given logger.
func WithSyncLogger(logger *slog.Logger) SyncOption {
	return func(s *Synchronizer) {
		s.logger = logging.NewComponentLogger(logger, "playback-sync")
	}
}

// NewSynchronizer constructs a synchronizer over the given transport.
func NewSynchronizer(transport Transport, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		transport: transport,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind installs the timelines to synchronize against. Interpretations are
// indexed by subtitle id for lookup once the active caption is known.
func (s *Synchronizer) Bind(set *captions.Set, interpretations []project.InterpretationEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captionSet = set
	s.interpretations = make(map[string]project.InterpretationEntry, len(interpretations))
	for _, entry := range interpretations {
		s.interpretations[entry.SubtitleID] = entry
	}
	s.lastActiveID = ""
	s.hasActive = false
}

// OnChange registers a listener for active-entry changes. Listeners run on
// the ticking goroutine.
func (s *Synchronizer) OnChange(fn func(ActiveChange)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Play starts the underlying transport.
func (s *Synchronizer) Play() error { return s.transport.Play() }

// Pause pauses the underlying transport.
func (s *Synchronizer) Pause() error { return s.transport.Pause() }

// Seek repositions the underlying transport and immediately resynchronizes
// the active entry to the new position.
func (s *Synchronizer) Seek(seconds float64) error {
	if err := s.transport.Seek(seconds); err != nil {
		return err
	}
	s.Tick(seconds)
	return nil
}

// Tick recomputes the active entry for the given playback time and notifies
// listeners and the widget only when the active identity changed.
func (s *Synchronizer) Tick(now float64) {
	s.mu.Lock()
	if s.captionSet == nil {
		s.mu.Unlock()
		return
	}

	active := s.captionSet.FindActive(now)
	activeID := ""
	if active != nil {
		activeID = active.ID
	}
	if s.hasActive && activeID == s.lastActiveID {
		s.mu.Unlock()
		return
	}
	s.lastActiveID = activeID
	s.hasActive = true

	change := ActiveChange{Time: now, Caption: active}
	if active != nil {
		if entry, ok := s.interpretations[active.ID]; ok {
			change.Interpretation = &entry
		}
	}
	listeners := make([]func(ActiveChange), len(s.listeners))
	copy(listeners, s.listeners)
	widget := s.widget
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
	s.forward(change, widget)
}

// Run polls the transport clock at the given interval until the context is
// canceled, driving Tick on each poll.
func (s *Synchronizer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(s.transport.CurrentTime())
		}
	}
}

func (s *Synchronizer) forward(change ActiveChange, widget Widget) {
	if widget == nil {
		return
	}
	if change.Interpretation == nil {
		if err := widget.Stop(); err != nil {
			s.logger.Warn("widget stop failed", logging.Error(err))
		}
		return
	}
	if !widget.Ready() {
		// Dropped, not queued: by the next change the text would be stale.
		s.logger.Warn("widget not ready, dropping interpretation",
			logging.String("subtitle_id", change.Interpretation.SubtitleID),
		)
		return
	}
	if err := widget.Translate(change.Interpretation.LibrasInterpretation); err != nil {
		s.logger.Warn("widget translate failed",
			logging.String("subtitle_id", change.Interpretation.SubtitleID),
			logging.Error(err),
		)
	}
}
