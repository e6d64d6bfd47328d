package interpretation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"librasflow/internal/captions"
	"librasflow/internal/config"
	"librasflow/internal/logging"
	"librasflow/internal/project"
	"librasflow/internal/services"
)

const stageName = "interpretation"

// FallbackPrefix marks interpretations that could not be generated and were
// filled with placeholder content. The prefix makes them recognizable so users
// know to regenerate.
const FallbackPrefix = "[interpretação indisponível]"

// Provider is the generative text backend. Errors are handled per call so one
// failed entry never aborts a batch.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Engine converts caption text into sign-language-oriented interpretations in
// fixed-size batches with a pacing delay between batches.
type Engine struct {
	provider           Provider
	batchSize          int
	batchPause         time.Duration
	callTimeout        time.Duration
	defaultInstruction string
	logger             *slog.Logger

	// sleep is replaceable so tests do not wait out real pacing delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger routes engine diagnostics to the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.NewComponentLogger(logger, "interpretation-engine")
	}
}

// WithCallTimeout bounds each provider call.
func WithCallTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.callTimeout = timeout
		}
	}
}

func withSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

// NewEngine constructs an engine over the given provider using the tunables
// from cfg.
func NewEngine(provider Provider, cfg config.Interpretation, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("generative provider required")
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 3
	}
	instruction := strings.TrimSpace(cfg.DefaultInstruction)
	if instruction == "" {
		instruction = config.DefaultInstruction
	}
	engine := &Engine{
		provider:           provider,
		batchSize:          batchSize,
		batchPause:         time.Duration(cfg.BatchPauseMS) * time.Millisecond,
		callTimeout:        30 * time.Second,
		defaultInstruction: instruction,
		logger:             logging.NewNop(),
		sleep:              sleepContext,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Generate produces one interpretation per caption entry, in caption order.
// A custom instruction overrides the default for the whole run. Per-entry
// provider failures are filled with a marked fallback string so the output
// always has exactly one entry per input caption.
func (e *Engine) Generate(ctx context.Context, set *captions.Set, instruction string) ([]project.InterpretationEntry, error) {
	if set == nil || set.Len() == 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "generate", "caption set is empty", nil)
	}
	instruction = strings.TrimSpace(instruction)
	effective := instruction
	if effective == "" {
		effective = e.defaultInstruction
	}

	entries := set.Entries()
	output := make([]project.InterpretationEntry, len(entries))
	failures := 0

	for start := 0; start < len(entries); start += e.batchSize {
		end := min(start+e.batchSize, len(entries))
		batch := entries[start:end]

		var wg sync.WaitGroup
		for i, entry := range batch {
			wg.Add(1)
			go func(idx int, entry captions.Entry) {
				defer wg.Done()
				output[idx] = e.interpretEntry(ctx, entry, effective, instruction)
			}(start+i, entry)
		}
		wg.Wait()

		for i := start; i < end; i++ {
			if strings.HasPrefix(output[i].LibrasInterpretation, FallbackPrefix) {
				failures++
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrProvider, stageName, "generate", "generation canceled", err)
		}

		// Pace outbound calls between batches; the last batch needs no pause.
		if end < len(entries) && e.batchPause > 0 {
			if err := e.sleep(ctx, e.batchPause); err != nil {
				return nil, services.Wrap(services.ErrProvider, stageName, "generate", "generation canceled", err)
			}
		}
	}

	e.logger.Info("interpretations generated",
		logging.Int("entries", len(output)),
		logging.Int("fallbacks", failures),
	)
	return output, nil
}

// Regenerate produces a fresh interpretation for a single entry with a new
// instruction, leaving its identity and timing untouched. An empty instruction
// is rejected rather than silently falling back to the default.
func (e *Engine) Regenerate(ctx context.Context, entry project.InterpretationEntry, newInstruction string) (project.InterpretationEntry, error) {
	newInstruction = strings.TrimSpace(newInstruction)
	if newInstruction == "" {
		return project.InterpretationEntry{}, services.Wrap(services.ErrValidation, stageName, "regenerate",
			"a custom instruction is required", nil)
	}
	text, err := e.callProvider(ctx, newInstruction, entry.OriginalText)
	if err != nil {
		return project.InterpretationEntry{}, services.Wrap(services.ErrProvider, stageName, "regenerate",
			fmt.Sprintf("could not regenerate entry %s", entry.SubtitleID), err)
	}
	entry.LibrasInterpretation = text
	entry.Instruction = newInstruction
	entry.Stale = false
	return entry, nil
}

func (e *Engine) interpretEntry(ctx context.Context, entry captions.Entry, effective, recorded string) project.InterpretationEntry {
	result := project.InterpretationEntry{
		SubtitleID:   entry.ID,
		StartTime:    entry.StartTime,
		EndTime:      entry.EndTime,
		OriginalText: entry.Text,
		Instruction:  recorded,
	}
	text, err := e.callProvider(ctx, effective, entry.Text)
	if err != nil {
		e.logger.Warn("entry generation failed, using fallback",
			logging.String("subtitle_id", entry.ID),
			logging.Error(err),
		)
		result.LibrasInterpretation = fmt.Sprintf("%s %s", FallbackPrefix, entry.Text)
		return result
	}
	result.LibrasInterpretation = text
	return result
}

func (e *Engine) callProvider(ctx context.Context, instruction, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	prompt := fmt.Sprintf("%s\n\nTexto: %s", instruction, text)
	generated, err := e.provider.Generate(callCtx, prompt)
	if err != nil {
		return "", err
	}
	generated = strings.TrimSpace(generated)
	if generated == "" {
		return "", fmt.Errorf("provider returned empty interpretation")
	}
	return generated, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
