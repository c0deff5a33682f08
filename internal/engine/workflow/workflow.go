// Package workflow owns the input-to-image generation state: the current
// input text, whether a generation is in flight, and the last image produced.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"qrgen/internal/engine/qr"
)

const DefaultFilename = "qr-code.png"

type State int

const (
	Idle State = iota
	InFlight
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in_flight"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Encoder interface {
	Encode(ctx context.Context, text string, opts qr.Options) (*qr.Artifact, error)
}

// Recorder receives one Event per settled generation. It is diagnostics
// only: a recording error is logged and otherwise ignored.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event describes a settled generation. It deliberately carries the input
// length, not the input.
type Event struct {
	WorkflowID  string
	Outcome     Outcome
	InputLength int
	Duration    time.Duration
	Err         error
}

// Snapshot is a consistent view of the workflow for a presentation surface.
type Snapshot struct {
	Text        string
	State       State
	Artifact    *qr.Artifact
	CanGenerate bool
	CanDownload bool
}

type Workflow struct {
	id       string
	encoder  Encoder
	opts     qr.Options
	filename string
	recorder Recorder
	logger   zerolog.Logger

	mu       sync.Mutex
	text     string
	state    State
	artifact *qr.Artifact
	current  *Task
}

type Option func(*Workflow)

func WithID(id string) Option {
	return func(w *Workflow) { w.id = id }
}

func WithOptions(opts qr.Options) Option {
	return func(w *Workflow) { w.opts = opts }
}

func WithFilename(name string) Option {
	return func(w *Workflow) {
		if name != "" {
			w.filename = name
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(w *Workflow) { w.recorder = r }
}

func WithLogger(l zerolog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

func New(encoder Encoder, opts ...Option) *Workflow {
	w := &Workflow{
		encoder:  encoder,
		opts:     qr.DefaultOptions(),
		filename: DefaultFilename,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With().Str("workflow", w.id).Logger()
	return w
}

func (w *Workflow) ID() string {
	return w.id
}

// SetInput replaces the input text. An in-flight generation keeps the text it
// was started with.
func (w *Workflow) SetInput(text string) {
	w.mu.Lock()
	w.text = text
	w.mu.Unlock()
}

// LoadExample is SetInput for one of the built-in samples. It never starts a
// generation.
func (w *Workflow) LoadExample(sample string) {
	w.SetInput(sample)
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Snapshot{
		Text:        w.text,
		State:       w.state,
		Artifact:    w.artifact,
		CanGenerate: w.canGenerateLocked(),
		CanDownload: w.artifact != nil,
	}
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) Artifact() *qr.Artifact {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.artifact
}

func (w *Workflow) canGenerateLocked() bool {
	return w.state == Idle && strings.TrimSpace(w.text) != ""
}

// RequestGeneration starts one encoder call for the current text. It returns
// nil without doing anything when the text is blank or a generation is
// already in flight; calls are never queued.
//
// On success the new artifact replaces the old one. On failure the previous
// artifact is kept and the error is only logged and recorded. Either way the
// workflow is Idle again by the time the task's Done channel closes.
func (w *Workflow) RequestGeneration(ctx context.Context) *Task {
	w.mu.Lock()
	if !w.canGenerateLocked() {
		w.mu.Unlock()
		return nil
	}

	taskCtx, cancel := context.WithCancel(ctx)
	task := newTask(w.text, cancel)
	w.state = InFlight
	w.current = task
	w.mu.Unlock()

	go w.run(taskCtx, task)

	return task
}

// Cancel aborts the in-flight generation, if any. The aborted attempt is
// handled like any other failure.
func (w *Workflow) Cancel() bool {
	w.mu.Lock()
	task := w.current
	w.mu.Unlock()

	if task == nil {
		return false
	}
	task.cancel()
	return true
}

func (w *Workflow) run(ctx context.Context, task *Task) {
	start := time.Now()
	artifact, err := w.encode(ctx, task.text)
	elapsed := time.Since(start)

	w.mu.Lock()
	if err == nil {
		w.artifact = artifact
	}
	w.state = Idle
	w.current = nil
	w.mu.Unlock()

	task.cancel()

	ev := Event{
		WorkflowID:  w.id,
		Outcome:     OutcomeSuccess,
		InputLength: len(task.text),
		Duration:    elapsed,
	}
	if err != nil {
		ev.Outcome = OutcomeFailure
		ev.Err = err
		w.logger.Error().Err(err).Int("input_length", ev.InputLength).Msg("qr generation failed")
	} else {
		w.logger.Debug().Dur("duration", elapsed).Int("bytes", len(artifact.PNG)).Msg("qr generated")
	}

	if w.recorder != nil {
		if rerr := w.recorder.Record(context.WithoutCancel(ctx), ev); rerr != nil {
			w.logger.Warn().Err(rerr).Msg("failed to record generation event")
		}
	}

	task.finish(artifact, err)
}

func (w *Workflow) encode(ctx context.Context, text string) (artifact *qr.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			artifact = nil
			err = &qr.EncodingFailure{Reason: fmt.Sprintf("encoder panic: %v", r)}
		}
	}()

	artifact, err = w.encoder.Encode(ctx, text, w.opts)
	if err == nil && artifact == nil {
		err = &qr.EncodingFailure{Reason: "encoder returned no image"}
	}
	return artifact, err
}

// RequestDownload hands the current artifact to saver under the configured
// filename. Without an artifact it does nothing and reports false.
func (w *Workflow) RequestDownload(ctx context.Context, saver Saver) (bool, error) {
	artifact := w.Artifact()
	if artifact == nil {
		return false, nil
	}

	if err := saver.Save(ctx, artifact, w.filename); err != nil {
		return false, fmt.Errorf("save %s: %w", w.filename, err)
	}
	return true, nil
}
