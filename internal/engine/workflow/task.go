package workflow

import (
	"context"

	"qrgen/internal/engine/qr"
)

// Task is the pending result of one RequestGeneration call.
type Task struct {
	done     chan struct{}
	cancel   context.CancelFunc
	text     string
	artifact *qr.Artifact
	err      error
}

func newTask(text string, cancel context.CancelFunc) *Task {
	return &Task{
		done:   make(chan struct{}),
		cancel: cancel,
		text:   text,
	}
}

func (t *Task) finish(artifact *qr.Artifact, err error) {
	t.artifact = artifact
	t.err = err
	close(t.done)
}

// Text is the input captured when the task started.
func (t *Task) Text() string {
	return t.text
}

// Done is closed once the encoder has settled and the workflow is Idle again.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task settles or ctx ends. It returns the encoder
// error, if any, or ctx.Err() when the wait itself was abandoned.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Artifact is nil until the task succeeds.
func (t *Task) Artifact() *qr.Artifact {
	select {
	case <-t.done:
		return t.artifact
	default:
		return nil
	}
}

func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}
