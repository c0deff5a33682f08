package workflow

import (
	"context"
	"os"
	"path/filepath"

	"qrgen/internal/engine/qr"
)

// Saver hands an artifact to the host's file-save mechanism.
type Saver interface {
	Save(ctx context.Context, artifact *qr.Artifact, filename string) error
}

type SaverFunc func(ctx context.Context, artifact *qr.Artifact, filename string) error

func (f SaverFunc) Save(ctx context.Context, artifact *qr.Artifact, filename string) error {
	return f(ctx, artifact, filename)
}

// FileSaver writes artifacts into Dir, replacing any file with the same name.
type FileSaver struct {
	Dir string
}

func (s FileSaver) Save(ctx context.Context, artifact *qr.Artifact, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, filepath.Base(filename)), artifact.PNG, 0644)
}
