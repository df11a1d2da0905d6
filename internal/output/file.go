package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// FileSink writes the alert array of each run to a JSON file, replacing any
// previous content.
type FileSink struct {
	path string
}

// NewFileSink creates a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Name implements Sink.
func (s *FileSink) Name() string { return "file" }

// Path returns the destination file.
func (s *FileSink) Path() string { return s.path }

// Write implements Sink. The file is written to a temporary sibling and
// renamed so readers never see a partial document.
func (s *FileSink) Write(_ context.Context, run Run, findings []*telemetry.Finding) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteJSON(tmp, Project(run.ID, findings)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode alerts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// Close implements Sink.
func (s *FileSink) Close() error { return nil }
