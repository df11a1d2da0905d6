// Package ingest reads JSONL telemetry files into events. Any unusable record
// aborts the load: there is no skip or partial-result mode.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/telhawk-systems/telhawk-correlate/internal/logging"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 4 * 1024 * 1024

// SourceFile pairs a telemetry source with the file holding its records.
type SourceFile struct {
	Source telemetry.Source
	Path   string
}

// FileName returns the conventional file name for a source.
func FileName(s telemetry.Source) string {
	return string(s) + ".jsonl"
}

// Discover returns the source files that exist under dir, in source
// declaration order. Missing files are not an error.
func Discover(dir string) ([]SourceFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data directory %s is not a directory", dir)
	}

	var files []SourceFile
	for _, s := range telemetry.Sources() {
		path := filepath.Join(dir, FileName(s))
		if _, err := os.Stat(path); err == nil {
			files = append(files, SourceFile{Source: s, Path: path})
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return files, nil
}

// Loader reads source files into events.
type Loader struct {
	logger *logging.Logger
}

// NewLoader creates a Loader. A nil logger discards output.
func NewLoader(logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Loader{logger: logger}
}

// LoadAll reads every file and returns the events sorted ascending by time.
// The first malformed record fails the whole load.
func (l *Loader) LoadAll(ctx context.Context, files []SourceFile) ([]*telemetry.Event, error) {
	var events []*telemetry.Event
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loaded, err := l.LoadFile(f)
		if err != nil {
			return nil, err
		}
		l.logger.InfoContext(ctx, "loaded telemetry",
			logging.Source(string(f.Source)),
			logging.Path(f.Path),
			logging.Count(len(loaded)),
		)
		events = append(events, loaded...)
	}
	telemetry.SortByTime(events)
	return events, nil
}

// LoadFile reads one JSONL file.
func (l *Loader) LoadFile(f SourceFile) ([]*telemetry.Event, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer fh.Close()

	return Decode(fh, f)
}

// Decode parses JSONL records from r. f labels the records and any error.
func Decode(r io.Reader, f SourceFile) ([]*telemetry.Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var events []*telemetry.Event
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		payload, err := decodeObject(raw)
		if err != nil {
			return nil, &MalformedRecordError{Source: f.Source, Path: f.Path, Line: line, Reason: "invalid JSON object", Err: err}
		}

		ts, err := ExtractTimestamp(payload)
		if err != nil {
			return nil, &MalformedRecordError{Source: f.Source, Path: f.Path, Line: line, Reason: "no usable timestamp", Err: err}
		}

		events = append(events, &telemetry.Event{
			Source:    f.Source,
			Timestamp: ts,
			Payload:   payload,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	return events, nil
}

// decodeObject keeps numbers as json.Number so numeric IDs keep their text.
func decodeObject(raw []byte) (telemetry.Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("record is null")
	}
	if dec.More() {
		return nil, errors.New("trailing data after object")
	}
	return telemetry.Payload(payload), nil
}
