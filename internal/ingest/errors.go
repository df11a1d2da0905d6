package ingest

import (
	"errors"
	"fmt"

	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// ErrMalformedRecord is matched by every record-level ingestion failure.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError identifies the record that stopped ingestion.
type MalformedRecordError struct {
	Source telemetry.Source
	Path   string
	Line   int
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("%s: %s:%d (%s): %s", ErrMalformedRecord, e.Path, e.Line, e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrMalformedRecord) succeed.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}
