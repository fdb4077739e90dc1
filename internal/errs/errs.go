// Package errs defines the typed errors raised while synthesizing and
// persisting records. Callers inspect them with errors.As / errors.Is.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindUnsupportedType Kind = "unsupported_type"
	KindChunkGeneration Kind = "chunk_generation_failed"
	KindSinkWrite       Kind = "sink_write_failed"
	KindRetryExhausted  Kind = "retry_exhausted"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrNotFound         = errors.New("not found")
	ErrInvalidTableName = errors.New("invalid table name")
	ErrNoArtifacts      = errors.New("no file artifacts to upload")
	ErrNotConfigured    = errors.New("sink not configured")
)

// ValidationError rejects a request before it is queued.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Kind() Kind { return KindValidation }

// UnsupportedTypeError is raised for a field whose declared type has no generator.
type UnsupportedTypeError struct {
	Field string
	Type  string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported field type %q for field %q", e.Type, e.Field)
}

func (e *UnsupportedTypeError) Kind() Kind { return KindUnsupportedType }

// ChunkGenerationError reports a failure while synthesizing one chunk.
type ChunkGenerationError struct {
	Chunk int
	Err   error
}

func (e *ChunkGenerationError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Chunk, e.Err)
}

func (e *ChunkGenerationError) Unwrap() error { return e.Err }

func (e *ChunkGenerationError) Kind() Kind { return KindChunkGeneration }

// SinkWriteError reports a failure writing to one sink.
type SinkWriteError struct {
	Sink string
	Err  error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("%s write failed: %v", e.Sink, e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }

func (e *SinkWriteError) Kind() Kind { return KindSinkWrite }

// RetryExhaustedError wraps the last error once every attempt has failed.
type RetryExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

func (e *RetryExhaustedError) Kind() Kind { return KindRetryExhausted }

// KindOf returns the category of the outermost typed error in err's chain.
func KindOf(err error) Kind {
	var k interface{ Kind() Kind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// Describe returns the most specific message available for err. An
// UnsupportedTypeError anywhere in the chain is surfaced verbatim.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var unsupported *UnsupportedTypeError
	if errors.As(err, &unsupported) {
		return unsupported.Error()
	}
	return err.Error()
}

// IsPermanent reports whether retrying err cannot help.
func IsPermanent(err error) bool {
	var unsupported *UnsupportedTypeError
	var invalid *ValidationError
	return errors.As(err, &unsupported) || errors.As(err, &invalid) ||
		errors.Is(err, ErrNoArtifacts) || errors.Is(err, ErrNotConfigured)
}
