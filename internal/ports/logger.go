package ports

import "github.com/bft-labs/logjam/pkg/log"

// Logger is the logging port used by the application layer.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// NewNoopLogger returns a logger that discards everything.
var NewNoopLogger = log.NewNoopLogger

// Field constructors re-exported for the application layer.
var (
	String   = log.String
	Stringer = log.Stringer
	Strings  = log.Strings
	Int      = log.Int
	Int64    = log.Int64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
	With     = log.With
)
