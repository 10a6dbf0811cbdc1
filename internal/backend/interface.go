package backend

import (
	"context"
	"time"

	"apledger/internal/gateway"
	"apledger/internal/gateway/google"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult is the assembled gateway stack plus whatever must be closed
// when the process exits.
type BackendResult struct {
	Gateway gateway.Gateway
	// Publishing is true when saves are announced over AMQP.
	Publishing bool
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateMirror opens the Google Sheets gateway the worker copies into.
	CreateMirror(ctx context.Context, config Config) (gateway.Gateway, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	FilePath   string
	MemorySeed string
	SQLitePath string
	Sheets     google.Config

	// AMQP is optional; an empty URL disables publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	AMQPAttempts int

	// CacheTTL <= 0 disables the snapshot cache.
	CacheTTL time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
