package app

import (
	"time"

	"github.com/bft-labs/logjam/internal/domain"
)

// SendEventEmitter is called on send success or failure.
type SendEventEmitter interface {
	OnSendSuccess(key domain.Key, count int, duration time.Duration)
	OnSendError(key domain.Key, err error, count int)
}

// ConfigErrorEmitter is called when a controller collects a configuration error.
type ConfigErrorEmitter interface {
	OnConfigError(key domain.Key, err error)
}
