package bootstrap

import (
	"github.com/tidewave/conductor/common/config"
	"github.com/tidewave/conductor/common/db"
	"github.com/tidewave/conductor/common/logger"
)

// Option customizes component setup
type Option func(*options)

type options struct {
	skipDB       bool
	skipRedis    bool
	skipQueue    bool
	customConfig *config.Config
	customLogger *logger.Logger
	dbInitHook   func(*db.DB) error
}

func defaultOptions() *options {
	return &options{}
}

// WithoutDB skips database initialization
func WithoutDB() Option {
	return func(o *options) { o.skipDB = true }
}

// WithoutRedis skips Redis initialization
func WithoutRedis() Option {
	return func(o *options) { o.skipRedis = true }
}

// WithoutQueue skips queue initialization
func WithoutQueue() Option {
	return func(o *options) { o.skipQueue = true }
}

// WithConfig injects a pre-built configuration (tests)
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.customConfig = cfg }
}

// WithLogger injects a pre-built logger (tests)
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.customLogger = log }
}

// WithDBInitHook runs fn right after the database connects (migrations)
func WithDBInitHook(fn func(*db.DB) error) Option {
	return func(o *options) { o.dbInitHook = fn }
}
