package bootstrap

import (
	"context"

	"github.com/tidewave/conductor/common/config"
	"github.com/tidewave/conductor/common/db"
	"github.com/tidewave/conductor/common/logger"
	"github.com/tidewave/conductor/common/queue"
	rediscommon "github.com/tidewave/conductor/common/redis"
)

// Components holds all initialized service dependencies
type Components struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.DB
	Redis  *rediscommon.Client
	Queue  queue.Queue

	cleanupFuncs []func() error
}

// addCleanup registers a cleanup function, run in reverse order on Shutdown
func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}

// Shutdown runs all cleanup functions in reverse registration order
func (c *Components) Shutdown(ctx context.Context) {
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			if c.Logger != nil {
				c.Logger.Warn("cleanup failed", "error", err)
			}
		}
	}
}
