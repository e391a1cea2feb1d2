package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"NewsPerspectives/internal/app"
	"NewsPerspectives/internal/config"
	"NewsPerspectives/internal/logging"
)

type commandContext struct {
	configFlag *string

	once   sync.Once
	cfg    config.Config
	logger *slog.Logger
	app    *app.Application
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) application(ctx context.Context) *app.Application {
	c.once.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.cfg = config.Load(path)
		c.logger = logging.New(c.cfg.Logging.Level)
		c.app = app.New(ctx, c.cfg, c.logger)
	})
	return c.app
}

func (c *commandContext) close() {
	if c.app == nil {
		return
	}
	if err := c.app.Close(); err != nil {
		c.logger.Warn("close application", "error", err)
	}
	c.app = nil
}
