package ffhandle

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console logger writing to stderr at level. It is a
// convenience for tools; any *zap.Logger can be set in Options.Logger.
func NewLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = level > zapcore.DebugLevel
	return cfg.Build()
}

func (c *Context) logGrowth(what string, oldCap, newCap int) {
	c.log.Debug("grew "+what,
		zap.Int("old_capacity", oldCap),
		zap.Int("new_capacity", newCap),
	)
}
