package utils

import (
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Ginzap logs one line per request. The query string is dropped because it
// carries session ids.
func Ginzap(logger *zap.Logger, timeFormat string, utc bool) gin.HandlerFunc {
	return ginzap.GinzapWithConfig(withoutFields(logger, "query"), &ginzap.Config{
		TimeFormat: timeFormat,
		UTC:        utc,
		SkipPaths:  []string{"/health"},
	})
}

// RecoveryWithZap recovers from panics, logs them and answers 500.
func RecoveryWithZap(logger *zap.Logger, stack bool) gin.HandlerFunc {
	return ginzap.RecoveryWithZap(logger, stack)
}

// withoutFields returns a logger that never writes the named fields.
func withoutFields(logger *zap.Logger, keys ...string) *zap.Logger {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return fieldFilterCore{Core: core, drop: drop}
	}))
}

type fieldFilterCore struct {
	zapcore.Core
	drop map[string]struct{}
}

func (c fieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return fieldFilterCore{Core: c.Core.With(c.filter(fields)), drop: c.drop}
}

func (c fieldFilterCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c fieldFilterCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, c.filter(fields))
}

func (c fieldFilterCore) filter(fields []zapcore.Field) []zapcore.Field {
	out := fields[:0:0]
	for _, f := range fields {
		if _, ok := c.drop[f.Key]; !ok {
			out = append(out, f)
		}
	}
	return out
}
