package logs

import (
	"io"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"

	"github.com/Rajat-malhotra0/draw-agent/internal/config"
)

// New builds the process logger. Output goes to stdout, pretty-printed in
// development, and additionally to a rotating file when LOG_FILE is set.
func New(cfg *config.Config) zerolog.Logger {
	level := parseLogLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)

	var writers []io.Writer

	if cfg.IsDevelopment() {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		writers = append(writers, os.Stdout)
	}

	if cfg.LogFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAge,
			Compress:   true,
		})
	}

	return zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
}

func parseLogLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(levelStr) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
