package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jademcosta/logpig/pkg/config"
)

const (
	ComponentKey         = "component"
	ObjStorageTypeKey    = "obj_storage_type"
	NotifierTypeKey      = "notifier_type"
	FileKey              = "file"
	TaskIDKey            = "task_id"
	defaultLogFormatText = "text"
)

func New(conf *config.LogConfig) *slog.Logger {
	return newWithWriter(conf, os.Stderr)
}

// NewDummy returns a logger that discards everything. Useful on tests.
func NewDummy() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newWithWriter(conf *config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(conf.Level),
		AddSource: false,
	}

	var handler slog.Handler
	if strings.ToLower(conf.Format) == defaultLogFormatText {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(level))
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}
