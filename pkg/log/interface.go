// Package log は実験ランの構造化ログを提供する。
//
// 各コンポーネントはグローバルプロバイダから名前付きロガーを取得し、
// fold 番号・構成番号・ステージ名をフィールドとして付ける。既定の実装は
// zerolog の JSON 出力で、フィールドは slog と同じ key, value の交互列で渡す。
//
//	logger := log.GetLoggerWithName("evaluation").With(log.RunIDKey, runID)
//	logger.Info("fold scored", log.FoldKey, 2, log.DurationMsKey, 12)
package log

import "context"

// Logger is the logging surface every component depends on. An error field
// value is written as a structured object when it implements
// zerolog.LogObjectMarshaler and as its message otherwise.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a child logger carrying fields on every record.
	With(fields ...any) Logger

	Enabled(ctx context.Context, level Level) bool
}

// Level uses the slog.Level numbering.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "UNKNOWN"
}

// LoggerProvider hands out loggers sharing one sink and level.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}
