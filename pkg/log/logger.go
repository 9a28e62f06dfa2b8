package log

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// slog の既定キーを Cloud Logging の名前に合わせる。
var renamedKeys = map[string]string{
	slog.LevelKey:   "severity",
	slog.MessageKey: "message",
}

func renameAttr(_ []string, attr slog.Attr) slog.Attr {
	if k, ok := renamedKeys[attr.Key]; ok {
		attr.Key = k
	}
	return attr
}

// SetupLogger points both slog's default logger and the global provider at
// stderr with the given level name. Call it once, after validating the name.
func SetupLogger(levelName string) {
	level := ToLogLevel(levelName)
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.Level(level),
		ReplaceAttr: renameAttr,
	})
	slog.SetDefault(slog.New(WrapByErrFmtHandler(h)))
	SetProvider(NewZerologProvider(level))
}

// ToLogLevel panics on a name other than debug, info, warn or error.
func ToLogLevel(name string) Level {
	for l, s := range levelNames {
		if s == strings.ToUpper(name) {
			return l
		}
	}
	panic(fmt.Sprintf("invalid log level :%s", name))
}

// ErrAttr passes err to slog under the key ErrFmtHandler inspects.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
