package observability

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logger     *logrus.Logger
	loggerOnce sync.Once
)

// Logger returns the process-wide structured logger. It is configured from
// LOG_LEVEL and ENV on first use; call Configure to override.
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = newLogger(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("ENV"))
	})
	return logger
}

// Configure replaces the output, level and formatter of the shared logger.
func Configure(out io.Writer, level, env string) *logrus.Logger {
	l := Logger()
	configured := newLogger(out, level, env)
	l.SetOutput(configured.Out)
	l.SetLevel(configured.Level)
	l.SetFormatter(configured.Formatter)
	return l
}

func newLogger(out io.Writer, level, env string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(strings.TrimSpace(env), "production") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}
