package testutils

import (
	"testing"

	"github.com/sirupsen/logrus"
)

type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
}

// NewTestHelper creates a test helper whose logger writes through t.Log.
func NewTestHelper(t *testing.T) *TestHelper {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetOutput(testWriter{t: t})
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return &TestHelper{
		T:      t,
		Logger: logger,
	}
}

// NewSilentLogger returns a logger that only emits panics.
func NewSilentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
