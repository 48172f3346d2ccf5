package testutil

import (
	"io"
	"os"
	"slices"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// Tests log at trace level, but output is only written under go test -v.
func init() {
	logrus.SetLevel(logrus.TraceLevel)
	if !slices.Contains(os.Args, "-test.v=true") {
		logrus.SetOutput(io.Discard)
	}
}

// CaptureLogs records every entry logged through the standard logger until
// the test completes.
func CaptureLogs(t *testing.T) *test.Hook {
	hook := new(test.Hook)
	previous := logrus.StandardLogger().ReplaceHooks(logrus.LevelHooks{})
	logrus.AddHook(hook)
	t.Cleanup(func() {
		logrus.StandardLogger().ReplaceHooks(previous)
	})
	return hook
}

// FindLogEntry returns the first captured entry with the given message.
func FindLogEntry(hook *test.Hook, message string) (*logrus.Entry, bool) {
	for _, entry := range hook.AllEntries() {
		if entry.Message == message {
			return entry, true
		}
	}
	return nil, false
}
