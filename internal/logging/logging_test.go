package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForWithoutLoggerReturnsDefault(t *testing.T) {
	entry := For(context.Background())
	require.NotNil(t, entry)
	assert.Same(t, defaultLogger, entry.Logger)
}

func TestNewContextWithFieldsAccumulates(t *testing.T) {
	ctx := NewContextWithFields(context.Background(), logrus.Fields{"run": "01H"})
	ctx = NewContextWithFields(ctx, logrus.Fields{"type": "stories"})

	entry := For(ctx)
	assert.Equal(t, "01H", entry.Data["run"])
	assert.Equal(t, "stories", entry.Data["type"])
}

func TestChildFieldsDoNotLeakToParent(t *testing.T) {
	parent := NewContextWithFields(context.Background(), logrus.Fields{"run": "01H"})
	_ = NewContextWithFields(parent, logrus.Fields{"resource": 7})

	_, ok := For(parent).Data["resource"]
	assert.False(t, ok)
}

func TestForWritesThroughDefaultLogger(t *testing.T) {
	hook := test.NewLocal(defaultLogger)
	defer hook.Reset()

	prev := defaultLogger.GetLevel()
	defaultLogger.SetLevel(logrus.InfoLevel)
	defer defaultLogger.SetLevel(prev)

	ctx := NewContextWithFields(context.Background(), logrus.Fields{"type": "assets"})
	For(ctx).Info("batch finished")

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "batch finished", hook.LastEntry().Message)
	assert.Equal(t, "assets", hook.LastEntry().Data["type"])
}

func TestConfigureRejectsUnknownLevel(t *testing.T) {
	closer, err := Configure(Options{Level: "loud"})
	require.Error(t, err)
	assert.NotNil(t, closer)
}

func TestConfigureVerboseAndFile(t *testing.T) {
	prevLevel := defaultLogger.GetLevel()
	prevOut := defaultLogger.Out
	prevFormatter := defaultLogger.Formatter
	defer func() {
		defaultLogger.SetLevel(prevLevel)
		defaultLogger.SetOutput(prevOut)
		defaultLogger.SetFormatter(prevFormatter)
	}()

	path := filepath.Join(t.TempDir(), "restore.log")
	closer, err := Configure(Options{Level: "warn", Verbose: true, File: path})
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, defaultLogger.GetLevel())
	For(context.Background()).Debug("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}
