package core

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logmonitor/internal/config"
	"logmonitor/internal/outputlane"
)

func newTestCore(t *testing.T, settings *config.Settings) *Core {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	lane := outputlane.New(io.Discard)

	c, err := New(settings, lane, logger)
	require.NoError(t, err)
	return c
}

func TestNew_BuildsOneFollowerPerSource(t *testing.T) {
	settings := &config.Settings{
		Sources: []config.SourceConfig{
			{Type: config.SourceTypeFile, File: &config.FileSourceConfig{Directory: t.TempDir(), Filter: "*"}},
			{
				Type: config.SourceTypeEventLog,
				EventLog: &config.EventLogSourceConfig{
					Channels: []config.ChannelConfig{{Name: "Application", Level: "Error"}},
				},
			},
		},
	}

	c := newTestCore(t, settings)
	assert.Len(t, c.followers, 2)
	assert.Equal(t, "file", c.followers[0].sourceType)
	assert.Equal(t, "event_log", c.followers[1].sourceType)
}

func TestNew_RejectsUnknownSourceType(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	lane := outputlane.New(io.Discard)

	settings := &config.Settings{
		Sources: []config.SourceConfig{{Type: "not-a-real-type"}},
	}

	_, err := New(settings, lane, logger)
	assert.Error(t, err)
}

func TestNew_RejectsMalformedProvider(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	lane := outputlane.New(io.Discard)

	settings := &config.Settings{
		Sources: []config.SourceConfig{{
			Type: config.SourceTypeTrace,
			Trace: &config.TraceSourceConfig{
				Providers: []config.ProviderConfig{{GUID: "not-a-guid"}},
			},
		}},
	}

	_, err := New(settings, lane, logger)
	assert.Error(t, err)
}

func TestRunAndShutdown_StopsAllFollowersWithinGrace(t *testing.T) {
	settings := &config.Settings{
		Sources: []config.SourceConfig{
			{Type: config.SourceTypeFile, File: &config.FileSourceConfig{Directory: t.TempDir(), Filter: "*"}},
		},
	}
	c := newTestCore(t, settings)

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(context.Background()) }()

	// Give Run a moment to start followers before tearing down.
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Shutdown(ctx)

	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestShutdown_NoopBeforeRun(t *testing.T) {
	settings := &config.Settings{
		Sources: []config.SourceConfig{
			{Type: config.SourceTypeFile, File: &config.FileSourceConfig{Directory: t.TempDir(), Filter: "*"}},
		},
	}
	c := newTestCore(t, settings)

	assert.NotPanics(t, func() {
		c.Shutdown(context.Background())
	})
}
