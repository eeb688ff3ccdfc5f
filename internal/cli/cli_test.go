package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/martd/martd-go/pkg/discovery"
	"github.com/martd/martd-go/pkg/discovery/mocks"
	"github.com/martd/martd-go/pkg/log"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "warn")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "channel", "news")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "channel=news")
}

func TestOpenTrace(t *testing.T) {
	trace, err := OpenTrace("", nil, false)
	require.NoError(t, err)
	assert.IsType(t, log.NoopLogger{}, trace.Logger)
	assert.NoError(t, trace.Close())

	path := filepath.Join(t.TempDir(), "trace.mlog")
	var buf bytes.Buffer
	trace, err = OpenTrace(path, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), true)
	require.NoError(t, err)

	trace.Log(log.Event{ClientID: "c1", Category: log.CategoryState, StateChange: &log.StateChangeEvent{NewState: "IN_FLIGHT"}})
	require.NoError(t, trace.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	events, err := log.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Contains(t, buf.String(), "IN_FLIGHT")
}

func noBrowser(t *testing.T) func() (discovery.Browser, error) {
	return func() (discovery.Browser, error) {
		t.Fatal("browser created without -discover")
		return nil, nil
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(context.Background(), ServerOptions{}, noBrowser(t))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:54321", cfg.BaseURL)
}

func TestLoadConfigFileAndOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://from-file:1\nclient_id: kiosk\n"), 0o600))

	cfg, err := LoadConfig(context.Background(), ServerOptions{ConfigFile: path}, noBrowser(t))
	require.NoError(t, err)
	assert.Equal(t, "http://from-file:1", cfg.BaseURL)
	assert.Equal(t, "kiosk", cfg.ClientID)

	cfg, err = LoadConfig(context.Background(), ServerOptions{ConfigFile: path, Server: "http://flag:2", Discover: "any"}, noBrowser(t))
	require.NoError(t, err)
	assert.Equal(t, "http://flag:2", cfg.BaseURL)
}

func TestLoadConfigInvalidServer(t *testing.T) {
	_, err := LoadConfig(context.Background(), ServerOptions{Server: "localhost"}, noBrowser(t))
	assert.Error(t, err)
}

func TestLoadConfigDiscover(t *testing.T) {
	b := mocks.NewMockBrowser(t)
	b.EXPECT().Find(mock.Anything, "").Return(&discovery.Service{
		Instance:  "office",
		Port:      8080,
		Addresses: []string{"10.1.2.3"},
		SubPath:   "/martd/sub",
	}, nil)
	b.EXPECT().Stop().Return()

	cfg, err := LoadConfig(context.Background(), ServerOptions{Discover: "any"}, func() (discovery.Browser, error) { return b, nil })
	require.NoError(t, err)
	assert.Equal(t, "http://10.1.2.3:8080", cfg.BaseURL)
	assert.Equal(t, "/martd/sub", cfg.SubPath)
	assert.Equal(t, "/pub", cfg.PubPath)
}

func TestLoadConfigDiscoverNotFound(t *testing.T) {
	b := mocks.NewMockBrowser(t)
	b.EXPECT().Find(mock.Anything, "lab").Return(nil, discovery.ErrNotFound)
	b.EXPECT().Stop().Return()

	_, err := LoadConfig(context.Background(), ServerOptions{Discover: "lab"}, func() (discovery.Browser, error) { return b, nil })
	assert.ErrorIs(t, err, discovery.ErrNotFound)
}
