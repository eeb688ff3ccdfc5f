package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martd/martd-go/pkg/client"
	"github.com/martd/martd-go/pkg/persistence"
	"github.com/martd/martd-go/pkg/wire"
)

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printer(&buf, "news")(wire.Message(`"hello"`)))
	assert.Equal(t, "news: hello\n", buf.String())
}

func TestLoadState(t *testing.T) {
	store := persistence.NewCursorStore(filepath.Join(t.TempDir(), "cursors.json"))

	cfg := client.DefaultConfig()
	saved, err := loadState(store, &cfg)
	require.NoError(t, err)
	assert.Nil(t, saved)

	require.NoError(t, store.Save(&persistence.CursorState{
		ClientID: "kiosk",
		Server:   cfg.BaseURL,
		Channels: map[string]string{"news": "42"},
	}))

	saved, err = loadState(store, &cfg)
	require.NoError(t, err)
	token, ok := saved.Token("news")
	assert.True(t, ok)
	assert.Equal(t, "42", token)
	assert.Equal(t, "kiosk", cfg.ClientID)

	cfg = client.DefaultConfig()
	cfg.ClientID = "explicit"
	_, err = loadState(store, &cfg)
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.ClientID)

	other := client.DefaultConfig()
	other.BaseURL = "http://elsewhere:1"
	saved, err = loadState(store, &other)
	require.NoError(t, err)
	assert.Nil(t, saved)
	assert.Empty(t, other.ClientID)
}
