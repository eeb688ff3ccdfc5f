package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martd/martd-go/internal/testserver"
)

func TestMessageBody(t *testing.T) {
	body, err := messageBody([]string{"hello"}, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	body, err = messageBody(nil, strings.NewReader("from stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", string(body))
}

func TestRunPublishes(t *testing.T) {
	srv := testserver.New()
	hs := httptest.NewServer(srv)
	defer hs.Close()

	config = Config{
		Server:   hs.URL,
		Size:     3,
		Life:     time.Minute,
		Timeout:  5 * time.Second,
		LogLevel: "warn",
	}

	etag, err := run(context.Background(), "news", []byte("hello"))
	require.NoError(t, err)
	assert.NotEqual(t, "0", etag)

	chans := srv.Channels()
	require.Len(t, chans, 1)
	assert.Equal(t, "news", chans[0].Name)
	assert.Equal(t, uint(3), chans[0].Size)
	assert.Equal(t, etag, chans[0].Etag)
}

func TestRunRejectsBadServer(t *testing.T) {
	config = Config{Server: "not a url", Timeout: time.Second, LogLevel: "warn"}
	_, err := run(context.Background(), "news", []byte("x"))
	assert.Error(t, err)
}
