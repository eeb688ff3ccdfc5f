package discovery_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/martd/martd-go/pkg/discovery"
	"github.com/martd/martd-go/pkg/discovery/mocks"
)

func TestResolve(t *testing.T) {
	b := mocks.NewMockBrowser(t)
	b.EXPECT().Find(mock.Anything, "office").Return(&discovery.Service{
		Instance:  "office",
		Port:      54321,
		Addresses: []string{"192.168.1.20"},
		PubPath:   "/martd/pub",
	}, nil)

	base, sub, pub, err := discovery.Resolve(context.Background(), b, "office")
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.20:54321", base)
	assert.Equal(t, "/sub", sub)
	assert.Equal(t, "/martd/pub", pub)
}

func TestResolveNotFound(t *testing.T) {
	b := mocks.NewMockBrowser(t)
	b.EXPECT().Find(mock.Anything, "").Return(nil, discovery.ErrNotFound)

	_, _, _, err := discovery.Resolve(context.Background(), b, "")
	assert.ErrorIs(t, err, discovery.ErrNotFound)
	assert.Contains(t, err.Error(), "no martd server found")
}
