package discovery

import (
	"context"
	"fmt"
	"time"
)

// Browser finds martd servers.
type Browser interface {
	// Browse streams servers as they are found. The channel is closed when
	// ctx is done.
	Browse(ctx context.Context) (<-chan *Service, error)

	// Find returns the server called instance, or the first server found if
	// instance is empty.
	Find(ctx context.Context, instance string) (*Service, error)

	// Stop stops all active browsing operations.
	Stop()
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout bounds Find when ctx has no deadline.
	// Default: 5 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
	}
}

// Resolve finds the server called instance and returns its base URL and
// endpoint paths.
func Resolve(ctx context.Context, b Browser, instance string) (baseURL, subPath, pubPath string, err error) {
	svc, err := b.Find(ctx, instance)
	if err != nil {
		if instance == "" {
			return "", "", "", fmt.Errorf("no martd server found: %w", err)
		}
		return "", "", "", fmt.Errorf("martd server %q: %w", instance, err)
	}
	return svc.BaseURL(), svc.SubPathOrDefault(), svc.PubPathOrDefault(), nil
}
