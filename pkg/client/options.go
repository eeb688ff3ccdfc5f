package client

import "github.com/martd/martd-go/pkg/wire"

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	cacheToken string
}

// WithCacheToken seeds the cache token of a channel the client has not seen
// yet, so only messages after token are delivered. It has no effect on a
// channel that already exists.
func WithCacheToken(token string) SubscribeOption {
	return func(o *subscribeOptions) {
		o.cacheToken = token
	}
}

func buildSubscribeOptions(opts []SubscribeOption) subscribeOptions {
	o := subscribeOptions{cacheToken: wire.InitialCacheToken}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cacheToken == "" {
		o.cacheToken = wire.InitialCacheToken
	}
	return o
}
