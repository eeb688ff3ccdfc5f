package client

import (
	"fmt"

	"github.com/martd/martd-go/pkg/log"
	"github.com/martd/martd-go/pkg/subscription"
	"github.com/martd/martd-go/pkg/wire"
)

// deliver hands every payload item of resp to the callbacks of its channel
// and advances the channel's cache token.
func (c *Client) deliver(seq uint64, resp *wire.PollResponse) {
	for _, name := range resp.ChannelNames() {
		update := resp.Channels[name]

		ch, ok := c.registry.Lookup(name)
		if !ok {
			if c.logger != nil {
				c.logger.Warn("poll response names unknown channel",
					"seq", seq,
					"channel", name,
					"etag", update.CacheToken,
					"messages", len(update.Payload))
			}
			c.traceError(seq, log.LayerWire, log.ErrorKindUnknownChannel,
				subscription.ErrUnknownChannel, name, "", nil, 0)
			continue
		}

		callbacks := len(c.registry.Callbacks(ch))
		failures := 0
		for _, msg := range update.Payload {
			c.messages.Add(1)
			// Callbacks are looked up per item so a cancelled subscription
			// gets nothing more, even from the current response.
			for _, entry := range c.registry.Callbacks(ch) {
				if err := c.invoke(seq, name, entry, msg); err != nil {
					failures++
				}
			}
		}

		if err := c.registry.ApplyUpdate(name, update.CacheToken); err != nil {
			if c.logger != nil {
				c.logger.Warn("cache token not stored", "channel", name, "error", err)
			}
			continue
		}

		c.emit(log.Event{
			Direction: log.DirectionIn,
			Layer:     log.LayerClient,
			Category:  log.CategoryDelivery,
			Sequence:  seq,
			Delivery: &log.DeliveryEvent{
				Channel:    name,
				CacheToken: update.CacheToken,
				Messages:   len(update.Payload),
				Callbacks:  callbacks,
				Failures:   failures,
			},
		})
	}
}

// invoke runs one callback, turning a returned error or a panic into a
// *CallbackError that is logged.
func (c *Client) invoke(seq uint64, channel string, entry subscription.Entry, msg wire.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCallbackPanic, r)
		}
		if err == nil {
			return
		}

		cbErr := &CallbackError{
			Channel:        channel,
			SubscriptionID: entry.ID,
			Payload:        msg.Bytes(),
			Err:            err,
		}
		if c.logger != nil {
			c.logger.Error("callback failed",
				"channel", channel,
				"subscription_id", entry.ID,
				"payload", msg.Text(),
				"error", err)
		}
		c.traceError(seq, log.LayerClient, log.ErrorKindCallback, err, channel, entry.ID, msg.Bytes(), 0)
		err = cbErr
	}()

	c.callbacks.Add(1)
	return entry.Callback(msg)
}
