// Package client implements a long-polling martd subscriber.
//
// A Client multiplexes subscriptions to any number of channels over one
// outstanding poll request. The request names every channel that has at
// least one callback together with the last cache token the client holds
// for it; the server answers with the messages published after that token.
//
// # Poll Loop
//
// The first Subscribe starts the loop. Each response is demultiplexed to
// the callbacks of the channels it names, the cache tokens are advanced
// and the next poll is issued at once. A Subscribe while a poll is
// outstanding aborts it so the new channel is included without waiting
// for the long poll to finish. A failed poll is retried after the backoff
// delay, one second by default, without limit.
//
//	c, err := client.New(cfg)
//	h, err := c.Subscribe("news", func(msg wire.Message) error {
//	    fmt.Println(msg.Text())
//	    return nil
//	})
//	defer h.Cancel()
//
// # Delivery
//
// Callbacks run on the loop goroutine, one at a time, in registration
// order. A callback that returns an error or panics is logged and does not
// affect other callbacks. Delivery is at least once relative to the last
// cache token received, so callbacks should tolerate duplicates.
package client
