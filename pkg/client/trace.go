package client

import (
	"time"

	"github.com/martd/martd-go/pkg/log"
	"github.com/martd/martd-go/pkg/transport"
	"github.com/martd/martd-go/pkg/wire"
)

// emit stamps and records a protocol event.
func (c *Client) emit(ev log.Event) {
	ev.Timestamp = time.Now()
	ev.ClientID = c.clientID
	ev.Server = c.config.BaseURL
	c.protoLog.Log(ev)
}

func (c *Client) tracePoll(seq uint64, url string, cursors []wire.Cursor) {
	out := make([]log.Cursor, len(cursors))
	for i, cur := range cursors {
		out[i] = log.Cursor{Channel: cur.Channel, CacheToken: cur.CacheToken}
	}
	c.emit(log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerTransport,
		Category:  log.CategoryPoll,
		Sequence:  seq,
		Poll: &log.PollEvent{
			URL:     url,
			Cursors: out,
		},
	})
}

func (c *Client) traceResult(seq uint64, res transport.Result, resp *wire.PollResponse) {
	ev := &log.PollEvent{
		StatusCode: res.StatusCode,
		Size:       len(res.Body),
		Duration:   res.Duration,
		Aborted:    res.Aborted,
	}
	if resp != nil {
		for _, name := range resp.ChannelNames() {
			ev.Channels = append(ev.Channels, log.Cursor{
				Channel:    name,
				CacheToken: resp.Channels[name].CacheToken,
			})
		}
		ev.Messages = resp.MessageCount()
	}
	c.emit(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerTransport,
		Category:  log.CategoryPoll,
		Sequence:  seq,
		Poll:      ev,
	})
}

func (c *Client) traceState(sc stateChange) {
	c.emit(log.Event{
		Layer:    log.LayerClient,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: sc.old.String(),
			NewState: sc.new.String(),
			Reason:   sc.reason,
		},
	})
}

func (c *Client) traceError(seq uint64, layer log.Layer, kind log.ErrorKind, err error, channel, subID string, body []byte, status int) {
	data := &log.ErrorEventData{
		Layer:          layer,
		Kind:           kind,
		Message:        err.Error(),
		Channel:        channel,
		SubscriptionID: subID,
	}
	if len(body) > 0 {
		data.Body, data.Truncated = log.CaptureBody(body)
	}
	if status != 0 {
		data.Code = &status
	}
	c.emit(log.Event{
		Direction: log.DirectionIn,
		Layer:     layer,
		Category:  log.CategoryError,
		Sequence:  seq,
		Error:     data,
	})
}
