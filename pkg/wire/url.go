package wire

import (
	"net/url"
	"strconv"
	"strings"
)

// BuildPollURL returns the poll URL for req.
// The client ID comes first, followed by the cursors in the order given.
func BuildPollURL(base, path string, req PollRequest) string {
	var b strings.Builder
	b.WriteString(joinPath(base, path))
	b.WriteString("?")
	b.WriteString(ClientIDParam)
	b.WriteString("=")
	b.WriteString(url.QueryEscape(req.ClientID))

	for _, c := range req.Cursors {
		token := c.CacheToken
		if token == "" {
			token = InitialCacheToken
		}
		b.WriteString("&")
		b.WriteString(url.QueryEscape(c.Channel))
		b.WriteString("=")
		b.WriteString(url.QueryEscape(token))
	}

	return b.String()
}

// BuildPublishURL returns the publish URL for channel.
func BuildPublishURL(base, path, channel string, params PublishParams) string {
	q := url.Values{}
	q.Set("channel", channel)
	if params.Size > 0 {
		q.Set("size", strconv.FormatUint(uint64(params.Size), 10))
	}
	if params.Life > 0 {
		q.Set("life", strconv.FormatInt(int64(params.Life), 10))
	}
	if params.One2One {
		q.Set("one2one", "true")
	}
	if params.Key != "" {
		q.Set("key", params.Key)
	}
	return joinPath(base, path) + "?" + q.Encode()
}

// ParsePollQuery extracts the client ID and cursors from a poll query string.
// Cursors are returned sorted by channel name.
func ParsePollQuery(values url.Values) PollRequest {
	req := PollRequest{ClientID: values.Get(ClientIDParam)}
	for name := range values {
		if name == ClientIDParam {
			continue
		}
		req.Cursors = append(req.Cursors, Cursor{Channel: name, CacheToken: values.Get(name)})
	}
	sortCursors(req.Cursors)
	return req
}

func joinPath(base, path string) string {
	if path == "" {
		return strings.TrimRight(base, "/")
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
