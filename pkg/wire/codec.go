package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

type rawResponse struct {
	Channels map[string]json.RawMessage `json:"channels"`
	Error    string                     `json:"error"`
}

type rawChannel struct {
	Etag    json.RawMessage   `json:"etag"`
	Payload []json.RawMessage `json:"payload"`
}

// ParseResponse parses a poll response body.
//
// The whole body is validated before anything is returned, so a response
// is either fully usable or rejected. An empty body yields ErrEmptyBody,
// a rejection from the server a *ServerError and anything else that does
// not have the expected shape a *ParseError.
func ParseResponse(body []byte) (*PollResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrEmptyBody
	}
	if trimmed[0] != '{' {
		return nil, &ParseError{Body: body, Cause: ErrNotObject}
	}

	var raw rawResponse
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &ParseError{Body: body, Cause: err}
	}
	if raw.Error != "" {
		return nil, &ServerError{Message: raw.Error}
	}

	resp := &PollResponse{Channels: make(map[string]ChannelUpdate, len(raw.Channels))}
	for name, entry := range raw.Channels {
		update, err := parseChannel(entry)
		if err != nil {
			return nil, &ParseError{Body: body, Channel: name, Cause: err}
		}
		resp.Channels[name] = update
	}

	return resp, nil
}

func parseChannel(entry json.RawMessage) (ChannelUpdate, error) {
	trimmed := bytes.TrimSpace(entry)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ChannelUpdate{}, ErrNotObject
	}

	var raw rawChannel
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return ChannelUpdate{}, err
	}

	token, err := parseToken(raw.Etag)
	if err != nil {
		return ChannelUpdate{}, err
	}

	update := ChannelUpdate{
		CacheToken: token,
		Payload:    make([]Message, 0, len(raw.Payload)),
	}
	for _, item := range raw.Payload {
		update.Payload = append(update.Payload, Message(item))
	}
	return update, nil
}

// parseToken accepts a JSON string or number. Numbers are kept as written.
func parseToken(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", ErrMissingToken
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		if s == "" {
			return "", ErrMissingToken
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidToken, raw)
	}
}

type publishResponse struct {
	Etag  json.RawMessage `json:"etag"`
	Error string          `json:"error"`
}

// ParsePublishResponse returns the cache token of a published message.
func ParsePublishResponse(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", ErrEmptyBody
	}
	if trimmed[0] != '{' {
		return "", &ParseError{Body: body, Cause: ErrNotObject}
	}

	var raw publishResponse
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return "", &ParseError{Body: body, Cause: err}
	}
	if raw.Error != "" {
		return "", &ServerError{Message: raw.Error}
	}

	token, err := parseToken(raw.Etag)
	if err != nil {
		return "", &ParseError{Body: body, Cause: err}
	}
	return token, nil
}

// EncodeResponse encodes resp in the server's response format.
func EncodeResponse(resp *PollResponse) ([]byte, error) {
	return json.Marshal(resp)
}

// EncodeError encodes a rejection in the server's response format.
func EncodeError(message string) ([]byte, error) {
	return json.Marshal(rawResponse{Error: message})
}

func sortCursors(cursors []Cursor) {
	sort.Slice(cursors, func(i, j int) bool {
		return cursors[i].Channel < cursors[j].Channel
	})
}
