// Package wire defines the long-poll wire format spoken with a martd server.
//
// # Poll Request
//
// A poll is a single GET carrying the client ID and one query parameter per
// active channel whose value is the last cache token seen for that channel:
//
//	GET /sub?cid=<client-id>&news=1712345&chat=0
//
// A channel that has never received data is sent with InitialCacheToken.
//
// # Poll Response
//
// The server holds the request until at least one channel has data newer
// than the supplied token, then answers with a JSON object:
//
//	{"channels": {"news": {"etag": "1712399", "payload": ["a", "b"]}}}
//
// Payload items are opaque to this package and are forwarded verbatim as
// Message values. A rejected request carries {"error": "..."} instead.
//
// # Publish
//
// Publishing is a POST of the raw message body to /pub with the channel and
// retention settings in the query string. The server answers {"etag": "..."}.
package wire
