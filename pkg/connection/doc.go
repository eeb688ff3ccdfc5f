// Package connection provides poll loop states and retry backoff.
//
// # States
//
// A client's poll loop is always in one of these states:
//
//	IDLE             no request issued yet
//	IN_FLIGHT        one poll request outstanding
//	RESTART_PENDING  the outstanding request is being aborted so a new
//	                 subscription can be included at once
//	BACKOFF          waiting out the retry delay after a failed poll
//	CLOSED           the client has been closed
//
// # Retry Strategy
//
// A failed poll is retried after a fixed delay of one second, without
// limit and without jitter:
//
//	1s, 1s, 1s, ...
//
// A successful poll resets the backoff. Growth and jitter are available
// through BackoffConfig:
//
//	actual_delay = base_delay + random(0, base_delay * jitter)
//
// A poll aborted to pick up a new subscription is not a failure and does
// not advance the backoff.
package connection
