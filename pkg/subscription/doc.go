// Package subscription implements the client-side channel registry.
//
// The registry maps channel names to their current cache token and the
// callbacks registered for them. It is mutated by Subscribe and Cancel and
// read by the poll loop when it builds the next request.
//
// # Channels
//
// A channel is created by the first subscription to its name and is never
// removed. When its last callback is cancelled the channel stays in the
// registry with its token, so a later subscription resumes where the
// previous one stopped. Channels without callbacks are left out of
// SnapshotActive and therefore out of poll requests.
//
// # Callbacks
//
// Callbacks are keyed by subscription ID and kept in registration order.
// Callbacks returns a copy, so delivery can run without holding the
// registry lock and a callback may subscribe or cancel while it runs.
//
// # Cache Tokens
//
// A token is only replaced through ApplyUpdate with the value echoed by the
// server for that channel. ApplyUpdate on a name the registry has never
// seen returns ErrUnknownChannel and changes nothing.
package subscription
