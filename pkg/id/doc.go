// Package id generates the opaque identifiers used by a long-poll client.
//
// The server treats both kinds of identifier as correlation tokens and never
// interprets their contents:
//   - Client IDs are random UUIDs, generated once per client and sent as the
//     cid query parameter on every poll.
//   - Subscription IDs are ULIDs, generated on every Subscribe call. They are
//     lexically sortable in creation order within a process, which makes log
//     output easy to follow.
package id
