// Package transport performs single long-poll exchanges against a martd
// server.
//
// A Transport issues one request per Send call and returns a Handle. The
// handle completes exactly once, with the response body, with a connectivity
// error, or flagged as aborted when Abort was called first. Callers never
// need to distinguish an abort from an empty body by looking at the body.
//
//	h := t.Send(ctx, &transport.Request{URL: pollURL})
//	select {
//	case res := <-h.Done():
//	    // res.Aborted, res.Err, res.StatusCode, res.Body
//	case <-newSubscription:
//	    h.Abort() // Done still delivers, with Aborted set
//	}
//
// HTTPTransport is the net/http implementation. Tests use the generated
// mocks in the mocks subpackage or build handles with NewPending.
package transport
