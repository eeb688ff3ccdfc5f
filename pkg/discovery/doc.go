// Package discovery finds martd servers on the local network with mDNS/DNS-SD.
//
// Servers advertise the _martd._tcp service type. The instance name is a
// user-friendly server name. TXT records carry:
//
//   - ver: protocol version (currently "1")
//   - sub: poll endpoint path, default /sub
//   - pub: publish endpoint path, default /pub
//
// A Service found by a Browser yields the base URL a client.Config needs.
package discovery
