package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/martd/martd-go/pkg/wire"
)

// Service discovery constants.
const (
	// ServiceType is the DNS-SD service type of martd servers.
	ServiceType = "_martd._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultPort is the port martd listens on by default.
	DefaultPort = 54321

	// ProtocolVersion is the wire protocol version advertised in TXT records.
	ProtocolVersion = "1"

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// BrowseTimeout is the default time to wait for a server to answer.
	BrowseTimeout = 5 * time.Second
)

// TXT record keys.
const (
	TXTKeyVersion = "ver"
	TXTKeySubPath = "sub"
	TXTKeyPubPath = "pub"
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrUnsupportedVersion  = errors.New("unsupported protocol version")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
)

// ServerInfo is what a martd server advertises about itself.
type ServerInfo struct {
	// Instance is the user-friendly server name.
	Instance string

	// Port is the HTTP port (default: DefaultPort).
	Port uint16

	// SubPath is the poll endpoint (default: /sub).
	SubPath string

	// PubPath is the publish endpoint (default: /pub).
	PubPath string
}

// Service is a martd server found on the network.
type Service struct {
	Instance  string
	Host      string
	Port      uint16
	Addresses []string
	Version   string
	SubPath   string
	PubPath   string
}

// BaseURL returns the http URL of the service. An IPv4 address is preferred,
// then any other address, then the host name.
func (s *Service) BaseURL() string {
	host := trimDot(s.Host)
	fallback := ""
	for _, addr := range s.Addresses {
		ip := net.ParseIP(addr)
		if ip == nil {
			continue
		}
		if ip.To4() != nil {
			fallback = addr
			break
		}
		if fallback == "" {
			fallback = addr
		}
	}
	if fallback != "" {
		host = fallback
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}

// SubPathOrDefault returns the advertised poll path or the default.
func (s *Service) SubPathOrDefault() string {
	if s.SubPath == "" {
		return wire.DefaultSubPath
	}
	return s.SubPath
}

// PubPathOrDefault returns the advertised publish path or the default.
func (s *Service) PubPathOrDefault() string {
	if s.PubPath == "" {
		return wire.DefaultPubPath
	}
	return s.PubPath
}

func trimDot(host string) string {
	if n := len(host); n > 0 && host[n-1] == '.' {
		return host[:n-1]
	}
	return host
}
