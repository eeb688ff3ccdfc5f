package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
)

func TestServiceBaseURL(t *testing.T) {
	tests := []struct {
		name string
		svc  Service
		want string
	}{
		{"ipv4", Service{Host: "box.local.", Port: 54321, Addresses: []string{"192.168.1.20"}}, "http://192.168.1.20:54321"},
		{"prefers ipv4", Service{Host: "box.local.", Port: 80, Addresses: []string{"fe80::1", "10.0.0.2"}}, "http://10.0.0.2:80"},
		{"ipv6 only", Service{Host: "box.local.", Port: 80, Addresses: []string{"fd00::2"}}, "http://[fd00::2]:80"},
		{"host name", Service{Host: "box.local.", Port: 8080}, "http://box.local:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.svc.BaseURL(); got != tt.want {
				t.Errorf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServicePathDefaults(t *testing.T) {
	svc := Service{}
	if svc.SubPathOrDefault() != "/sub" || svc.PubPathOrDefault() != "/pub" {
		t.Errorf("defaults = %q, %q", svc.SubPathOrDefault(), svc.PubPathOrDefault())
	}
	svc.SubPath = "/x/sub"
	if svc.SubPathOrDefault() != "/x/sub" {
		t.Errorf("SubPathOrDefault() = %q", svc.SubPathOrDefault())
	}
}

func testEntry(instance string, txt []string, v4 ...string) *zeroconf.ServiceEntry {
	entry := &zeroconf.ServiceEntry{
		HostName: "box.local.",
		Port:     54321,
		Text:     txt,
	}
	entry.Instance = instance
	for _, a := range v4 {
		entry.AddrIPv4 = append(entry.AddrIPv4, net.ParseIP(a))
	}
	return entry
}

func TestEntryToService(t *testing.T) {
	svc := entryToService(testEntry("office", []string{"ver=1", "pub=/p"}, "192.168.1.20"))
	if svc == nil {
		t.Fatal("entryToService returned nil")
	}
	if svc.Instance != "office" || svc.Port != 54321 || svc.PubPath != "/p" {
		t.Errorf("service = %+v", svc)
	}
	if len(svc.Addresses) != 1 || svc.Addresses[0] != "192.168.1.20" {
		t.Errorf("Addresses = %v", svc.Addresses)
	}

	if entryToService(testEntry("other", []string{"ver=9"})) != nil {
		t.Error("unsupported version accepted")
	}
}

func TestMergeAndRemoveAddresses(t *testing.T) {
	addrs := mergeAddresses([]string{"10.0.0.1"}, []string{"10.0.0.1", "10.0.0.2"})
	if len(addrs) != 2 {
		t.Fatalf("merged = %v", addrs)
	}

	addrs = removeAddresses(addrs, testEntry("office", nil, "10.0.0.1"))
	if len(addrs) != 1 || addrs[0] != "10.0.0.2" {
		t.Errorf("after remove = %v", addrs)
	}
}

func TestFirstMatch(t *testing.T) {
	results := make(chan *Service, 2)
	results <- &Service{Instance: "lab"}
	results <- &Service{Instance: "office"}
	close(results)

	svc, err := firstMatch(context.Background(), results, "office")
	if err != nil || svc.Instance != "office" {
		t.Fatalf("firstMatch = %v, %v", svc, err)
	}

	empty := make(chan *Service)
	close(empty)
	if _, err := firstMatch(context.Background(), empty, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("closed results: err = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := firstMatch(ctx, make(chan *Service), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("timeout: err = %v", err)
	}
}

func TestMDNSAdvertiserRejectsBadName(t *testing.T) {
	adv, err := NewMDNSAdvertiser(DefaultAdvertiserConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer adv.Stop()

	if err := adv.Advertise(context.Background(), &ServerInfo{}); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("err = %v", err)
	}
}

func TestMDNSBrowserStop(t *testing.T) {
	b, err := NewMDNSBrowser(BrowserConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if b.config.BrowseTimeout != BrowseTimeout {
		t.Errorf("BrowseTimeout = %v", b.config.BrowseTimeout)
	}

	results, err := b.Browse(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b.Stop()

	select {
	case _, ok := <-results:
		for ok {
			_, ok = <-results
		}
	case <-time.After(5 * time.Second):
		t.Fatal("results not closed after Stop")
	}
}
