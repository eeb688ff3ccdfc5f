package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/martd/martd-go/pkg/wire"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeServerTXT creates the TXT records a server advertises.
// Default paths are left out.
func EncodeServerTXT(info *ServerInfo) TXTRecordMap {
	txt := TXTRecordMap{TXTKeyVersion: ProtocolVersion}
	if info.SubPath != "" && info.SubPath != wire.DefaultSubPath {
		txt[TXTKeySubPath] = info.SubPath
	}
	if info.PubPath != "" && info.PubPath != wire.DefaultPubPath {
		txt[TXTKeyPubPath] = info.PubPath
	}
	return txt
}

// DecodeServerTXT parses the TXT records of a server into s.
func DecodeServerTXT(txt TXTRecordMap, s *Service) error {
	ver, ok := txt[TXTKeyVersion]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	if ver != ProtocolVersion {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, ver)
	}
	s.Version = ver

	for _, key := range []string{TXTKeySubPath, TXTKeyPubPath} {
		if p, ok := txt[key]; ok && !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%w: %s=%q is not a path", ErrInvalidTXTRecord, key, p)
		}
	}
	s.SubPath = txt[TXTKeySubPath]
	s.PubPath = txt[TXTKeyPubPath]
	return nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if k == "" {
			continue
		}
		if !found {
			// Key without value (boolean flag)
			v = ""
		}
		txt[k] = v
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
