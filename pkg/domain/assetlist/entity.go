// Package assetlist defines the named target inventories stored on the
// scanning platform.
package assetlist

import (
	"fmt"
	"strings"
)

// Kind is the platform list type of an asset list.
type Kind string

const (
	// KindHostnames holds DNS names.
	KindHostnames Kind = "dnsname"
	// KindIPs holds static IPv4 addresses.
	KindIPs Kind = "static"
)

// SourceType selects the inventory column an asset list is built from.
type SourceType string

const (
	SourceDNS SourceType = "DNS"
	SourceIP  SourceType = "IP"
)

// ParseSourceType parses DNS or IP, case-insensitively.
func ParseSourceType(s string) (SourceType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(SourceDNS):
		return SourceDNS, nil
	case string(SourceIP):
		return SourceIP, nil
	default:
		return "", fmt.Errorf("invalid asset type %q: must be DNS or IP", s)
	}
}

// Column returns the inventory column holding the values for this source type.
func (t SourceType) Column() string {
	if t == SourceIP {
		return "ip"
	}
	return "hostname"
}

// Kind returns the asset list kind created for this source type.
func (t SourceType) Kind() Kind {
	if t == SourceIP {
		return KindIPs
	}
	return KindHostnames
}

// AssetList is a named collection of scan targets.
type AssetList struct {
	ID      string
	Name    string
	Kind    Kind
	Members []string
}

// New creates an asset list ready to be published.
func New(name string, kind Kind, members []string) (*AssetList, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("asset list name is required")
	}
	if kind != KindHostnames && kind != KindIPs {
		return nil, fmt.Errorf("invalid asset list kind %q", kind)
	}
	if members == nil {
		members = []string{}
	}
	return &AssetList{Name: name, Kind: kind, Members: members}, nil
}
