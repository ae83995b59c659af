package detect

import (
	"strings"
)

// IPAddressMatcher detects IPv4 and IPv6 addresses.
type IPAddressMatcher struct {
	baseMatcher
}

// NewIPAddressMatcher creates a new IP address matcher.
func NewIPAddressMatcher() *IPAddressMatcher {
	return &IPAddressMatcher{
		baseMatcher: baseMatcher{
			id:         "pattern-ip-address",
			entityType: TypeIPAddress,
			patterns: []NamedPattern{
				np("ipv4", `\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`),
				np("ipv6", `\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`),
			},
		},
	}
}

// Match finds IP address hits, skipping addresses that carry no
// identifying value (loopback, broadcast, multicast, link-local).
func (m *IPAddressMatcher) Match(text string) []Entity {
	matches := m.findAllMatches(text)

	valid := make([]Entity, 0, len(matches))
	for _, match := range matches {
		if isExcludedIP(match.Text) {
			continue
		}
		valid = append(valid, match)
	}
	return valid
}

func isExcludedIP(ip string) bool {
	excludedPrefixes := []string{
		"127.",
		"0.",
		"255.",
		"224.",
		"169.254.",
	}
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(ip, prefix) {
			return true
		}
	}
	return false
}

// MACAddressMatcher detects hardware MAC addresses.
type MACAddressMatcher struct {
	baseMatcher
}

// NewMACAddressMatcher creates a new MAC address matcher.
func NewMACAddressMatcher() *MACAddressMatcher {
	return &MACAddressMatcher{
		baseMatcher: baseMatcher{
			id:         "pattern-mac-address",
			entityType: TypeMACAddress,
			patterns: []NamedPattern{
				np("mac_colon", `\b(?:[0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}\b`),
				np("mac_dash", `\b(?:[0-9A-Fa-f]{2}-){5}[0-9A-Fa-f]{2}\b`),
				np("mac_dot", `\b(?:[0-9A-Fa-f]{4}\.){2}[0-9A-Fa-f]{4}\b`),
			},
		},
	}
}
