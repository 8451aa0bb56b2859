// Package targets expands collection target input into individual
// host identifiers. A --computer-name value may be a hostname, a
// single IP, a CIDR block or an IP range; the fan-out collector only
// ever sees the expanded per-host list.
package targets

import (
	"fmt"
	"net/netip"
	"strings"
)

// Type classifies one target input value.
type Type string

const (
	TypeCIDR  Type = "cidr"
	TypeRange Type = "range"
	TypeIP    Type = "ip"
	TypeHost  Type = "host"
)

// maxExpansion caps CIDR/range expansion so a fat-fingered prefix
// cannot queue tens of thousands of probes.
const maxExpansion = 4096

// Detect classifies a target input value.
//
// Examples:
//   - "192.168.1.0/28" -> cidr
//   - "192.168.1.1-192.168.1.50" -> range
//   - "192.168.1.100" -> ip
//   - "dc01.example.com" -> host
func Detect(value string) Type {
	value = strings.TrimSpace(value)

	if strings.Contains(value, "/") {
		if _, err := netip.ParsePrefix(value); err == nil {
			return TypeCIDR
		}
	}

	if strings.Contains(value, "-") {
		parts := strings.Split(value, "-")
		if len(parts) == 2 {
			_, err1 := netip.ParseAddr(strings.TrimSpace(parts[0]))
			_, err2 := netip.ParseAddr(strings.TrimSpace(parts[1]))
			if err1 == nil && err2 == nil {
				return TypeRange
			}
		}
	}

	if _, err := netip.ParseAddr(value); err == nil {
		return TypeIP
	}

	return TypeHost
}

// Expand turns one target input value into individual host
// identifiers. Hostnames and single IPs pass through unchanged; CIDR
// blocks and ranges expand to their member addresses.
func Expand(value string) ([]string, error) {
	switch Detect(value) {
	case TypeCIDR:
		return expandCIDR(strings.TrimSpace(value))
	case TypeRange:
		return expandRange(strings.TrimSpace(value))
	default:
		return []string{strings.TrimSpace(value)}, nil
	}
}

// ExpandAll expands every input value and concatenates the results in
// input order.
func ExpandAll(values []string) ([]string, error) {
	var out []string
	for _, value := range values {
		hosts, err := Expand(value)
		if err != nil {
			return nil, err
		}
		out = append(out, hosts...)
	}
	return out, nil
}

// expandCIDR expands a CIDR block. For IPv4 prefixes below /31 the
// network and broadcast addresses are skipped.
func expandCIDR(cidr string) ([]string, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR notation: %w", err)
	}

	bits := prefix.Bits()
	maxBits := 32
	if prefix.Addr().Is6() {
		maxBits = 128
	}
	if maxBits-bits > 12 {
		return nil, fmt.Errorf("CIDR block too large (>%d hosts): %s", maxExpansion, cidr)
	}

	skipEdges := prefix.Addr().Is4() && bits < 31

	var hosts []string
	addr := prefix.Masked().Addr()
	if skipEdges {
		addr = addr.Next()
	}
	for prefix.Contains(addr) {
		hosts = append(hosts, addr.String())
		addr = addr.Next()
		if len(hosts) > maxExpansion {
			return nil, fmt.Errorf("CIDR block expanded to more than %d hosts: %s", maxExpansion, cidr)
		}
	}
	if skipEdges && len(hosts) > 0 {
		hosts = hosts[:len(hosts)-1]
	}

	return hosts, nil
}

// expandRange expands an inclusive IP range like
// "192.168.1.10-192.168.1.20".
func expandRange(rangeStr string) ([]string, error) {
	parts := strings.Split(rangeStr, "-")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid range format: %s", rangeStr)
	}

	start, err := netip.ParseAddr(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid range start: %w", err)
	}
	end, err := netip.ParseAddr(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid range end: %w", err)
	}
	if start.Compare(end) > 0 {
		return nil, fmt.Errorf("range start after end: %s", rangeStr)
	}

	var hosts []string
	for addr := start; addr.Compare(end) <= 0; addr = addr.Next() {
		hosts = append(hosts, addr.String())
		if len(hosts) > maxExpansion {
			return nil, fmt.Errorf("range expanded to more than %d hosts: %s", maxExpansion, rangeStr)
		}
	}
	return hosts, nil
}
