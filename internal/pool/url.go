package pool

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"slices"
	"strings"

	"github.com/mozilla-ai/mcpool/internal/errors"
)

// URLPolicy decides which server URLs the pool may connect to.
type URLPolicy struct {
	// AllowedSchemes lists the permitted URL schemes, in lower case.
	AllowedSchemes []string

	// AllowLoopback permits loopback hosts such as localhost and 127.0.0.1.
	AllowLoopback bool
}

// blockedHosts are host names that resolve to cloud instance metadata services.
var blockedHosts = []string{
	"metadata",
	"metadata.google.internal",
	"metadata.goog",
	"instance-data",
	"instance-data.ec2.internal",
}

// Validate returns an error wrapping errors.ErrInvalidServerURL when the URL may not be connected to.
// Only the literal host is inspected; names are never resolved.
func (p URLPolicy) Validate(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return fmt.Errorf("%w: url cannot be empty", errors.ErrInvalidServerURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidServerURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if !slices.Contains(p.AllowedSchemes, scheme) {
		return fmt.Errorf("%w: scheme '%s' is not allowed", errors.ErrInvalidServerURL, u.Scheme)
	}

	if u.User != nil {
		return fmt.Errorf("%w: credentials in url are not allowed", errors.ErrInvalidServerURL)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return fmt.Errorf("%w: missing host", errors.ErrInvalidServerURL)
	}

	if slices.Contains(blockedHosts, host) {
		return fmt.Errorf("%w: host '%s' is blocked", errors.ErrInvalidServerURL, host)
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		if p.AllowLoopback {
			return nil
		}
		return fmt.Errorf("%w: loopback host '%s' is not allowed", errors.ErrInvalidServerURL, host)
	}

	// Hosts like 2130706433 or 0x7f000001 are treated as addresses by some resolvers.
	if isNumericHost(host) {
		return fmt.Errorf("%w: ambiguous numeric host '%s'", errors.ErrInvalidServerURL, host)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		// Not an IP literal, so a regular host name.
		return nil
	}
	addr = addr.Unmap()

	switch {
	case addr.IsLoopback():
		if p.AllowLoopback {
			return nil
		}
		return fmt.Errorf("%w: loopback address '%s' is not allowed", errors.ErrInvalidServerURL, addr)
	case addr.IsUnspecified():
		return fmt.Errorf("%w: unspecified address '%s' is not allowed", errors.ErrInvalidServerURL, addr)
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		// Covers 169.254.169.254 and fe80::/10.
		return fmt.Errorf("%w: link-local address '%s' is not allowed", errors.ErrInvalidServerURL, addr)
	case isMetadataAddr(addr):
		return fmt.Errorf("%w: metadata address '%s' is not allowed", errors.ErrInvalidServerURL, addr)
	}

	return nil
}

// isNumericHost reports whether the host is made only of digits, dots and hex markers without being a
// dotted-quad IPv4 address.
func isNumericHost(host string) bool {
	if strings.Contains(host, ":") {
		return false
	}
	if net.ParseIP(host) != nil {
		return false
	}
	digits := "0123456789."
	if rest, ok := strings.CutPrefix(host, "0x"); ok {
		host = rest
		digits += "abcdef"
	}
	for _, r := range host {
		if !strings.ContainsRune(digits, r) {
			return false
		}
	}
	return true
}

// isMetadataAddr reports whether the address is a well-known metadata endpoint outside link-local space.
func isMetadataAddr(addr netip.Addr) bool {
	metadata := []netip.Addr{
		netip.MustParseAddr("fd00:ec2::254"),
		netip.MustParseAddr("100.100.100.200"),
	}
	return slices.Contains(metadata, addr)
}
