// Package network holds helpers for massaging listener and peer address
// strings before they are handed to the net package.
package network

import (
	"net"

	"github.com/pkg/errors"
)

// NormalizeAddress ensures addr carries an explicit port, appending
// defaultPort when it has none.
func NormalizeAddress(addr, defaultPort string) (string, error) {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr, nil
	}

	// The address parsed only once a port was attached, so the original
	// had none. Anything still unparsable is a genuinely bad address.
	withPort := net.JoinHostPort(addr, defaultPort)
	if _, _, err := net.SplitHostPort(withPort); err != nil {
		return "", errors.Wrapf(err, "invalid network address %q", addr)
	}
	return withPort, nil
}

// NormalizeAddresses normalizes every address with the given default port
// and drops duplicates, preserving the original order.
func NormalizeAddresses(addrs []string, defaultPort string) ([]string, error) {
	seen := make(map[string]struct{}, len(addrs))
	result := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		normalized, err := NormalizeAddress(addr, defaultPort)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result, nil
}
