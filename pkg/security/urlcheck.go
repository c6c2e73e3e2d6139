// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package security provides URL validation against SSRF.
//
// The client tier takes its target base addresses from runtime
// configuration, which makes them attacker-influenced in hosted
// deployments. Validation blocks dangerous schemes and the IP ranges
// that matter most (cloud metadata, link-local) while still allowing
// localhost and private networks, which are exactly where legitimate
// local services live.
package security

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrURLBlocked is returned when a URL targets a blocked scheme or range.
var ErrURLBlocked = errors.New("URL blocked: potential SSRF")

// allowedSchemes is a whitelist; everything else is rejected, including
// file, data and gopher.
var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
}

// ValidateURL rejects URLs that must never be fetched.
//
// Blocks:
//   - non-http(s) schemes
//   - the cloud metadata endpoint (169.254.169.254)
//   - the link-local range (169.254.0.0/16)
//
// Allows localhost, private networks (10/8, 172.16/12, 192.168/16) and
// public addresses. Hostnames pass through to DNS resolution; rebinding
// is out of scope for this layer.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if !allowedSchemes[parsed.Scheme] {
		return fmt.Errorf("%w: scheme %q not allowed", ErrURLBlocked, parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("invalid URL: no host")
	}
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return nil
	}

	ip := net.ParseIP(host)
	if ip == nil {
		// A hostname, not an IP literal; resolution happens later.
		return nil
	}

	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("%w: cloud metadata endpoint", ErrURLBlocked)
	}
	linkLocal := net.IPNet{IP: net.ParseIP("169.254.0.0"), Mask: net.CIDRMask(16, 32)}
	if linkLocal.Contains(ip) {
		return fmt.Errorf("%w: link-local address", ErrURLBlocked)
	}
	return nil
}
