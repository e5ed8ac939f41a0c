/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package tlsadapter builds a server-side *tls.Config from a named security
// profile and exposes the plaintext push/pull lanes the stream worker drives
// on top of an accepted connection.
package tlsadapter

import (
	"crypto/tls"
	"strings"

	"github.com/nabbar/netagent/certificates/cipher"
	"github.com/nabbar/netagent/certificates/curves"
	"github.com/nabbar/netagent/certificates/tlsversion"
	liberr "github.com/nabbar/netagent/errors"
)

// Profile names a fixed combination of minimum TLS version and cipher suite
// allow-list. Profiles are deliberately coarse: operators pick a named
// stance rather than hand-assembling cipher lists.
type Profile uint8

const (
	// ProfileUnknown is the zero value and is rejected by Build.
	ProfileUnknown Profile = iota

	// ProfileServerMinFSGCM requires TLS 1.2+ and only forward-secret
	// AES-GCM suites (ECDHE-*-AES-GCM plus the TLS 1.3 AES-GCM suites).
	ProfileServerMinFSGCM

	// ProfileServerMinFSChaCha20 requires TLS 1.2+ and forward-secret
	// ChaCha20-Poly1305 suites, preferred on platforms without AES-NI.
	ProfileServerMinFSChaCha20

	// ProfileServerMinNoFSGCM requires TLS 1.2+ and allows the plain RSA
	// key-exchange AES-GCM suites in addition to the forward-secret ones,
	// for interoperability with older clients that lack ECDHE support.
	ProfileServerMinNoFSGCM

	// ProfileFull allows every suite this package knows about, TLS 1.2
	// through 1.3, forward-secret or not.
	ProfileFull
)

// String renders the profile using the names used in configuration files.
func (p Profile) String() string {
	switch p {
	case ProfileServerMinFSGCM:
		return "server-min-fs-gcm"
	case ProfileServerMinFSChaCha20:
		return "server-min-fs-chacha20"
	case ProfileServerMinNoFSGCM:
		return "server-min-nofs-gcm"
	case ProfileFull:
		return "full"
	default:
		return "unknown"
	}
}

// ParseProfile parses the String() form back into a Profile.
func ParseProfile(s string) Profile {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "server-min-fs-gcm":
		return ProfileServerMinFSGCM
	case "server-min-fs-chacha20":
		return ProfileServerMinFSChaCha20
	case "server-min-nofs-gcm":
		return ProfileServerMinNoFSGCM
	case "full":
		return ProfileFull
	default:
		return ProfileUnknown
	}
}

// cipherSuites returns the allow-list of cipher.Cipher values for p, in the
// teacher's cipher package's own enumeration.
func (p Profile) cipherSuites() []cipher.Cipher {
	fsGCM := []cipher.Cipher{
		cipher.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		cipher.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		cipher.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		cipher.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		cipher.TLS_AES_128_GCM_SHA256,
		cipher.TLS_AES_256_GCM_SHA384,
	}
	fsChaCha := []cipher.Cipher{
		cipher.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		cipher.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
		cipher.TLS_CHACHA20_POLY1305_SHA256,
	}
	noFS := []cipher.Cipher{
		cipher.TLS_RSA_WITH_AES_128_GCM_SHA256,
		cipher.TLS_RSA_WITH_AES_256_GCM_SHA384,
	}

	switch p {
	case ProfileServerMinFSGCM:
		return fsGCM
	case ProfileServerMinFSChaCha20:
		return append(append([]cipher.Cipher{}, fsGCM...), fsChaCha...)
	case ProfileServerMinNoFSGCM:
		return append(append([]cipher.Cipher{}, fsGCM...), noFS...)
	case ProfileFull:
		return append(append(append([]cipher.Cipher{}, fsGCM...), fsChaCha...), noFS...)
	default:
		return nil
	}
}

// curveList returns the elliptic curve preference order for p. Every server
// profile prefers X25519, then the NIST P-curves.
func (p Profile) curveList() []curves.Curves {
	return []curves.Curves{
		curves.X25519,
		curves.P256,
		curves.P384,
		curves.P521,
	}
}

func toTLSCipherSuites(cs []cipher.Cipher) []uint16 {
	out := make([]uint16, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.TLS())
	}
	return out
}

func toTLSCurveIDs(cv []curves.Curves) []tls.CurveID {
	out := make([]tls.CurveID, 0, len(cv))
	for _, c := range cv {
		out = append(out, tls.CurveID(c))
	}
	return out
}

// Build assembles a server-side *tls.Config implementing the named profile
// for the given certificate. TLS 1.3 ignores CipherSuites entirely (Go's
// crypto/tls always negotiates its own fixed 1.3 suite set), so the
// cipher-suite allow-list only constrains the TLS 1.2 fallback path; that is
// expected and matches how crypto/tls itself behaves.
func Build(profile Profile, cert tls.Certificate) (*tls.Config, liberr.Error) {
	if profile == ProfileUnknown {
		return nil, ErrorProfileUnknown.Error(nil)
	}

	cfg := &tls.Config{
		Certificates:     []tls.Certificate{cert},
		MinVersion:       uint16(tlsversion.VersionTLS12),
		MaxVersion:       uint16(tlsversion.VersionTLS13),
		CipherSuites:     toTLSCipherSuites(profile.cipherSuites()),
		CurvePreferences: toTLSCurveIDs(profile.curveList()),
	}

	return cfg, nil
}
