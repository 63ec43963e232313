// Package frontier implements hivecrawl's Hybrid Frontier: URL
// normalization and extension filtering, the per-process visited-set
// filter, per-domain append-only frontier files, and the combined
// HybridFrontier that ties the three together. Grounded on the teacher's
// crawler/internal/frontier/normalize.go.
package frontier

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// trackingParams is the set of query parameters stripped during
// normalization, matching the teacher's list.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"gclsrc":       {},
	"dclid":        {},
	"msclkid":      {},
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// NormalizeURL canonicalizes a URL the way the Hybrid Frontier requires
// before it's hashed for dedup or queued: lowercase scheme/host, default
// ports stripped, dot-segments resolved, fragment dropped, tracking query
// parameters removed, remaining query parameters sorted.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if host, port, ok := splitHostPort(u.Host); ok {
		if defaultPorts[u.Scheme] == port {
			u.Host = host
		}
	}

	u.Path = normalizePath(u.Path)
	u.RawQuery = buildCleanQuery(u.RawQuery)

	return u.String(), nil
}

// URLHash returns a stable SHA-256 hex digest of a normalized URL, used both
// as the content-hash input for frontier-file path derivation and as the
// RedisBloom member key.
func URLHash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// ExtractHost returns the registrable domain (spec.md §3: "the registrable
// host of a URL, lowercased") for raw: the public-suffix-aware eTLD+1, so
// "blog.example.com" and "www.example.com" partition into the same
// frontier file and share one politeness schedule instead of each getting
// its own. Falls back to the bare host (port stripped) for inputs
// publicsuffix.EffectiveTLDPlusOne rejects — IP literals, single-label
// hosts like "localhost", and bare public suffixes — since those have no
// registrable domain to collapse to.
func ExtractHost(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	host, _, ok := splitHostPort(strings.ToLower(u.Host))
	if !ok {
		host = strings.ToLower(u.Host)
	}
	if host == "" {
		return "", nil
	}
	if net.ParseIP(host) != nil {
		return host, nil
	}
	if registrable, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return registrable, nil
	}
	return host, nil
}

func splitHostPort(hostport string) (host, port string, ok bool) {
	i := strings.LastIndex(hostport, ":")
	if i < 0 {
		return hostport, "", false
	}
	return hostport[:i], hostport[i+1:], true
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean(p)
	if cleaned != "/" && strings.HasSuffix(p, "/") {
		cleaned += "/"
	}
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}

func buildCleanQuery(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	for k := range trackingParams {
		values.Del(k)
	}
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		vs := values[k]
		sort.Strings(vs)
		for j, v := range vs {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// HasNonTextExtension reports whether the URL's path ends in one of the
// configured blocklisted extensions (spec.md §9 Open Question: the default
// list is a starting point, not a fixed standard).
func HasNonTextExtension(raw string, blocklist []string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	lowerPath := strings.ToLower(u.Path)
	for _, ext := range blocklist {
		if strings.HasSuffix(lowerPath, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// ExceedsMaxLength reports whether raw is longer than max bytes, the input
// validation spec.md §4.3 requires before a URL ever reaches the frontier.
func ExceedsMaxLength(raw string, max int) bool {
	return max > 0 && len(raw) > max
}
