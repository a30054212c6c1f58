package knowledge

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL lowercases the scheme, strips the fragment, and removes a
// port that equals the scheme's default, so that equivalent URLs collapse
// to the same KnowledgeSource primary key.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("normalize url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("normalize url: missing scheme or host")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment = ""
	u.RawFragment = ""

	host := u.Hostname()
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = host
	}
	u.Host = strings.ToLower(u.Host)

	return u.String(), nil
}
