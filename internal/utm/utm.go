// Package utm composes campaign destination URLs with UTM attribution
// parameters and validates destinations at creation time.
package utm

import (
	"errors"
	"net/url"
	"strings"
)

var ErrInvalidDestination = errors.New("destination must be an absolute http or https URL")

// Params holds the optional UTM fields. An empty string means absent.
type Params struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

func (p Params) IsEmpty() bool {
	return p == Params{}
}

// pairs returns the present fields in canonical utm_* order.
func (p Params) pairs() [][2]string {
	all := [][2]string{
		{"utm_source", p.Source},
		{"utm_medium", p.Medium},
		{"utm_campaign", p.Campaign},
		{"utm_term", p.Term},
		{"utm_content", p.Content},
	}
	out := all[:0]
	for _, kv := range all {
		if kv[1] != "" {
			out = append(out, kv)
		}
	}
	return out
}

// Compose sets each present UTM field on destination's query string,
// overwriting an existing utm_* value and leaving every other parameter as it
// was. A destination that does not parse as an absolute URL is returned
// unchanged.
func Compose(destination string, p Params) string {
	u, err := url.Parse(destination)
	if err != nil || !u.IsAbs() {
		return destination
	}
	u.RawQuery = setQuery(u.RawQuery, p.pairs())
	return u.String()
}

// Validate reports whether raw is an absolute http or https URL with a host.
func Validate(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// ValidateDestination is Validate for callers that want an error.
func ValidateDestination(raw string) error {
	if !Validate(raw) {
		return ErrInvalidDestination
	}
	return nil
}

// setQuery works on the raw query so untouched parameters keep their order
// and encoding. For each pair the first matching key is replaced in place and
// later duplicates are dropped; a missing key is appended.
func setQuery(rawQuery string, pairs [][2]string) string {
	if len(pairs) == 0 {
		return rawQuery
	}

	var segs []string
	if rawQuery != "" {
		segs = strings.Split(rawQuery, "&")
	}

	for _, kv := range pairs {
		encoded := url.QueryEscape(kv[0]) + "=" + url.QueryEscape(kv[1])
		out := make([]string, 0, len(segs)+1)
		found := false
		for _, seg := range segs {
			if queryKey(seg) != kv[0] {
				out = append(out, seg)
				continue
			}
			if !found {
				out = append(out, encoded)
				found = true
			}
		}
		if !found {
			out = append(out, encoded)
		}
		segs = out
	}
	return strings.Join(segs, "&")
}

func queryKey(seg string) string {
	k, _, _ := strings.Cut(seg, "=")
	if decoded, err := url.QueryUnescape(k); err == nil {
		return decoded
	}
	return k
}
