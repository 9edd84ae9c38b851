package order

import (
	"net/url"
	"strings"
)

// Attribution holds the UTM parameters of the page a session started from.
type Attribution struct {
	Source      string
	Medium      string
	Campaign    string
	Term        string
	Content     string
	LandingPage string
}

// ParseAttribution reads utm_* parameters from a landing page URL. A bare
// query string is accepted too. Unparseable input yields an empty value.
func ParseAttribution(raw string) Attribution {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Attribution{}
	}

	var query url.Values
	landing := ""
	if strings.Contains(raw, "://") || strings.HasPrefix(raw, "/") {
		u, err := url.Parse(raw)
		if err != nil {
			return Attribution{}
		}
		query = u.Query()
		u.RawQuery = ""
		u.Fragment = ""
		landing = u.String()
	} else {
		q, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
		if err != nil {
			return Attribution{}
		}
		query = q
	}

	return Attribution{
		Source:      query.Get("utm_source"),
		Medium:      query.Get("utm_medium"),
		Campaign:    query.Get("utm_campaign"),
		Term:        query.Get("utm_term"),
		Content:     query.Get("utm_content"),
		LandingPage: landing,
	}
}

// IsZero reports whether no attribution was captured.
func (a Attribution) IsZero() bool {
	return a == Attribution{}
}
