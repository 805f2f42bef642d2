package service

import (
	"net/url"
	"strings"
)

const checkinPath = "/checkin/"

// NormalizeInput reduces a scanned or typed value to the bare identifier.
// Full check-in URLs keep only the segment after /checkin/, ?token= URLs use
// the parameter, and query, fragment and trailing slashes are dropped.
func NormalizeInput(raw string) string {
	s := strings.TrimSpace(raw)

	if i := strings.IndexByte(s, '?'); i >= 0 {
		query, _, _ := strings.Cut(s[i+1:], "#")
		if q, err := url.ParseQuery(query); err == nil {
			if token := strings.TrimSpace(q.Get("token")); token != "" {
				return token
			}
		}
	}

	if i := strings.LastIndex(s, checkinPath); i >= 0 {
		s = s[i+len(checkinPath):]
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(strings.TrimRight(s, "/"))
}
