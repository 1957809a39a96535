// Package params parses query parameters shared by several handlers.
package params

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Date reads key as RFC 3339 or as a plain date in the server's location.
// A missing value yields the zero time.
func Date(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q", key, raw)
	}
	return t, nil
}

// Int reads key as an integer, returning def when it is absent.
func Int(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}
