package sqlconn

import (
	"net/url"
	"strings"
)

// AppendOptions appends opts to dsn as query parameters, sorted by key.
func AppendOptions(dsn string, opts map[string]string) string {
	if len(opts) == 0 {
		return dsn
	}
	values := url.Values{}
	for k, v := range opts {
		values.Set(k, v)
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + values.Encode()
}

// AppendOption appends a single key=value query parameter to dsn. Unlike
// AppendOptions it keeps keys already present, so repeatable parameters
// such as _pragma can be added more than once.
func AppendOption(dsn, key, value string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
