package utils

import "net/url"

// MakeMap creates a map[string]string from a key-value pair plus any further
// pairs in more. A trailing key without a value is dropped.
func MakeMap(key, value string, more ...string) map[string]string {
	m := make(map[string]string, 1+len(more)/2)
	m[key] = value
	for i := 0; i+1 < len(more); i += 2 {
		m[more[i]] = more[i+1]
	}
	return m
}

// RedactURL returns scheme, host and path of u, dropping query string,
// fragment and user info. Used for metric labels and log fields where API
// keys may sit in the query.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Scheme + "://" + u.Host + u.Path
}

// RedactRawURL is RedactURL for an unparsed URL. Unparseable input yields "invalid-url".
func RedactRawURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	return RedactURL(u)
}
