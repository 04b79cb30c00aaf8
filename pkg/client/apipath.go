package client

import (
	"net/url"
	"strings"
)

// APIVersion is the path segment of the current API generation.
const APIVersion = "v4"

// Paths used by the handshake. They are relative to the server URL.
const (
	pathLegacyInit  = "api/v3/auth/init/"
	pathLegacyLogin = "api/v3/auth/login/"
	pathLogin       = "api/v4/auth/login/"
	pathRoot        = "api/"
)

// APIPath builds "api/v4/<prefix>/<arg>/.../" with every argument path-escaped.
func APIPath(prefix string, args ...string) string {
	var sb strings.Builder
	sb.WriteString("api/")
	sb.WriteString(APIVersion)
	sb.WriteByte('/')
	sb.WriteString(strings.Trim(prefix, "/"))
	sb.WriteByte('/')
	for _, a := range args {
		sb.WriteString(url.PathEscape(a))
		sb.WriteByte('/')
	}
	return sb.String()
}

// APIPathQuery is APIPath with an encoded query string. Empty values are dropped.
func APIPathQuery(prefix string, query url.Values, args ...string) string {
	path := APIPath(prefix, args...)
	q := make(url.Values, len(query))
	for k, vs := range query {
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
