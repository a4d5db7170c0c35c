package wcs

import (
	"net/url"
	"strconv"
	"strings"
)

// query is an ordered list of KVP pairs. url.Values sorts keys on Encode,
// OGC servers expect the pairs in the order they were given.
type query []pair

type pair struct {
	key   string
	value string
}

func (q *query) add(key, value string) {
	*q = append(*q, pair{key: key, value: value})
}

func (q *query) addIfMissing(key, value string) {
	if !q.has(key) {
		q.add(key, value)
	}
}

// has reports whether key is present, ignoring case as OGC KVP keys are
// case insensitive.
func (q query) has(key string) bool {
	for _, p := range q {
		if strings.EqualFold(p.key, key) {
			return true
		}
	}
	return false
}

func (q query) encode() string {
	var sb strings.Builder
	for i, p := range q {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.value))
	}
	return sb.String()
}

// splitServiceURL separates the base of a service URL from the pairs already
// present in its query string.
func splitServiceURL(serviceURL string) (string, query) {
	base, rawQuery, found := strings.Cut(serviceURL, "?")
	if !found {
		return base, nil
	}

	var q query
	for _, part := range strings.FieldsFunc(rawQuery, func(r rune) bool { return r == '&' || r == ';' }) {
		key, value, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(key)
		if err != nil || k == "" {
			continue
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		q.add(k, v)
	}
	return base, q
}

func joinServiceURL(base string, q query) string {
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.encode()
}

// CapabilitiesURL returns the GetCapabilities URL for serviceURL. Pairs
// already present in serviceURL are kept. An empty version is not sent.
func CapabilitiesURL(serviceURL, version string) string {
	base, q := splitServiceURL(serviceURL)
	q.addIfMissing("service", "WCS")
	q.addIfMissing("request", "GetCapabilities")
	if version != "" {
		q.addIfMissing("version", version)
	}
	return joinServiceURL(base, q)
}

// DescribeCoverageURL returns the DescribeCoverage URL for a single coverage.
func DescribeCoverageURL(serviceURL, version, identifier string) string {
	base, q := splitServiceURL(serviceURL)
	q.addIfMissing("service", "WCS")
	q.addIfMissing("request", "DescribeCoverage")
	q.addIfMissing("version", version)

	switch {
	case version == Version100:
		q.addIfMissing("coverage", identifier)
	case isVersion11(version):
		// 1.1.0 is ambiguous between identifier and identifiers, send both.
		q.addIfMissing("identifiers", identifier)
		if !q.has("identifier") {
			q.add("identifier", identifier)
			q.add("format", "text/xml")
		}
	}
	return joinServiceURL(base, q)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatFloats(fs []float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = formatFloat(f)
	}
	return strings.Join(parts, ",")
}
