package wcs

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "wcs-client/0.1"
)

// Client fetches and parses documents from WCS servers.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
	header     http.Header
	cookies    []*http.Cookie
	username   string
	password   string
	userAgent  string
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 30 second timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithCookies attaches cookies to every request, for servers that keep a
// session.
func WithCookies(cookies ...*http.Cookie) Option {
	return func(c *Client) { c.cookies = append(c.cookies, cookies...) }
}

func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
		header:     http.Header{},
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Open fetches the capabilities document of the service at serviceURL and
// parses it. With an empty version no version is requested and the version
// of the returned document is used.
func (c *Client) Open(ctx context.Context, serviceURL, version string) (*Service, error) {
	if version != "" && !SupportedVersion(version) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}

	u := CapabilitiesURL(serviceURL, version)
	c.logger.Debug("fetching capabilities", zap.String("url", u), zap.String("version", version))

	doc, err := c.fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	return c.Parse(serviceURL, version, doc)
}

// Parse reads a capabilities document that was obtained elsewhere. Later
// DescribeCoverage and GetCoverage calls are sent to serviceURL unless the
// document advertises operation URLs.
func (c *Client) Parse(serviceURL, version string, doc []byte) (*Service, error) {
	root, docVersion, err := rootElement(doc)
	if err != nil {
		return nil, err
	}
	if isExceptionReport(root) {
		return nil, parseExceptionReport(doc)
	}

	if docVersion == "" {
		docVersion = versionFromRoot(root)
	}

	// Servers answer with the version they support when it differs from the
	// requested one.
	if version == "" || (SupportedVersion(docVersion) && isVersion11(docVersion) != isVersion11(version)) {
		version = docVersion
	}

	s := newService(c, version, serviceURL)
	switch {
	case version == Version100:
		err = parseCapabilities100(s, doc)
	case isVersion11(version):
		err = parseCapabilities110(s, doc)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Debug("parsed capabilities",
		zap.String("version", s.Version),
		zap.Int("coverages", len(s.Contents)),
		zap.Int("operations", len(s.Operations)))
	return s, nil
}

// versionFromRoot guesses the version of a capabilities document whose root
// carries no version attribute.
func versionFromRoot(root xml.Name) string {
	switch {
	case root.Local == "WCS_Capabilities":
		return Version100
	case root.Local == "Capabilities" && root.Space == NamespaceWCS11:
		return Version110
	}
	return ""
}

// Parse reads a capabilities document with a default client.
func Parse(serviceURL, version string, doc []byte) (*Service, error) {
	return NewClient().Parse(serviceURL, version, doc)
}

func (c *Client) timeout() time.Duration {
	if c.httpClient.Timeout > 0 {
		return c.httpClient.Timeout
	}
	return DefaultTimeout
}

func (c *Client) prepare(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	for k, vv := range c.header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	c.prepare(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch %s: %w", req.URL.Redacted(), err)
	}
	return resp, nil
}

// fetch GETs u and returns the body. Error statuses are converted into a
// *ServiceException when the body is an exception report.
func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("could not construct request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response from %s: %w", u, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, responseError(u, resp.StatusCode, body)
	}
	return body, nil
}

func responseError(u string, status int, body []byte) error {
	if root, _, err := rootElement(body); err == nil && isExceptionReport(root) {
		return parseExceptionReport(body)
	}
	return &HTTPError{StatusCode: status, URL: u, Body: body}
}

// isExceptionContentType reports whether a response is announced as an OGC
// exception report, e.g. application/vnd.ogc.se_xml.
func isExceptionContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "se_xml")
}

// readExceptionResponse reads resp and returns the exception it carries.
// When the body is not an exception report nil is returned and resp.Body is
// replaced so it can still be read.
func readExceptionResponse(u string, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("could not read response from %s: %w", u, err)
	}

	if root, _, err := rootElement(body); err == nil && isExceptionReport(root) {
		return parseExceptionReport(body)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &HTTPError{StatusCode: resp.StatusCode, URL: u, Body: body}
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return nil
}
