package wcs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// GetCoverageParams are the typed parameters of a GetCoverage request.
// Fields that only exist in one protocol version are ignored by the other.
type GetCoverageParams struct {
	Identifier string
	// BBox is minx, miny, maxx, maxy (and minz, maxz when three dimensional).
	BBox   []float64
	Time   []string
	Format string

	// WCS 1.0.0
	CRS    string
	Width  int
	Height int
	ResX   float64
	ResY   float64
	ResZ   float64

	// WCS 1.1.x
	BBoxCRS     string
	Store       bool
	RangeSubset string
	GridBaseCRS string
	GridType    string
	GridCS      string
	GridOrigin  string
	GridOffsets string

	// Method is Get (default) or Post.
	Method string
	// Vendor holds vendor specific parameters, sent after the standard ones.
	// A key equal to a standard key replaces its value.
	Vendor url.Values
}

func (p GetCoverageParams) method() string {
	if strings.EqualFold(p.Method, http.MethodPost) {
		return "Post"
	}
	return "Get"
}

// set replaces the value of key, compared case insensitively, or appends
// the pair.
func (q *query) set(key, value string) {
	for i := range *q {
		if strings.EqualFold((*q)[i].key, key) {
			(*q)[i].value = value
			return
		}
	}
	q.add(key, value)
}

func (p GetCoverageParams) addVendor(q *query) {
	keys := make([]string, 0, len(p.Vendor))
	for k := range p.Vendor {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.set(k, strings.Join(p.Vendor[k], ","))
	}
}

func (p GetCoverageParams) query100() (query, error) {
	if strings.TrimSpace(p.Identifier) == "" {
		return nil, ErrMissingIdentifier
	}

	q := query{}
	q.add("version", Version100)
	q.add("request", "GetCoverage")
	q.add("service", "WCS")
	q.add("Coverage", p.Identifier)
	if len(p.BBox) > 0 {
		q.add("BBox", formatFloats(p.BBox))
	}
	if len(p.Time) > 0 {
		q.add("time", strings.Join(p.Time, ","))
	}
	if p.CRS != "" {
		q.add("crs", p.CRS)
	}
	if p.Format != "" {
		q.add("format", p.Format)
	}
	if p.Width > 0 {
		q.add("width", strconv.Itoa(p.Width))
	}
	if p.Height > 0 {
		q.add("height", strconv.Itoa(p.Height))
	}
	if p.ResX != 0 {
		q.add("resx", formatFloat(p.ResX))
	}
	if p.ResY != 0 {
		q.add("resy", formatFloat(p.ResY))
	}
	if p.ResZ != 0 {
		q.add("resz", formatFloat(p.ResZ))
	}
	p.addVendor(&q)
	return q, nil
}

func (p GetCoverageParams) query110(version string) (query, error) {
	if strings.TrimSpace(p.Identifier) == "" {
		return nil, ErrMissingIdentifier
	}

	q := query{}
	q.add("version", version)
	q.add("request", "GetCoverage")
	q.add("service", "WCS")
	q.add("identifier", p.Identifier)
	if len(p.BBox) > 0 {
		bbox := formatFloats(p.BBox)
		if p.BBoxCRS != "" {
			bbox += "," + p.BBoxCRS
		}
		q.add("boundingbox", bbox)
	}
	if len(p.Time) > 0 {
		q.add("timesequence", strings.Join(p.Time, ","))
	}
	if p.Format != "" {
		q.add("format", p.Format)
	}
	q.add("store", strconv.FormatBool(p.Store))
	if p.RangeSubset != "" {
		q.add("RangeSubset", p.RangeSubset)
	}
	if p.GridBaseCRS != "" {
		q.add("gridbaseCRS", p.GridBaseCRS)
	}
	if p.GridType != "" {
		q.add("gridtype", p.GridType)
	}
	if p.GridCS != "" {
		q.add("gridCS", p.GridCS)
	}
	if p.GridOrigin != "" {
		q.add("gridorigin", p.GridOrigin)
	}
	if p.GridOffsets != "" {
		q.add("gridoffsets", p.GridOffsets)
	}
	p.addVendor(&q)
	return q, nil
}

// GetCoverageRequest builds the GetCoverage request for p without sending
// it. The request goes to the URL the service advertises for the chosen
// method, or to the service URL.
func (s *Service) GetCoverageRequest(ctx context.Context, p GetCoverageParams) (*http.Request, error) {
	var (
		q   query
		err error
	)
	switch {
	case s.Version == Version100:
		q, err = p.query100()
	case isVersion11(s.Version):
		q, err = p.query110(s.Version)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedVersion, s.Version)
	}
	if err != nil {
		return nil, err
	}

	method := p.method()
	base := s.operationURL("GetCoverage", method)

	s.client.logger.Debug("building GetCoverage request",
		zap.String("version", s.Version),
		zap.String("method", method),
		zap.String("url", base),
		zap.String("query", q.encode()))

	if method == "Post" {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(base, "?"), strings.NewReader(q.encode()))
		if err != nil {
			return nil, fmt.Errorf("could not construct GetCoverage request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	// Pairs already present in the operation URL are kept; the request
	// parameters override them.
	target, merged := splitServiceURL(base)
	for _, pair := range q {
		merged.set(pair.key, pair.value)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinServiceURL(target, merged), nil)
	if err != nil {
		return nil, fmt.Errorf("could not construct GetCoverage request: %w", err)
	}
	return req, nil
}

// GetCoverage requests a coverage. The caller must close the body of the
// returned response. Exception reports are returned as *ServiceException.
func (s *Service) GetCoverage(ctx context.Context, p GetCoverageParams) (*http.Response, error) {
	req, err := s.GetCoverageRequest(ctx, p)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest || isExceptionContentType(resp.Header.Get("Content-Type")) {
		if err := readExceptionResponse(req.URL.Redacted(), resp); err != nil {
			return nil, err
		}
	}
	return resp, nil
}
