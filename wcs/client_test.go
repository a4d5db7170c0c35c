package wcs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newTestServer serves the WCS 1.0 fixtures with their URLs pointing at the
// test server.
func newTestServer(t *testing.T, describeHits *int32) *httptest.Server {
	t.Helper()
	caps := readFixture(t, "wcs100_capabilities.xml")
	describe := readFixture(t, "wcs100_describecoverage.xml")
	exception := readFixture(t, "exception100.xml")

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/wcs", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("service") != "WCS" || q.Get("request") != "GetCapabilities" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(strings.ReplaceAll(string(caps), "http://example.org", srv.URL)))
	})
	mux.HandleFunc("/describe", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(describeHits, 1)
		// Slow enough for concurrent callers to overlap.
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "text/xml")
		if r.URL.Query().Get("coverage") != "landcover" {
			_, _ = w.Write(exception)
			return
		}
		_, _ = w.Write(describe)
	})
	mux.HandleFunc("/coverage", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/tiff")
		_, _ = w.Write([]byte("II*" + r.URL.RawQuery))
	})
	mux.HandleFunc("/coverage-post", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.ogc.se_xml")
		_, _ = w.Write(exception)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenDescribesOnce(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	client := NewClient(WithLogger(zaptest.NewLogger(t)))

	s, err := client.Open(context.Background(), srv.URL+"/wcs", "1.0.0")
	require.NoError(t, err)
	require.Len(t, s.Contents, 2)

	landcover, err := s.Coverage("landcover")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := landcover.Grid(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	limits, err := landcover.TimeLimits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2015-01-01", "2021-01-01"}, limits)

	supported, err := landcover.SupportedCRS(context.Background())
	require.NoError(t, err)
	require.Len(t, supported, 3)
	assert.Equal(t, "EPSG:3857", supported[1].CodeString())

	formats, err := landcover.SupportedFormats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"GeoTIFF", "NetCDF"}, formats)

	boxes, err := landcover.BoundingBoxes(context.Background())
	require.NoError(t, err)
	assert.Len(t, boxes, 2)

	axes, err := landcover.AxisDescriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, axes, 1)
	assert.Equal(t, "Band", axes[0].Name)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDescribeCoverageException(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)

	s, err := NewClient().Open(context.Background(), srv.URL+"/wcs", "1.0.0")
	require.NoError(t, err)

	_, err = s.DescribeCoverage(context.Background(), "nope")
	var se *ServiceException
	require.True(t, errors.As(err, &se), "expected a service exception, got %v", err)
	assert.Equal(t, "CoverageNotDefined", se.Code)
	assert.Equal(t, "coverage", se.Locator)
	assert.Equal(t, "Coverage nope is not served by this server", se.Message)
	assert.NotEmpty(t, se.XML)

	// Failures are not cached.
	_, err = s.DescribeCoverage(context.Background(), "nope")
	assert.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestOpenErrors(t *testing.T) {
	exception := readFixture(t, "exception110.xml")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/exception":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write(exception)
		default:
			http.Error(w, "upstream broke", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewClient()

	_, err := client.Open(context.Background(), srv.URL+"/exception", "1.1.0")
	var se *ServiceException
	require.True(t, errors.As(err, &se), "expected a service exception, got %v", err)
	assert.Equal(t, "InvalidParameterValue", se.Code)
	assert.Equal(t, "Unknown coverage nope", se.Message)
	assert.Equal(t, "wcs service exception (InvalidParameterValue): Unknown coverage nope", se.Error())

	_, err = client.Open(context.Background(), srv.URL+"/broken", "1.1.0")
	var he *HTTPError
	require.True(t, errors.As(err, &he), "expected an http error, got %v", err)
	assert.Equal(t, http.StatusInternalServerError, he.StatusCode)

	_, err = client.Open(context.Background(), srv.URL, "2.0.1")
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))
}

func TestGetCoverage(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)

	s, err := NewClient().Open(context.Background(), srv.URL+"/wcs", "1.0.0")
	require.NoError(t, err)

	resp, err := s.GetCoverage(context.Background(), GetCoverageParams{
		Identifier: "dem",
		BBox:       []float64{3.2, 50.7, 7.3, 53.6},
		CRS:        "EPSG:4326",
		Format:     "GeoTIFF",
		Width:      10,
		Height:     10,
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "II*map=dem&version=1.0.0&request=GetCoverage&service=WCS&Coverage=dem&BBox=3.2%2C50.7%2C7.3%2C53.6&crs=EPSG%3A4326&format=GeoTIFF&width=10&height=10", string(body))

	_, err = s.GetCoverage(context.Background(), GetCoverageParams{Identifier: "nope", Method: "POST"})
	var se *ServiceException
	require.True(t, errors.As(err, &se), "expected a service exception, got %v", err)
	assert.Equal(t, "CoverageNotDefined", se.Code)
}

func TestClientOptions(t *testing.T) {
	doc := readFixture(t, "wcs100_capabilities.xml")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("X-Api-Key") != "k" || r.UserAgent() != "test-agent" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write(doc)
	}))
	defer srv.Close()

	client := NewClient(
		WithBasicAuth("alice", "secret"),
		WithHeader("X-Api-Key", "k"),
		WithUserAgent("test-agent"),
		WithCookies(&http.Cookie{Name: "session", Value: "abc"}),
		WithTimeout(5*time.Second),
	)
	s, err := client.Open(context.Background(), srv.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", s.Version)

	var he *HTTPError
	_, err = NewClient().Open(context.Background(), srv.URL, "")
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusUnauthorized, he.StatusCode)
}

func TestDescribeCoverageOutlivesCancelledCaller(t *testing.T) {
	caps := readFixture(t, "wcs100_capabilities.xml")
	describe := readFixture(t, "wcs100_describecoverage.xml")

	var hits int32
	started := make(chan struct{})
	release := make(chan struct{})

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/wcs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.ReplaceAll(string(caps), "http://example.org", srv.URL)))
	})
	mux.HandleFunc("/describe", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			close(started)
		}
		<-release
		_, _ = w.Write(describe)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s, err := NewClient(WithLogger(zaptest.NewLogger(t))).Open(context.Background(), srv.URL+"/wcs", "1.0.0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := s.DescribeCoverage(ctx, "landcover")
		first <- err
	}()
	<-started

	second := make(chan error, 1)
	go func() {
		desc, err := s.DescribeCoverage(context.Background(), "landcover")
		if err == nil && desc.Identifier != "landcover" {
			err = errors.New("unexpected description " + desc.Identifier)
		}
		second <- err
	}()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	assert.NoError(t, <-second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	desc, err := s.DescribeCoverage(context.Background(), "landcover")
	require.NoError(t, err)
	assert.Equal(t, "landcover", desc.Identifier)
}

func TestParseWithoutVersionAttribute(t *testing.T) {
	doc100 := `<WCS_Capabilities xmlns="http://www.opengis.net/wcs">
  <ContentMetadata><CoverageOfferingBrief><name>dem</name></CoverageOfferingBrief></ContentMetadata>
</WCS_Capabilities>`
	s, err := Parse("http://example.org/wcs", "", []byte(doc100))
	require.NoError(t, err)
	assert.Equal(t, Version100, s.Version)
	require.Len(t, s.Contents, 1)
	assert.Equal(t, "dem", s.Contents[0].ID)

	doc110 := `<Capabilities xmlns="http://www.opengis.net/wcs/1.1.1" xmlns:ows="http://www.opengis.net/ows/1.1">
  <Contents><CoverageSummary><Identifier>sst</Identifier></CoverageSummary></Contents>
</Capabilities>`
	s, err = Parse("http://example.org/wcs", "", []byte(doc110))
	require.NoError(t, err)
	assert.Equal(t, Version110, s.Version)
	require.Len(t, s.Contents, 1)
	assert.Equal(t, "sst", s.Contents[0].ID)

	_, err = Parse("http://example.org/wcs", "", []byte(`<Capabilities xmlns="http://www.opengis.net/wmts/1.0"/>`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}
