package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/delta10/wcs-client/internal/auth"
	"github.com/delta10/wcs-client/internal/utils"
	"github.com/delta10/wcs-client/wcs"
)

const requestIDHeader = "X-Request-Id"

type requestIDKey struct{}

func (g *Gateway) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(requestIDHeader, id)
		g.logger.Debug("request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type serviceSummary struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Version string `json:"version,omitempty"`
}

func (g *Gateway) listServices(w http.ResponseWriter, r *http.Request) {
	services := []serviceSummary{}
	for _, name := range g.serviceNames() {
		s := g.config.Services[name]
		services = append(services, serviceSummary{Name: name, URL: s.URL, Version: s.Version})
	}
	utils.WriteJSON(w, http.StatusOK, services)
}

func (g *Gateway) openService(w http.ResponseWriter, r *http.Request) (string, *wcs.Service, bool) {
	name := mux.Vars(r)["service"]
	if _, ok := g.config.Services[name]; !ok {
		utils.WriteError(w, http.StatusNotFound, "could not find service: "+name)
		return name, nil, false
	}

	s, err := g.service(r.Context(), name)
	if err != nil {
		g.writeBackendError(w, name, err)
		return name, nil, false
	}
	return name, s, true
}

func (g *Gateway) capabilities(w http.ResponseWriter, r *http.Request) {
	name, s, ok := g.openService(w, r)
	if !ok {
		return
	}

	var view interface{} = s
	if filter := g.config.Services[name].Filter; filter != "" {
		filtered, err := utils.ApplyFilter(filter, s)
		if err != nil {
			g.logger.Error("could not filter capabilities", zap.String("service", name), zap.Error(err))
			utils.WriteError(w, http.StatusInternalServerError, "could not filter capabilities")
			return
		}
		view = filtered
	}

	utils.WriteJSON(w, http.StatusOK, view)
}

type coverageView struct {
	Metadata    *wcs.CoverageMetadata    `json:"metadata"`
	Description *wcs.CoverageDescription `json:"description"`
}

func (g *Gateway) coverage(w http.ResponseWriter, r *http.Request) {
	name, s, ok := g.openService(w, r)
	if !ok {
		return
	}

	cm, err := s.Coverage(mux.Vars(r)["coverage"])
	if err != nil {
		g.writeBackendError(w, name, err)
		return
	}

	desc, err := s.DescribeCoverage(r.Context(), cm.ID)
	if err != nil {
		g.writeBackendError(w, name, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, coverageView{Metadata: cm, Description: desc})
}

func (g *Gateway) coverageData(w http.ResponseWriter, r *http.Request) {
	if utils.QueryParamsContainMultipleKeys(r.URL.Query()) {
		utils.WriteError(w, http.StatusBadRequest, "query parameters contain multiple keys")
		return
	}

	params, err := coverageParams(mux.Vars(r)["coverage"], utils.QueryParamsToLower(r.URL.Query()))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	name, s, ok := g.openService(w, r)
	if !ok {
		return
	}

	if _, err := s.Coverage(params.Identifier); err != nil {
		g.writeBackendError(w, name, err)
		return
	}

	resp, err := s.GetCoverage(r.Context(), params)
	if err != nil {
		g.audit(r, name, params.Identifier, http.StatusBadGateway)
		g.writeBackendError(w, name, err)
		return
	}
	defer resp.Body.Close()

	utils.DelHopHeaders(resp.Header)
	utils.CopyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		g.logger.Warn("could not copy coverage", zap.String("service", name), zap.Error(err))
	}

	g.audit(r, name, params.Identifier, resp.StatusCode)
}

// reservedKeys are set by the gateway from the route and may not be passed
// on as vendor parameters.
var reservedKeys = map[string]bool{
	"service":      true,
	"request":      true,
	"version":      true,
	"coverage":     true,
	"identifier":   true,
	"boundingbox":  true,
	"timesequence": true,
	"gridbasecrs":  true,
	"gridtype":     true,
	"gridcs":       true,
	"gridorigin":   true,
	"gridoffsets":  true,
}

// coverageParams maps the gateway query onto GetCoverage parameters. Keys
// are expected in lower case; unknown keys are passed on as vendor
// parameters.
func coverageParams(identifier string, query map[string][]string) (wcs.GetCoverageParams, error) {
	p := wcs.GetCoverageParams{Identifier: identifier}

	for key, values := range query {
		if reservedKeys[key] {
			return p, fmt.Errorf("query parameter %s is not allowed", key)
		}

		value := values[0]
		var err error

		switch key {
		case "bbox":
			p.BBox, err = parseFloats(value)
		case "time":
			p.Time = strings.Split(value, ",")
		case "format":
			p.Format = value
		case "crs":
			p.CRS = value
			p.BBoxCRS = value
		case "width":
			p.Width, err = strconv.Atoi(value)
		case "height":
			p.Height, err = strconv.Atoi(value)
		case "resx":
			p.ResX, err = strconv.ParseFloat(value, 64)
		case "resy":
			p.ResY, err = strconv.ParseFloat(value, 64)
		case "resz":
			p.ResZ, err = strconv.ParseFloat(value, 64)
		case "store":
			p.Store, err = strconv.ParseBool(value)
		case "rangesubset":
			p.RangeSubset = value
		default:
			if p.Vendor == nil {
				p.Vendor = map[string][]string{}
			}
			p.Vendor[key] = values
		}

		if err != nil {
			return p, fmt.Errorf("invalid value for %s: %s", key, value)
		}
	}

	return p, nil
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 && len(parts) != 6 {
		return nil, errors.New("expected 4 or 6 values")
	}

	values := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (g *Gateway) writeBackendError(w http.ResponseWriter, service string, err error) {
	var se *wcs.ServiceException
	var he *wcs.HTTPError

	switch {
	case errors.Is(err, wcs.ErrNoContent):
		utils.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, wcs.ErrMissingIdentifier):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &se):
		utils.WriteJSON(w, http.StatusBadGateway, map[string]string{
			"message": "backend returned an exception",
			"code":    se.Code,
			"locator": se.Locator,
			"detail":  se.Message,
		})
	case errors.As(err, &he):
		utils.WriteError(w, http.StatusBadGateway, fmt.Sprintf("backend returned status %d", he.StatusCode))
	case errors.Is(err, context.DeadlineExceeded):
		utils.WriteError(w, http.StatusGatewayTimeout, "backend did not respond in time")
	default:
		g.logger.Error("backend request failed", zap.String("service", service), zap.Error(err))
		utils.WriteError(w, http.StatusBadGateway, "could not fetch backend response")
	}
}

// audit pushes a line describing a coverage download to the log backend of
// the service.
func (g *Gateway) audit(r *http.Request, service, coverage string, status int) {
	lb, ok := g.logBackends[service]
	if !ok {
		return
	}

	line := map[string]string{
		"request_id": requestIDFrom(r.Context()),
		"ip":         utils.ReadUserIP(r),
		"user_agent": r.Header.Get("User-Agent"),
		"coverage":   coverage,
		"query":      r.URL.RawQuery,
		"status":     strconv.Itoa(status),
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		line["subject"] = claims.Subject
	}

	labels := map[string]string{"app": "wcs-gateway", "service": service}
	if err := lb.WriteLog(context.WithoutCancel(r.Context()), labels, line); err != nil {
		g.logger.Warn("could not write audit log", zap.String("service", service), zap.Error(err))
	}
}
