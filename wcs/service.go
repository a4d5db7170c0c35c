package wcs

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	Version100 = "1.0.0"
	Version110 = "1.1.0"
)

func isVersion11(version string) bool {
	return version == "1.1" || strings.HasPrefix(version, "1.1.")
}

// SupportedVersion reports whether version can be parsed by this package.
func SupportedVersion(version string) bool {
	return version == Version100 || isVersion11(version)
}

type ServiceIdentification struct {
	Type              string   `json:"type"`
	Version           string   `json:"version"`
	Service           string   `json:"service"`
	Title             string   `json:"title,omitempty"`
	Abstract          string   `json:"abstract,omitempty"`
	Keywords          []string `json:"keywords,omitempty"`
	Fees              string   `json:"fees,omitempty"`
	AccessConstraints string   `json:"accessConstraints,omitempty"`
}

type ServiceProvider struct {
	Name    string           `json:"name,omitempty"`
	URL     string           `json:"url,omitempty"`
	Contact *ContactMetadata `json:"contact,omitempty"`
}

type ContactMetadata struct {
	Name         string `json:"name,omitempty"`
	Organization string `json:"organization,omitempty"`
	Position     string `json:"position,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	Region       string `json:"region,omitempty"`
	Postcode     string `json:"postcode,omitempty"`
	Country      string `json:"country,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// OperationMethod is one DCP endpoint of an operation.
type OperationMethod struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type OperationParameter struct {
	Name   string   `json:"name"`
	Values []string `json:"values,omitempty"`
}

type OperationMetadata struct {
	Name          string               `json:"name"`
	FormatOptions []string             `json:"formatOptions,omitempty"`
	Parameters    []OperationParameter `json:"parameters,omitempty"`
	Methods       []OperationMethod    `json:"methods"`
}

// MethodURL returns the URL of the first method of the given type, compared
// case insensitively.
func (o OperationMetadata) MethodURL(method string) (string, bool) {
	for _, m := range o.Methods {
		if strings.EqualFold(m.Type, method) {
			return m.URL, true
		}
	}
	return "", false
}

// Service is a parsed WCS capabilities document bound to the client that
// fetched it.
type Service struct {
	Version        string                `json:"version"`
	URL            string                `json:"url"`
	UpdateSequence string                `json:"updateSequence,omitempty"`
	Identification ServiceIdentification `json:"identification"`
	Provider       ServiceProvider       `json:"provider"`
	Operations     []OperationMetadata   `json:"operations"`
	Exceptions     []string              `json:"exceptions,omitempty"`
	Contents       []*CoverageMetadata   `json:"contents"`

	client    *Client
	index     map[string]*CoverageMetadata
	group     singleflight.Group
	mu        sync.Mutex
	described map[string]*CoverageDescription
}

func newService(client *Client, version, serviceURL string) *Service {
	return &Service{
		Version:   version,
		URL:       serviceURL,
		client:    client,
		index:     map[string]*CoverageMetadata{},
		described: map[string]*CoverageDescription{},
	}
}

// addContent registers cm. A repeated identifier replaces the earlier entry
// in place.
func (s *Service) addContent(cm *CoverageMetadata) {
	cm.service = s
	if existing, ok := s.index[cm.ID]; ok {
		for i, c := range s.Contents {
			if c == existing {
				s.Contents[i] = cm
			}
		}
	} else {
		s.Contents = append(s.Contents, cm)
	}
	s.index[cm.ID] = cm
}

// Coverage returns the content metadata for the coverage named id.
func (s *Service) Coverage(id string) (*CoverageMetadata, error) {
	cm, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, id)
	}
	return cm, nil
}

// Items returns the coverages in document order.
func (s *Service) Items() []*CoverageMetadata {
	items := make([]*CoverageMetadata, len(s.Contents))
	copy(items, s.Contents)
	return items
}

func (s *Service) OperationByName(name string) (OperationMetadata, error) {
	for _, op := range s.Operations {
		if op.Name == name {
			return op, nil
		}
	}
	return OperationMetadata{}, fmt.Errorf("%w: %s", ErrNoOperation, name)
}

// operationURL returns the URL advertised for the named operation and method,
// falling back to the service URL.
func (s *Service) operationURL(name, method string) string {
	op, err := s.OperationByName(name)
	if err != nil {
		return s.URL
	}
	if u, ok := op.MethodURL(method); ok && u != "" {
		return u
	}
	return s.URL
}

// DescribeCoverage returns the description of the coverage named id. The
// document is fetched once per identifier; concurrent callers share a single
// request.
func (s *Service) DescribeCoverage(ctx context.Context, id string) (*CoverageDescription, error) {
	if desc, ok := s.cached(id); ok {
		return desc, nil
	}

	ch := s.group.DoChan(id, func() (interface{}, error) {
		// A flight that finished since the check above already stored it.
		if desc, ok := s.cached(id); ok {
			return desc, nil
		}

		u := DescribeCoverageURL(s.operationURL("DescribeCoverage", "Get"), s.Version, id)
		s.client.logger.Debug("describing coverage",
			zap.String("version", s.Version),
			zap.String("coverage", id),
			zap.String("url", u))

		// Shared by every caller waiting on id, not bound to the one that
		// started it.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.client.timeout())
		defer cancel()

		doc, err := s.client.fetch(fetchCtx, u)
		if err != nil {
			return nil, err
		}

		desc, err := parseCoverageDescription(s.Version, id, doc)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.described[id] = desc
		s.mu.Unlock()
		return desc, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*CoverageDescription), nil
	}
}

func (s *Service) cached(id string) (*CoverageDescription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	desc, ok := s.described[id]
	return desc, ok
}

func parseCoverageDescription(version, id string, doc []byte) (*CoverageDescription, error) {
	root, _, err := rootElement(doc)
	if err != nil {
		return nil, err
	}
	if isExceptionReport(root) {
		return nil, parseExceptionReport(doc)
	}

	switch {
	case version == Version100:
		return parseDescribeCoverage100(doc, id)
	case isVersion11(version):
		return parseDescribeCoverage110(doc, id)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}
}
