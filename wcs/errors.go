package wcs

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoContent          = errors.New("no content with this identifier")
	ErrNoOperation        = errors.New("no operation with this name")
	ErrUnsupportedVersion = errors.New("unsupported WCS version")
	ErrMissingIdentifier  = errors.New("a coverage identifier is required")
)

// ServiceException is an exception report returned by a WCS server in place
// of the requested document.
type ServiceException struct {
	Code    string
	Locator string
	Message string
	// XML holds the complete exception document.
	XML []byte
}

func (e *ServiceException) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("wcs service exception (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("wcs service exception: %s", e.Message)
}

// HTTPError is returned when a server answers with an error status and the
// body is not an exception report.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("wcs request to %s failed with status %d", e.URL, e.StatusCode)
}

type serviceExceptionReport struct {
	XMLName    xml.Name `xml:"ServiceExceptionReport"`
	Exceptions []struct {
		Code    string `xml:"code,attr"`
		Locator string `xml:"locator,attr"`
		Text    string `xml:",chardata"`
	} `xml:"ServiceException"`
}

type owsExceptionReport struct {
	XMLName    xml.Name `xml:"ExceptionReport"`
	Exceptions []struct {
		Code    string   `xml:"exceptionCode,attr"`
		Locator string   `xml:"locator,attr"`
		Text    []string `xml:"http://www.opengis.net/ows/1.1 ExceptionText"`
	} `xml:"http://www.opengis.net/ows/1.1 Exception"`
}

func isExceptionReport(root xml.Name) bool {
	return root.Local == "ServiceExceptionReport" || root.Local == "ExceptionReport"
}

// parseExceptionReport turns a 1.0 ServiceExceptionReport or a 1.1
// ows:ExceptionReport into a *ServiceException. The first exception of the
// report is used.
func parseExceptionReport(doc []byte) error {
	root, _, err := rootElement(doc)
	if err != nil {
		return err
	}

	se := &ServiceException{XML: doc}
	switch root.Local {
	case "ServiceExceptionReport":
		var report serviceExceptionReport
		if err := decodeDocument(doc, &report); err != nil {
			return err
		}
		if len(report.Exceptions) > 0 {
			se.Code = report.Exceptions[0].Code
			se.Locator = report.Exceptions[0].Locator
			se.Message = strings.TrimSpace(report.Exceptions[0].Text)
		}
	case "ExceptionReport":
		var report owsExceptionReport
		if err := decodeDocument(doc, &report); err != nil {
			return err
		}
		if len(report.Exceptions) > 0 {
			se.Code = report.Exceptions[0].Code
			se.Locator = report.Exceptions[0].Locator
			se.Message = strings.TrimSpace(strings.Join(report.Exceptions[0].Text, " "))
		}
	default:
		return fmt.Errorf("document root %s is not an exception report", root.Local)
	}

	return se
}
