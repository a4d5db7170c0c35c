package fes

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// FilterCapabilities lists the operators a service supports, read from a
// Filter 1.1 (ogc:) or 2.0 (fes:) Filter_Capabilities element.
type FilterCapabilities struct {
	Version                   string            `json:"version"`
	SpatialOperands           []string          `json:"spatialOperands,omitempty"`
	SpatialOperators          []string          `json:"spatialOperators,omitempty"`
	TemporalOperands          []string          `json:"temporalOperands,omitempty"`
	TemporalOperators         []string          `json:"temporalOperators,omitempty"`
	ScalarComparisonOperators []string          `json:"scalarComparisonOperators,omitempty"`
	Conformance               map[string]string `json:"conformance,omitempty"`
}

// named is an operand or operator. Filter 1.1 gives operands as text, 2.0
// as a name attribute.
type named struct {
	Name string `xml:"name,attr"`
	Text string `xml:",chardata"`
}

func (n named) value() string {
	if n.Name != "" {
		return n.Name
	}
	return strings.TrimSpace(n.Text)
}

func values(nn []named) []string {
	out := make([]string, 0, len(nn))
	for _, n := range nn {
		if v := n.value(); v != "" {
			out = append(out, v)
		}
	}
	return out
}

type filterCapabilities struct {
	XMLName           xml.Name
	SpatialOperands   []named `xml:"Spatial_Capabilities>GeometryOperands>GeometryOperand"`
	SpatialOperators  []named `xml:"Spatial_Capabilities>SpatialOperators>SpatialOperator"`
	TemporalOperands  []named `xml:"Temporal_Capabilities>TemporalOperands>TemporalOperand"`
	TemporalOperators []named `xml:"Temporal_Capabilities>TemporalOperators>TemporalOperator"`
	Comparison        []named `xml:"Scalar_Capabilities>ComparisonOperators>ComparisonOperator"`
	Constraints       []struct {
		Name         string `xml:"name,attr"`
		DefaultValue string `xml:"DefaultValue"`
	} `xml:"Conformance>Constraint"`
}

// ParseFilterCapabilities reads a document whose root is
// Filter_Capabilities.
func ParseFilterCapabilities(doc []byte) (*FilterCapabilities, error) {
	var raw filterCapabilities
	if err := xml.NewDecoder(bytes.NewReader(doc)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("could not decode filter capabilities: %w", err)
	}
	if raw.XMLName.Local != "Filter_Capabilities" {
		return nil, fmt.Errorf("unexpected root element %s", raw.XMLName.Local)
	}

	fc := &FilterCapabilities{
		Version:                   "1.1.0",
		SpatialOperands:           values(raw.SpatialOperands),
		SpatialOperators:          values(raw.SpatialOperators),
		TemporalOperands:          values(raw.TemporalOperands),
		TemporalOperators:         values(raw.TemporalOperators),
		ScalarComparisonOperators: values(raw.Comparison),
	}
	if raw.XMLName.Space == NamespaceFES {
		fc.Version = "2.0.0"
	}
	for _, c := range raw.Constraints {
		if fc.Conformance == nil {
			fc.Conformance = map[string]string{}
		}
		fc.Conformance[c.Name] = strings.TrimSpace(c.DefaultValue)
	}
	return fc, nil
}
