// Package fes builds OGC Filter Encoding 1.1 constraints and reads the
// Filter_Capabilities section of service documents.
package fes

import (
	"encoding/xml"
	"errors"
	"strconv"
)

const (
	NamespaceOGC = "http://www.opengis.net/ogc"
	NamespaceFES = "http://www.opengis.net/fes/2.0"
	NamespaceGML = "http://www.opengis.net/gml"
	NamespaceXSI = "http://www.w3.org/2001/XMLSchema-instance"

	SchemaLocation = NamespaceOGC + " http://schemas.opengis.net/filter/1.1.0/filter.xsd"
)

var ErrTooFewOperands = errors.New("and/or need at least two operands")

// Expression is a filter constraint. Every expression renders itself as a
// single ogc: prefixed element.
type Expression interface {
	xml.Marshaler
}

func element(name string) xml.StartElement {
	return xml.StartElement{Name: xml.Name{Local: "ogc:" + name}}
}

type propertyLiteral struct {
	MatchCase    string `xml:"matchCase,attr,omitempty"`
	PropertyName string `xml:"ogc:PropertyName"`
	Literal      string `xml:"ogc:Literal"`
}

// BinaryComparison compares a property with a literal.
type BinaryComparison struct {
	Operator     string
	PropertyName string
	Literal      string
	MatchCase    bool
}

func (b *BinaryComparison) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	v := propertyLiteral{PropertyName: b.PropertyName, Literal: b.Literal}
	if !b.MatchCase {
		v.MatchCase = "false"
	}
	return e.EncodeElement(v, element(b.Operator))
}

func comparison(op, name, literal string) *BinaryComparison {
	return &BinaryComparison{Operator: op, PropertyName: name, Literal: literal, MatchCase: true}
}

func PropertyIsEqualTo(name, literal string) *BinaryComparison {
	return comparison("PropertyIsEqualTo", name, literal)
}

func PropertyIsNotEqualTo(name, literal string) *BinaryComparison {
	return comparison("PropertyIsNotEqualTo", name, literal)
}

func PropertyIsLessThan(name, literal string) *BinaryComparison {
	return comparison("PropertyIsLessThan", name, literal)
}

func PropertyIsGreaterThan(name, literal string) *BinaryComparison {
	return comparison("PropertyIsGreaterThan", name, literal)
}

func PropertyIsLessThanOrEqualTo(name, literal string) *BinaryComparison {
	return comparison("PropertyIsLessThanOrEqualTo", name, literal)
}

func PropertyIsGreaterThanOrEqualTo(name, literal string) *BinaryComparison {
	return comparison("PropertyIsGreaterThanOrEqualTo", name, literal)
}

// PropertyIsLike matches a property against a pattern.
type PropertyIsLike struct {
	PropertyName string
	Literal      string
	EscapeChar   string
	SingleChar   string
	WildCard     string
	MatchCase    bool
}

// NewPropertyIsLike uses % as wildcard, _ as single character and a
// backslash as escape.
func NewPropertyIsLike(name, pattern string) *PropertyIsLike {
	return &PropertyIsLike{
		PropertyName: name,
		Literal:      pattern,
		EscapeChar:   `\`,
		SingleChar:   "_",
		WildCard:     "%",
		MatchCase:    true,
	}
}

func (p *PropertyIsLike) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	v := struct {
		WildCard   string `xml:"wildCard,attr"`
		SingleChar string `xml:"singleChar,attr"`
		EscapeChar string `xml:"escapeChar,attr"`
		propertyLiteral
	}{
		WildCard:        p.WildCard,
		SingleChar:      p.SingleChar,
		EscapeChar:      p.EscapeChar,
		propertyLiteral: propertyLiteral{PropertyName: p.PropertyName, Literal: p.Literal},
	}
	if !p.MatchCase {
		v.MatchCase = "false"
	}
	return e.EncodeElement(v, element("PropertyIsLike"))
}

type PropertyIsNull struct {
	PropertyName string
}

func (p *PropertyIsNull) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	v := struct {
		PropertyName string `xml:"ogc:PropertyName"`
	}{p.PropertyName}
	return e.EncodeElement(v, element("PropertyIsNull"))
}

type PropertyIsBetween struct {
	PropertyName string
	Lower        string
	Upper        string
}

func (p *PropertyIsBetween) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	v := struct {
		PropertyName string `xml:"ogc:PropertyName"`
		Lower        string `xml:"ogc:LowerBoundary>ogc:Literal"`
		Upper        string `xml:"ogc:UpperBoundary>ogc:Literal"`
	}{p.PropertyName, p.Lower, p.Upper}
	return e.EncodeElement(v, element("PropertyIsBetween"))
}

// BBox selects records whose ows:BoundingBox intersects the envelope
// minx, miny, maxx, maxy.
type BBox struct {
	Box [4]float64
	CRS string
}

func (b *BBox) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	v := struct {
		PropertyName string `xml:"ogc:PropertyName"`
		Envelope     struct {
			SrsName string `xml:"srsName,attr,omitempty"`
			Lower   string `xml:"gml:lowerCorner"`
			Upper   string `xml:"gml:upperCorner"`
		} `xml:"gml:Envelope"`
	}{PropertyName: "ows:BoundingBox"}
	v.Envelope.SrsName = b.CRS
	v.Envelope.Lower = formatPair(b.Box[0], b.Box[1])
	v.Envelope.Upper = formatPair(b.Box[2], b.Box[3])
	return e.EncodeElement(v, element("BBOX"))
}

func formatPair(x, y float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64) + " " + strconv.FormatFloat(y, 'f', -1, 64)
}

// BinaryLogic combines two or more expressions with And or Or.
type BinaryLogic struct {
	Operator   string
	Operations []Expression
}

func binaryLogic(op string, operations []Expression) (*BinaryLogic, error) {
	if len(operations) < 2 {
		return nil, ErrTooFewOperands
	}
	return &BinaryLogic{Operator: op, Operations: operations}, nil
}

func And(operations ...Expression) (*BinaryLogic, error) {
	return binaryLogic("And", operations)
}

func Or(operations ...Expression) (*BinaryLogic, error) {
	return binaryLogic("Or", operations)
}

func (b *BinaryLogic) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	return encodeChildren(e, element(b.Operator), b.Operations)
}

type Not struct {
	Operations []Expression
}

func (n *Not) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	return encodeChildren(e, element("Not"), n.Operations)
}

func encodeChildren(e *xml.Encoder, start xml.StartElement, children []Expression) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, child := range children {
		if err := e.Encode(child); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}
