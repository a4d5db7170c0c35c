package fes

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	DefaultTypeNames    = "csw:Record"
	DefaultPropertyName = "csw:AnyText"
)

// FilterRequest collects the constraints of an ogc:Filter element.
type FilterRequest struct {
	Version string
	// SchemaLocation adds xsi:schemaLocation to the root, used when the filter
	// is embedded in a larger request.
	SchemaLocation bool

	constraints []Expression
}

func NewFilterRequest() *FilterRequest {
	return &FilterRequest{Version: "1.1.0"}
}

// Query holds the common search criteria combined by Set.
type Query struct {
	Type         string
	Keywords     []string
	PropertyName string
	BBox         []float64
	// Identifier matches dc:identifier and overrides every other criterion.
	Identifier string
}

// Set adds the constraints for q: an identifier match alone, or the
// conjunction of the keyword, bounding box and type criteria that are set.
func (f *FilterRequest) Set(q Query) error {
	if q.Identifier != "" {
		f.constraints = append(f.constraints, PropertyIsEqualTo("dc:identifier", q.Identifier))
		return nil
	}

	propertyName := q.PropertyName
	if propertyName == "" {
		propertyName = DefaultPropertyName
	}

	var filters []Expression
	switch len(q.Keywords) {
	case 0:
	case 1:
		filters = append(filters, keywordFilter(propertyName, q.Keywords[0]))
	default:
		ks := make([]Expression, 0, len(q.Keywords))
		for _, k := range q.Keywords {
			ks = append(ks, keywordFilter(propertyName, k))
		}
		or, err := Or(ks...)
		if err != nil {
			return err
		}
		filters = append(filters, or)
	}

	if q.BBox != nil {
		if len(q.BBox) != 4 {
			return fmt.Errorf("bbox needs 4 values, got %d", len(q.BBox))
		}
		filters = append(filters, &BBox{Box: [4]float64{q.BBox[0], q.BBox[1], q.BBox[2], q.BBox[3]}})
	}
	if q.Type != "" {
		filters = append(filters, PropertyIsEqualTo("dc:type", q.Type))
	}

	switch len(filters) {
	case 0:
	case 1:
		f.constraints = append(f.constraints, filters[0])
	default:
		and, err := And(filters...)
		if err != nil {
			return err
		}
		f.constraints = append(f.constraints, and)
	}
	return nil
}

func keywordFilter(propertyName, keyword string) Expression {
	like := NewPropertyIsLike(propertyName, "*"+keyword+"*")
	like.WildCard = "*"
	return like
}

func (f *FilterRequest) SetConstraint(e Expression) {
	f.constraints = append(f.constraints, e)
}

// SetConstraintList adds groups of expressions: the expressions of a group
// are combined with And and the groups with Or.
//
//	[[a, b, c]]         a && b && c
//	[[a], [b], [c]]     a || b || c
//	[[a, b], [c], [d]]  (a && b) || c || d
func (f *FilterRequest) SetConstraintList(groups [][]Expression) error {
	ors := make([]Expression, 0, len(groups))
	for _, group := range groups {
		switch len(group) {
		case 0:
		case 1:
			ors = append(ors, group[0])
		default:
			and, err := And(group...)
			if err != nil {
				return err
			}
			ors = append(ors, and)
		}
	}

	if len(ors) == 1 {
		f.constraints = append(f.constraints, ors[0])
		return nil
	}
	or, err := Or(ors...)
	if err != nil {
		return err
	}
	f.constraints = append(f.constraints, or)
	return nil
}

type filterDocument struct {
	XMLName        xml.Name `xml:"ogc:Filter"`
	OGC            string   `xml:"xmlns:ogc,attr"`
	GML            string   `xml:"xmlns:gml,attr"`
	XSI            string   `xml:"xmlns:xsi,attr,omitempty"`
	SchemaLocation string   `xml:"xsi:schemaLocation,attr,omitempty"`
	Constraints    []Expression
}

func (f *FilterRequest) document() filterDocument {
	doc := filterDocument{OGC: NamespaceOGC, GML: NamespaceGML, Constraints: f.constraints}
	if f.SchemaLocation {
		doc.XSI = NamespaceXSI
		doc.SchemaLocation = SchemaLocation
	}
	return doc
}

func (f *FilterRequest) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	return e.Encode(f.document())
}

// String renders the filter without an XML declaration.
func (f *FilterRequest) String() string {
	out, err := xml.Marshal(f)
	if err != nil {
		return ""
	}
	return string(out)
}

// SortProperty orders results by one property, ASC or DESC.
type SortProperty struct {
	PropertyName string `xml:"ogc:PropertyName"`
	Order        string `xml:"ogc:SortOrder"`
}

func NewSortProperty(name, order string) (SortProperty, error) {
	if order == "" {
		order = "ASC"
	}
	order = strings.ToUpper(order)
	if order != "ASC" && order != "DESC" {
		return SortProperty{}, fmt.Errorf("sort order must be ASC or DESC, got %q", order)
	}
	return SortProperty{PropertyName: name, Order: order}, nil
}

type SortBy struct {
	XMLName    xml.Name       `xml:"ogc:SortBy"`
	Properties []SortProperty `xml:"ogc:SortProperty"`
}

func NewSortBy(properties ...SortProperty) *SortBy {
	return &SortBy{Properties: properties}
}
