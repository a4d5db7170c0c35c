package wcs

import (
	"encoding/xml"
	"fmt"
	"strings"
)

type href struct {
	Href string `xml:"http://www.w3.org/1999/xlink href,attr"`
}

type boundingBox110 struct {
	CRS         string `xml:"crs,attr"`
	LowerCorner string `xml:"http://www.opengis.net/ows/1.1 LowerCorner"`
	UpperCorner string `xml:"http://www.opengis.net/ows/1.1 UpperCorner"`
}

func (b boundingBox110) boundingBox() (*BoundingBox, error) {
	return parseCorners(b.LowerCorner, b.UpperCorner, strings.TrimSpace(b.CRS))
}

type capabilities110 struct {
	XMLName               xml.Name                  `xml:"Capabilities"`
	Version               string                    `xml:"version,attr"`
	UpdateSequence        string                    `xml:"updateSequence,attr"`
	ServiceIdentification *serviceIdentification110 `xml:"http://www.opengis.net/ows/1.1 ServiceIdentification"`
	ServiceProvider       *serviceProvider110       `xml:"http://www.opengis.net/ows/1.1 ServiceProvider"`
	Operations            []operation110            `xml:"http://www.opengis.net/ows/1.1 OperationsMetadata>Operation"`
	Contents              struct {
		Summaries []coverageSummary110 `xml:"http://www.opengis.net/wcs/1.1 CoverageSummary"`
	} `xml:"http://www.opengis.net/wcs/1.1 Contents"`
}

type serviceIdentification110 struct {
	Title              string   `xml:"http://www.opengis.net/ows/1.1 Title"`
	Abstract           string   `xml:"http://www.opengis.net/ows/1.1 Abstract"`
	Keywords           []string `xml:"http://www.opengis.net/ows/1.1 Keywords>Keyword"`
	ServiceType        string   `xml:"http://www.opengis.net/ows/1.1 ServiceType"`
	ServiceTypeVersion []string `xml:"http://www.opengis.net/ows/1.1 ServiceTypeVersion"`
	Fees               string   `xml:"http://www.opengis.net/ows/1.1 Fees"`
	AccessConstraints  []string `xml:"http://www.opengis.net/ows/1.1 AccessConstraints"`
}

type serviceProvider110 struct {
	ProviderName   string `xml:"http://www.opengis.net/ows/1.1 ProviderName"`
	ProviderSite   href   `xml:"http://www.opengis.net/ows/1.1 ProviderSite"`
	ServiceContact struct {
		IndividualName string   `xml:"http://www.opengis.net/ows/1.1 IndividualName"`
		PositionName   string   `xml:"http://www.opengis.net/ows/1.1 PositionName"`
		Voice          []string `xml:"http://www.opengis.net/ows/1.1 ContactInfo>Phone>Voice"`
		Address        struct {
			DeliveryPoint         []string `xml:"http://www.opengis.net/ows/1.1 DeliveryPoint"`
			City                  string   `xml:"http://www.opengis.net/ows/1.1 City"`
			AdministrativeArea    string   `xml:"http://www.opengis.net/ows/1.1 AdministrativeArea"`
			PostalCode            string   `xml:"http://www.opengis.net/ows/1.1 PostalCode"`
			Country               string   `xml:"http://www.opengis.net/ows/1.1 Country"`
			ElectronicMailAddress []string `xml:"http://www.opengis.net/ows/1.1 ElectronicMailAddress"`
		} `xml:"http://www.opengis.net/ows/1.1 ContactInfo>Address"`
	} `xml:"http://www.opengis.net/ows/1.1 ServiceContact"`
}

type operation110 struct {
	Name string `xml:"name,attr"`
	DCP  []struct {
		HTTP struct {
			Get  []href `xml:"http://www.opengis.net/ows/1.1 Get"`
			Post []href `xml:"http://www.opengis.net/ows/1.1 Post"`
		} `xml:"http://www.opengis.net/ows/1.1 HTTP"`
	} `xml:"http://www.opengis.net/ows/1.1 DCP"`
	Parameters []struct {
		Name          string   `xml:"name,attr"`
		Values        []string `xml:"http://www.opengis.net/ows/1.1 Value"`
		AllowedValues []string `xml:"http://www.opengis.net/ows/1.1 AllowedValues>Value"`
	} `xml:"http://www.opengis.net/ows/1.1 Parameter"`
}

type coverageSummary110 struct {
	Title            string               `xml:"http://www.opengis.net/ows/1.1 Title"`
	Abstract         string               `xml:"http://www.opengis.net/ows/1.1 Abstract"`
	Keywords         []string             `xml:"http://www.opengis.net/ows/1.1 Keywords>Keyword"`
	WGS84BoundingBox []boundingBox110     `xml:"http://www.opengis.net/ows/1.1 WGS84BoundingBox"`
	BoundingBox      []boundingBox110     `xml:"http://www.opengis.net/ows/1.1 BoundingBox"`
	Identifier       string               `xml:"http://www.opengis.net/wcs/1.1 Identifier"`
	Description      string               `xml:"http://www.opengis.net/wcs/1.1 Description"`
	SupportedCRS     []string             `xml:"http://www.opengis.net/wcs/1.1 SupportedCRS"`
	SupportedFormat  []string             `xml:"http://www.opengis.net/wcs/1.1 SupportedFormat"`
	Children         []coverageSummary110 `xml:"http://www.opengis.net/wcs/1.1 CoverageSummary"`
}

func parseCapabilities110(s *Service, doc []byte) error {
	var caps capabilities110
	if err := decodeDocument(doc, &caps); err != nil {
		return err
	}

	s.UpdateSequence = caps.UpdateSequence

	s.Identification = ServiceIdentification{Service: "WCS"}
	if si := caps.ServiceIdentification; si != nil {
		s.Identification.Type = strings.TrimSpace(si.ServiceType)
		s.Identification.Version = strings.Join(trimAll(si.ServiceTypeVersion), ",")
		s.Identification.Title = strings.TrimSpace(si.Title)
		s.Identification.Abstract = strings.TrimSpace(si.Abstract)
		s.Identification.Keywords = trimAll(si.Keywords)
		s.Identification.Fees = strings.TrimSpace(si.Fees)
		s.Identification.AccessConstraints = strings.Join(trimAll(si.AccessConstraints), ",")
	}

	if sp := caps.ServiceProvider; sp != nil {
		name := strings.TrimSpace(sp.ProviderName)
		site := strings.TrimSpace(sp.ProviderSite.Href)
		if site == "" {
			site = name
		}
		sc := sp.ServiceContact
		s.Provider = ServiceProvider{
			Name: name,
			URL:  site,
			Contact: &ContactMetadata{
				Name:         strings.TrimSpace(sc.IndividualName),
				Organization: name,
				Position:     strings.TrimSpace(sc.PositionName),
				Address:      firstTrimmed(sc.Address.DeliveryPoint),
				City:         strings.TrimSpace(sc.Address.City),
				Region:       strings.TrimSpace(sc.Address.AdministrativeArea),
				Postcode:     strings.TrimSpace(sc.Address.PostalCode),
				Country:      strings.TrimSpace(sc.Address.Country),
				Email:        firstTrimmed(sc.Address.ElectronicMailAddress),
				Phone:        firstTrimmed(sc.Voice),
			},
		}
	}

	for _, op := range caps.Operations {
		om := OperationMetadata{Name: op.Name}
		for _, dcp := range op.DCP {
			for _, h := range dcp.HTTP.Get {
				om.Methods = append(om.Methods, OperationMethod{Type: "Get", URL: h.Href})
			}
		}
		for _, dcp := range op.DCP {
			for _, h := range dcp.HTTP.Post {
				om.Methods = append(om.Methods, OperationMethod{Type: "Post", URL: h.Href})
			}
		}
		for _, p := range op.Parameters {
			values := trimAll(append(append([]string{}, p.Values...), p.AllowedValues...))
			om.Parameters = append(om.Parameters, OperationParameter{Name: p.Name, Values: values})
			if strings.EqualFold(p.Name, "format") {
				om.FormatOptions = append(om.FormatOptions, values...)
			}
		}
		s.Operations = append(s.Operations, om)
	}

	return s.walkSummaries110(caps.Contents.Summaries, nil)
}

// inherited110 holds the values a coverage summary passes on to the
// summaries nested in it.
type inherited110 struct {
	id          string
	title       string
	abstract    string
	description string
	keywords    []string
	wgs84       *BoundingBox
	crs         []string
	formats     []string
}

// walkSummaries110 registers every leaf summary and every summary with its
// own identifier. Missing values are taken from the nearest ancestor.
func (s *Service) walkSummaries110(summaries []coverageSummary110, parent *inherited110) error {
	if parent == nil {
		parent = &inherited110{}
	}

	for _, summary := range summaries {
		eff := &inherited110{
			id:          orDefault(summary.Identifier, parent.id),
			title:       orDefault(summary.Title, parent.title),
			abstract:    orDefault(summary.Abstract, parent.abstract),
			description: orDefault(summary.Description, parent.description),
			keywords:    append(trimAll(summary.Keywords), parent.keywords...),
			wgs84:       parent.wgs84,
			crs:         parent.crs,
			formats:     parent.formats,
		}
		for _, b := range summary.WGS84BoundingBox {
			box, err := b.boundingBox()
			if err != nil {
				continue
			}
			box.CRS = ""
			eff.wgs84 = box
			break
		}
		if c := trimAll(summary.SupportedCRS); len(c) > 0 {
			eff.crs = c
		}
		if f := trimAll(summary.SupportedFormat); len(f) > 0 {
			eff.formats = f
		}

		if (len(summary.Children) == 0 || strings.TrimSpace(summary.Identifier) != "") && eff.id != "" {
			cm := &CoverageMetadata{
				ID:               eff.id,
				Title:            eff.title,
				Abstract:         eff.abstract,
				Description:      eff.description,
				Keywords:         eff.keywords,
				BoundingBoxWGS84: eff.wgs84,
				SummaryCRS:       eff.crs,
				SummaryFormats:   eff.formats,
			}
			for _, b := range summary.BoundingBox {
				box, err := b.boundingBox()
				if err != nil || box.CRS == "" {
					continue
				}
				cm.SummaryBoundingBoxes = append(cm.SummaryBoundingBoxes, *box)
			}
			s.addContent(cm)
		}

		if err := s.walkSummaries110(summary.Children, eff); err != nil {
			return err
		}
	}
	return nil
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

type coverageDescriptions110 struct {
	XMLName      xml.Name                 `xml:"CoverageDescriptions"`
	Descriptions []coverageDescription110 `xml:"http://www.opengis.net/wcs/1.1 CoverageDescription"`
}

type coverageDescription110 struct {
	Title      string   `xml:"http://www.opengis.net/ows/1.1 Title"`
	Abstract   string   `xml:"http://www.opengis.net/ows/1.1 Abstract"`
	Keywords   []string `xml:"http://www.opengis.net/ows/1.1 Keywords>Keyword"`
	Identifier string   `xml:"http://www.opengis.net/wcs/1.1 Identifier"`
	Domain     struct {
		SpatialDomain struct {
			BoundingBox []boundingBox110 `xml:"http://www.opengis.net/ows/1.1 BoundingBox"`
			GridCRS     *struct {
				GridBaseCRS string `xml:"http://www.opengis.net/wcs/1.1 GridBaseCRS"`
				GridType    string `xml:"http://www.opengis.net/wcs/1.1 GridType"`
				GridOrigin  string `xml:"http://www.opengis.net/wcs/1.1 GridOrigin"`
				GridOffsets string `xml:"http://www.opengis.net/wcs/1.1 GridOffsets"`
				GridCS      string `xml:"http://www.opengis.net/wcs/1.1 GridCS"`
			} `xml:"http://www.opengis.net/wcs/1.1 GridCRS"`
		} `xml:"http://www.opengis.net/wcs/1.1 SpatialDomain"`
		TemporalDomain struct {
			TimePositions []string `xml:"http://www.opengis.net/gml timePosition"`
			TimePeriods   []struct {
				Begin      string `xml:"http://www.opengis.net/wcs/1.1 BeginPosition"`
				End        string `xml:"http://www.opengis.net/wcs/1.1 EndPosition"`
				Resolution string `xml:"http://www.opengis.net/wcs/1.1 TimeResolution"`
			} `xml:"http://www.opengis.net/wcs/1.1 TimePeriod"`
		} `xml:"http://www.opengis.net/wcs/1.1 TemporalDomain"`
	} `xml:"http://www.opengis.net/wcs/1.1 Domain"`
	Fields []struct {
		Identifier    string   `xml:"http://www.opengis.net/wcs/1.1 Identifier"`
		DefaultMethod string   `xml:"http://www.opengis.net/wcs/1.1 InterpolationMethods>DefaultMethod"`
		OtherMethods  []string `xml:"http://www.opengis.net/wcs/1.1 InterpolationMethods>OtherMethod"`
		Axes          []struct {
			Identifier string   `xml:"identifier,attr"`
			Keys       []string `xml:"http://www.opengis.net/wcs/1.1 AvailableKeys>Key"`
		} `xml:"http://www.opengis.net/wcs/1.1 Axis"`
	} `xml:"http://www.opengis.net/wcs/1.1 Range>Field"`
	SupportedCRS    []string `xml:"http://www.opengis.net/wcs/1.1 SupportedCRS"`
	SupportedFormat []string `xml:"http://www.opengis.net/wcs/1.1 SupportedFormat"`
}

func parseDescribeCoverage110(doc []byte, id string) (*CoverageDescription, error) {
	var cds coverageDescriptions110
	if err := decodeDocument(doc, &cds); err != nil {
		return nil, err
	}
	if len(cds.Descriptions) == 0 {
		return nil, fmt.Errorf("coverage descriptions for %s hold no CoverageDescription", id)
	}

	cd := cds.Descriptions[0]
	for _, d := range cds.Descriptions {
		if strings.TrimSpace(d.Identifier) == id {
			cd = d
			break
		}
	}

	desc := &CoverageDescription{
		Identifier:       strings.TrimSpace(cd.Identifier),
		Title:            strings.TrimSpace(cd.Title),
		Abstract:         strings.TrimSpace(cd.Abstract),
		Keywords:         trimAll(cd.Keywords),
		TimePositions:    trimAll(cd.Domain.TemporalDomain.TimePositions),
		SupportedCRS:     trimAll(cd.SupportedCRS),
		SupportedFormats: trimAll(cd.SupportedFormat),
	}

	for _, b := range cd.Domain.SpatialDomain.BoundingBox {
		box, err := b.boundingBox()
		if err != nil {
			continue
		}
		desc.Envelopes = append(desc.Envelopes, *box)
	}

	if g := cd.Domain.SpatialDomain.GridCRS; g != nil {
		gc := &GridCRS{
			BaseCRS: strings.TrimSpace(g.GridBaseCRS),
			Type:    strings.TrimSpace(g.GridType),
			CS:      strings.TrimSpace(g.GridCS),
		}
		var err error
		if gc.Origin, err = parseFloatList(g.GridOrigin); err != nil {
			return nil, fmt.Errorf("coverage %s: grid origin: %w", id, err)
		}
		if gc.Offsets, err = parseFloatList(g.GridOffsets); err != nil {
			return nil, fmt.Errorf("coverage %s: grid offsets: %w", id, err)
		}
		desc.GridCRS = gc
	}

	for _, tp := range cd.Domain.TemporalDomain.TimePeriods {
		desc.TimePeriods = append(desc.TimePeriods, TimePeriod{
			Begin:      strings.TrimSpace(tp.Begin),
			End:        strings.TrimSpace(tp.End),
			Resolution: strings.TrimSpace(tp.Resolution),
		})
	}

	for _, field := range cd.Fields {
		if m := strings.TrimSpace(field.DefaultMethod); m != "" {
			desc.Interpolations = append(desc.Interpolations, m)
		}
		desc.Interpolations = append(desc.Interpolations, trimAll(field.OtherMethods)...)

		for _, axis := range field.Axes {
			desc.AxisDescriptions = append(desc.AxisDescriptions, AxisDescription{
				Name:   strings.TrimSpace(axis.Identifier),
				Label:  strings.TrimSpace(field.Identifier),
				Values: trimAll(axis.Keys),
			})
		}
	}

	return desc, nil
}
