package wcs

import (
	"encoding/xml"
	"fmt"
	"strings"
)

type capabilities100 struct {
	XMLName        xml.Name    `xml:"WCS_Capabilities"`
	Version        string      `xml:"version,attr"`
	UpdateSequence string      `xml:"updateSequence,attr"`
	Service        *service100 `xml:"http://www.opengis.net/wcs Service"`
	Capability     struct {
		Request struct {
			Operations []operation100 `xml:",any"`
		} `xml:"http://www.opengis.net/wcs Request"`
		Exception struct {
			Format []string `xml:"http://www.opengis.net/wcs Format"`
		} `xml:"http://www.opengis.net/wcs Exception"`
	} `xml:"http://www.opengis.net/wcs Capability"`
	ContentMetadata struct {
		CoverageOfferingBrief []offeringBrief100 `xml:"http://www.opengis.net/wcs CoverageOfferingBrief"`
		ContentOfferingBrief  []offeringBrief100 `xml:"http://www.opengis.net/wcs ContentOfferingBrief"`
	} `xml:"http://www.opengis.net/wcs ContentMetadata"`
}

type service100 struct {
	Description       string               `xml:"http://www.opengis.net/wcs description"`
	Name              string               `xml:"http://www.opengis.net/wcs name"`
	Label             string               `xml:"http://www.opengis.net/wcs label"`
	Keywords          []string             `xml:"http://www.opengis.net/wcs keywords>keyword"`
	ResponsibleParty  *responsibleParty100 `xml:"http://www.opengis.net/wcs responsibleParty"`
	Fees              string               `xml:"http://www.opengis.net/wcs fees"`
	AccessConstraints string               `xml:"http://www.opengis.net/wcs accessConstraints"`
}

type responsibleParty100 struct {
	IndividualName   string   `xml:"http://www.opengis.net/wcs individualName"`
	OrganisationName string   `xml:"http://www.opengis.net/wcs organisationName"`
	PositionName     string   `xml:"http://www.opengis.net/wcs positionName"`
	Voice            []string `xml:"http://www.opengis.net/wcs contactInfo>phone>voice"`
	Address          struct {
		DeliveryPoint         []string `xml:"http://www.opengis.net/wcs deliveryPoint"`
		City                  string   `xml:"http://www.opengis.net/wcs city"`
		AdministrativeArea    string   `xml:"http://www.opengis.net/wcs administrativeArea"`
		PostalCode            string   `xml:"http://www.opengis.net/wcs postalCode"`
		Country               string   `xml:"http://www.opengis.net/wcs country"`
		ElectronicMailAddress []string `xml:"http://www.opengis.net/wcs electronicMailAddress"`
	} `xml:"http://www.opengis.net/wcs contactInfo>address"`
}

type onlineResource100 struct {
	OnlineResource struct {
		Href string `xml:"http://www.w3.org/1999/xlink href,attr"`
	} `xml:"http://www.opengis.net/wcs OnlineResource"`
}

type operation100 struct {
	XMLName xml.Name
	DCPType []struct {
		HTTP struct {
			Get  []onlineResource100 `xml:"http://www.opengis.net/wcs Get"`
			Post []onlineResource100 `xml:"http://www.opengis.net/wcs Post"`
		} `xml:"http://www.opengis.net/wcs HTTP"`
	} `xml:"http://www.opengis.net/wcs DCPType"`
}

type lonLatEnvelope100 struct {
	SrsName       string   `xml:"srsName,attr"`
	Pos           []string `xml:"http://www.opengis.net/gml pos"`
	TimePositions []string `xml:"http://www.opengis.net/gml timePosition"`
}

type offeringBrief100 struct {
	Description    string             `xml:"http://www.opengis.net/wcs description"`
	Name           string             `xml:"http://www.opengis.net/wcs name"`
	Label          string             `xml:"http://www.opengis.net/wcs label"`
	LonLatEnvelope *lonLatEnvelope100 `xml:"http://www.opengis.net/wcs lonLatEnvelope"`
	Keywords       []string           `xml:"http://www.opengis.net/wcs keywords>keyword"`
}

func parseCapabilities100(s *Service, doc []byte) error {
	var caps capabilities100
	if err := decodeDocument(doc, &caps); err != nil {
		return err
	}

	s.UpdateSequence = caps.UpdateSequence
	s.Identification = ServiceIdentification{Type: "OGC:WCS", Version: Version100}
	if svc := caps.Service; svc != nil {
		s.Identification.Service = strings.TrimSpace(svc.Name)
		s.Identification.Title = strings.TrimSpace(svc.Label)
		s.Identification.Abstract = strings.TrimSpace(svc.Description)
		s.Identification.Keywords = trimAll(svc.Keywords)
		s.Identification.Fees = strings.TrimSpace(svc.Fees)
		s.Identification.AccessConstraints = strings.TrimSpace(svc.AccessConstraints)

		// Service provider information is frequently missing.
		if rp := svc.ResponsibleParty; rp != nil {
			name := strings.TrimSpace(rp.OrganisationName)
			s.Provider = ServiceProvider{
				Name: name,
				// There is no definitive place for a provider URL in 1.0.
				URL: name,
				Contact: &ContactMetadata{
					Name:         strings.TrimSpace(rp.IndividualName),
					Organization: name,
					Position:     strings.TrimSpace(rp.PositionName),
					Address:      firstTrimmed(rp.Address.DeliveryPoint),
					City:         strings.TrimSpace(rp.Address.City),
					Region:       strings.TrimSpace(rp.Address.AdministrativeArea),
					Postcode:     strings.TrimSpace(rp.Address.PostalCode),
					Country:      strings.TrimSpace(rp.Address.Country),
					Email:        firstTrimmed(rp.Address.ElectronicMailAddress),
					Phone:        firstTrimmed(rp.Voice),
				},
			}
		}
	}

	for _, op := range caps.Capability.Request.Operations {
		om := OperationMetadata{Name: op.XMLName.Local}
		for _, dcp := range op.DCPType {
			for _, r := range dcp.HTTP.Get {
				om.Methods = append(om.Methods, OperationMethod{Type: "Get", URL: r.OnlineResource.Href})
			}
		}
		for _, dcp := range op.DCPType {
			for _, r := range dcp.HTTP.Post {
				om.Methods = append(om.Methods, OperationMethod{Type: "Post", URL: r.OnlineResource.Href})
			}
		}
		s.Operations = append(s.Operations, om)
	}

	s.Exceptions = trimAll(caps.Capability.Exception.Format)

	briefs := caps.ContentMetadata.CoverageOfferingBrief
	if len(briefs) == 0 {
		// Some servers advertise ContentOfferingBrief instead.
		briefs = caps.ContentMetadata.ContentOfferingBrief
	}
	for _, brief := range briefs {
		cm, err := brief.coverageMetadata()
		if err != nil {
			return err
		}
		if cm.ID == "" {
			continue
		}
		s.addContent(cm)
	}

	return nil
}

func (b offeringBrief100) coverageMetadata() (*CoverageMetadata, error) {
	cm := &CoverageMetadata{
		ID:       strings.TrimSpace(b.Name),
		Title:    strings.TrimSpace(b.Label),
		Abstract: strings.TrimSpace(b.Description),
		Keywords: trimAll(b.Keywords),
	}

	if env := b.LonLatEnvelope; env != nil {
		cm.EnvelopeTimePositions = trimAll(env.TimePositions)
		if len(env.Pos) >= 2 {
			box, err := parseCorners(env.Pos[0], env.Pos[1], "")
			if err != nil {
				return nil, fmt.Errorf("coverage %s: lonLatEnvelope: %w", cm.ID, err)
			}
			cm.BoundingBoxWGS84 = box
		}
	}
	return cm, nil
}

type coverageDescription100 struct {
	XMLName   xml.Name              `xml:"CoverageDescription"`
	Offerings []coverageOffering100 `xml:"http://www.opengis.net/wcs CoverageOffering"`
}

type envelope100 struct {
	SrsName string   `xml:"srsName,attr"`
	Pos     []string `xml:"http://www.opengis.net/gml pos"`
}

type grid100 struct {
	Dimension     int      `xml:"dimension,attr"`
	Low           string   `xml:"http://www.opengis.net/gml limits>GridEnvelope>low"`
	High          string   `xml:"http://www.opengis.net/gml limits>GridEnvelope>high"`
	AxisNames     []string `xml:"http://www.opengis.net/gml axisName"`
	Origin        string   `xml:"http://www.opengis.net/gml origin>pos"`
	OffsetVectors []string `xml:"http://www.opengis.net/gml offsetVector"`
}

type axisDescription100 struct {
	Name   string `xml:"http://www.opengis.net/wcs name"`
	Label  string `xml:"http://www.opengis.net/wcs label"`
	Values struct {
		Items []struct {
			XMLName xml.Name
			Text    string `xml:",chardata"`
			Min     string `xml:"http://www.opengis.net/wcs min"`
			Max     string `xml:"http://www.opengis.net/wcs max"`
			Res     string `xml:"http://www.opengis.net/wcs res"`
		} `xml:",any"`
	} `xml:"http://www.opengis.net/wcs values"`
}

type coverageOffering100 struct {
	offeringBrief100
	DomainSet struct {
		SpatialDomain struct {
			Envelopes     []envelope100 `xml:"http://www.opengis.net/gml Envelope"`
			RectifiedGrid *grid100      `xml:"http://www.opengis.net/gml RectifiedGrid"`
			Grid          *grid100      `xml:"http://www.opengis.net/gml Grid"`
		} `xml:"http://www.opengis.net/wcs spatialDomain"`
		TemporalDomain struct {
			TimePositions []string `xml:"http://www.opengis.net/gml timePosition"`
			TimePeriods   []struct {
				Begin      string `xml:"http://www.opengis.net/wcs beginPosition"`
				End        string `xml:"http://www.opengis.net/wcs endPosition"`
				Resolution string `xml:"http://www.opengis.net/wcs timeResolution"`
			} `xml:"http://www.opengis.net/wcs timePeriod"`
		} `xml:"http://www.opengis.net/wcs temporalDomain"`
	} `xml:"http://www.opengis.net/wcs domainSet"`
	AxisDescriptions []axisDescription100 `xml:"http://www.opengis.net/wcs rangeSet>RangeSet>axisDescription>AxisDescription"`
	SupportedCRSs    struct {
		Response        []string `xml:"http://www.opengis.net/wcs responseCRSs"`
		RequestResponse []string `xml:"http://www.opengis.net/wcs requestResponseCRSs"`
		Native          []string `xml:"http://www.opengis.net/wcs nativeCRSs"`
	} `xml:"http://www.opengis.net/wcs supportedCRSs"`
	SupportedFormats struct {
		NativeFormat string   `xml:"nativeFormat,attr"`
		Formats      []string `xml:"http://www.opengis.net/wcs formats"`
	} `xml:"http://www.opengis.net/wcs supportedFormats"`
	Interpolations []string `xml:"http://www.opengis.net/wcs supportedInterpolations>interpolationMethod"`
}

func parseDescribeCoverage100(doc []byte, id string) (*CoverageDescription, error) {
	var cd coverageDescription100
	if err := decodeDocument(doc, &cd); err != nil {
		return nil, err
	}
	if len(cd.Offerings) == 0 {
		return nil, fmt.Errorf("coverage description for %s holds no CoverageOffering", id)
	}

	offering := cd.Offerings[0]
	for _, o := range cd.Offerings {
		if strings.TrimSpace(o.Name) == id {
			offering = o
			break
		}
	}

	desc := &CoverageDescription{
		Identifier:       strings.TrimSpace(offering.Name),
		Title:            strings.TrimSpace(offering.Label),
		Abstract:         strings.TrimSpace(offering.Description),
		Keywords:         trimAll(offering.Keywords),
		TimePositions:    trimAll(offering.DomainSet.TemporalDomain.TimePositions),
		SupportedFormats: trimAll(offering.SupportedFormats.Formats),
		NativeFormat:     strings.TrimSpace(offering.SupportedFormats.NativeFormat),
		Interpolations:   trimAll(offering.Interpolations),
	}

	for _, tp := range offering.DomainSet.TemporalDomain.TimePeriods {
		desc.TimePeriods = append(desc.TimePeriods, TimePeriod{
			Begin:      strings.TrimSpace(tp.Begin),
			End:        strings.TrimSpace(tp.End),
			Resolution: strings.TrimSpace(tp.Resolution),
		})
	}

	for _, env := range offering.DomainSet.SpatialDomain.Envelopes {
		if len(env.Pos) < 2 {
			continue
		}
		box, err := parseCorners(env.Pos[0], env.Pos[1], env.SrsName)
		if err != nil {
			return nil, fmt.Errorf("coverage %s: envelope: %w", id, err)
		}
		desc.Envelopes = append(desc.Envelopes, *box)
	}

	spatial := offering.DomainSet.SpatialDomain
	var err error
	switch {
	case spatial.RectifiedGrid != nil:
		desc.Grid, err = spatial.RectifiedGrid.grid(true)
	case spatial.Grid != nil:
		desc.Grid, err = spatial.Grid.grid(false)
	}
	if err != nil {
		return nil, fmt.Errorf("coverage %s: %w", id, err)
	}

	for _, group := range [][]string{
		offering.SupportedCRSs.Response,
		offering.SupportedCRSs.RequestResponse,
		offering.SupportedCRSs.Native,
	} {
		for _, list := range group {
			desc.SupportedCRS = append(desc.SupportedCRS, strings.Fields(list)...)
		}
	}

	for _, ad := range offering.AxisDescriptions {
		axis := AxisDescription{
			Name:  strings.TrimSpace(ad.Name),
			Label: strings.TrimSpace(ad.Label),
		}
		for _, item := range ad.Values.Items {
			switch item.XMLName.Local {
			case "interval":
				value := strings.TrimSpace(item.Min) + "/" + strings.TrimSpace(item.Max)
				if res := strings.TrimSpace(item.Res); res != "" {
					value += "/" + res
				}
				axis.Values = append(axis.Values, value)
			case "default":
			default:
				axis.Values = append(axis.Values, strings.TrimSpace(item.Text))
			}
		}
		desc.AxisDescriptions = append(desc.AxisDescriptions, axis)
	}

	return desc, nil
}

func (g *grid100) grid(rectified bool) (*Grid, error) {
	out := &Grid{
		Rectified:  rectified,
		Dimension:  g.Dimension,
		AxisLabels: trimAll(g.AxisNames),
	}

	var err error
	if out.LowLimits, err = parseIntList(g.Low); err != nil {
		return nil, err
	}
	if out.HighLimits, err = parseIntList(g.High); err != nil {
		return nil, err
	}
	if !rectified {
		return out, nil
	}

	if out.Origin, err = parseFloatList(g.Origin); err != nil {
		return nil, err
	}
	for _, ov := range g.OffsetVectors {
		vector, err := parseFloatList(ov)
		if err != nil {
			return nil, err
		}
		out.OffsetVectors = append(out.OffsetVectors, vector)
	}
	return out, nil
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstTrimmed(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
