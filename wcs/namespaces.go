package wcs

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

const (
	NamespaceWCS10 = "http://www.opengis.net/wcs"
	NamespaceWCS11 = "http://www.opengis.net/wcs/1.1"
	NamespaceOWS   = "http://www.opengis.net/ows/1.1"
	NamespaceGML   = "http://www.opengis.net/gml"
	NamespaceOGC   = "http://www.opengis.net/ogc"
	NamespaceXLink = "http://www.w3.org/1999/xlink"
)

// namespaceAliases maps namespace URIs seen in the wild onto the canonical
// URIs used in the struct tags of this package.
var namespaceAliases = map[string]string{
	"http://www.opengis.net/wcs/1.1.0":   NamespaceWCS11,
	"http://www.opengis.net/wcs/1.1.1":   NamespaceWCS11,
	"http://www.opengis.net/wcs/1.1.2":   NamespaceWCS11,
	"http://www.opengis.net/ows":         NamespaceOWS,
	"http://www.opengis.net/ows/1.0":     NamespaceOWS,
	"http://www.opengis.net/ows/1.1.0":   NamespaceOWS,
	"http://www.opengis.net/wcs/1.1/ows": NamespaceOWS,
	"http://www.opengis.net/gml/3.2":     NamespaceGML,
}

// namespaceNormalizer rewrites element and attribute namespaces of an
// already resolved token stream.
type namespaceNormalizer struct {
	dec *xml.Decoder
}

func (n *namespaceNormalizer) Token() (xml.Token, error) {
	tok, err := n.dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := xml.CopyToken(tok).(type) {
	case xml.StartElement:
		t.Name.Space = canonicalNamespace(t.Name.Space)
		for i := range t.Attr {
			if t.Attr[i].Name.Space == "xmlns" || (t.Attr[i].Name.Space == "" && t.Attr[i].Name.Local == "xmlns") {
				continue
			}
			t.Attr[i].Name.Space = canonicalNamespace(t.Attr[i].Name.Space)
		}
		return t, nil
	case xml.EndElement:
		t.Name.Space = canonicalNamespace(t.Name.Space)
		return t, nil
	default:
		return t, nil
	}
}

func canonicalNamespace(space string) string {
	if alias, ok := namespaceAliases[space]; ok {
		return alias
	}
	return space
}

// newDecoder returns a decoder that understands declared non UTF-8 charsets
// and reports canonical namespaces.
func newDecoder(r io.Reader) *xml.Decoder {
	raw := xml.NewDecoder(r)
	raw.CharsetReader = charset.NewReaderLabel
	return xml.NewTokenDecoder(&namespaceNormalizer{dec: raw})
}

// decodeDocument unmarshals doc into v.
func decodeDocument(doc []byte, v interface{}) error {
	if err := newDecoder(bytes.NewReader(doc)).Decode(v); err != nil {
		return fmt.Errorf("could not decode document: %w", err)
	}
	return nil
}

// rootElement returns the first start element of doc and the value of its
// version attribute.
func rootElement(doc []byte) (xml.Name, string, error) {
	dec := newDecoder(bytes.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return xml.Name{}, "", fmt.Errorf("could not decode document: no root element")
			}
			return xml.Name{}, "", fmt.Errorf("could not decode document: %w", err)
		}

		if start, ok := tok.(xml.StartElement); ok {
			for _, attr := range start.Attr {
				if attr.Name.Space == "" && attr.Name.Local == "version" {
					return start.Name, attr.Value, nil
				}
			}
			return start.Name, "", nil
		}
	}
}
