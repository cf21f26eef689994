package modelfile

import (
	"encoding/xml"
	"strings"
)

// Namespace is the XML namespace of the model design vocabulary.
const Namespace = "http://opcfoundation.org/UA/ModelDesign.xsd"

// element is a generic XML element tree. Documents are decoded into it
// first and then walked by the element parsers.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []element  `xml:",any"`
}

func inVocabulary(name xml.Name) bool {
	return name.Space == Namespace || name.Space == ""
}

func (e *element) name() string {
	return e.XMLName.Local
}

// attr returns an unqualified attribute value with any namespace prefix
// removed.
func (e *element) attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name && a.Name.Space == "" {
			return stripPrefix(a.Value)
		}
	}
	return ""
}

func (e *element) child(name string) *element {
	for i := range e.Children {
		c := &e.Children[i]
		if c.XMLName.Local == name && inVocabulary(c.XMLName) {
			return c
		}
	}
	return nil
}

func (e *element) childText(name string) string {
	if c := e.child(name); c != nil {
		return strings.TrimSpace(c.Text)
	}
	return ""
}

// stripPrefix removes a namespace prefix: "ua:BaseObjectType" becomes
// "BaseObjectType".
func stripPrefix(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		return s[i+1:]
	}
	return s
}
