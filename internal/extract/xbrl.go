// Package extract turns downloaded filing documents into tabular fact
// data. The XBRL path reads the machine-readable instance document; the
// HTML path is a best-effort fallback that scrapes rendered financial
// statement tables when no instance is present.
package extract

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"

	"github.com/filingscope/filingscope/pkg/models"
	"github.com/filingscope/filingscope/pkg/utils"
)

// Namespaces whose elements are structural rather than reported facts.
var structuralNamespaces = map[string]bool{
	"http://www.xbrl.org/2003/instance":         true,
	"http://www.w3.org/2001/XMLSchema-instance": true,
	"http://www.xbrl.org/2003/linkbase":         true,
}

// Prefix fallback for instances whose parser did not resolve namespace URIs.
var structuralPrefixes = map[string]bool{
	"xbrli": true,
	"xsi":   true,
	"link":  true,
}

// IsInstanceDocument reports whether the file name looks like an inline
// XBRL instance export ("<doc>_htm.xml").
func IsInstanceDocument(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), "_htm.xml")
}

// ParseInstance extracts contexts and facts from an XBRL instance
// document. The parser runs in non-strict mode with the HTML entity and
// auto-close tables: registry-generated instances routinely carry minor
// well-formedness violations (&nbsp; and friends) that must not abort
// extraction. Individual facts that cannot be interpreted degrade to nil
// values or missing period fields; only a document the lenient parser
// cannot recover from is an error.
func ParseInstance(r io.Reader, log *zap.Logger) (*models.FactTable, error) {
	if log == nil {
		log = zap.NewNop()
	}

	doc, err := xmlquery.ParseWithOptions(r, xmlquery.ParserOptions{
		Decoder: &xmlquery.DecoderOptions{
			Strict:    false,
			AutoClose: xml.HTMLAutoClose,
			Entity:    xml.HTMLEntity,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("parse instance document: %w", err)
	}

	contexts := parseContexts(doc)
	facts := parseFacts(doc, contexts)
	log.Debug("instance document parsed",
		zap.Int("contexts", len(contexts)),
		zap.Int("facts", len(facts)))

	return &models.FactTable{Source: models.SourceXBRL, Facts: facts}, nil
}

// parseContexts indexes every context element by id. Contexts without a
// period are kept with empty period fields so facts referencing them
// still surface.
func parseContexts(doc *xmlquery.Node) map[string]models.Context {
	out := make(map[string]models.Context)
	for _, node := range xmlquery.Find(doc, "//*[local-name()='context']") {
		id := node.SelectAttr("id")
		if id == "" {
			continue
		}
		ctx := models.Context{ID: id}
		if period := xmlquery.FindOne(node, "*[local-name()='period']"); period != nil {
			ctx.StartDate = childText(period, "startDate")
			ctx.EndDate = childText(period, "endDate")
			ctx.Instant = childText(period, "instant")
		}
		out[id] = ctx
	}
	return out
}

func childText(node *xmlquery.Node, localName string) string {
	if child := xmlquery.FindOne(node, "*[local-name()='"+localName+"']"); child != nil {
		return strings.TrimSpace(child.InnerText())
	}
	return ""
}

// parseFacts walks the element tree collecting leaf elements with text
// content, skipping the structural XBRL vocabularies. Each surviving leaf
// is one reported fact.
func parseFacts(doc *xmlquery.Node, contexts map[string]models.Context) []models.Fact {
	var facts []models.Fact
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xmlquery.ElementNode {
				continue
			}
			if hasElementChildren(child) {
				walk(child)
				continue
			}
			if structural(child) {
				continue
			}
			text := strings.TrimSpace(child.InnerText())
			if text == "" {
				continue
			}
			fact := models.Fact{
				Name:     child.Data, // local name, namespace stripped
				Value:    utils.CleanNumeric(text),
				Unit:     child.SelectAttr("unitRef"),
				Decimals: child.SelectAttr("decimals"),
			}
			if ctx, ok := contexts[child.SelectAttr("contextRef")]; ok {
				fact.StartDate = ctx.StartDate
				fact.EndDate = ctx.EndDate
				fact.Instant = ctx.Instant
			}
			facts = append(facts, fact)
		}
	}
	walk(doc)
	return facts
}

func structural(n *xmlquery.Node) bool {
	if n.NamespaceURI != "" {
		return structuralNamespaces[n.NamespaceURI]
	}
	return structuralPrefixes[n.Prefix]
}

func hasElementChildren(n *xmlquery.Node) bool {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return true
		}
	}
	return false
}
