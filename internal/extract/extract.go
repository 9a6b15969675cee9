// Package extract implements the default rule-driven metadata extractor. The
// pipeline treats extraction as a pluggable collaborator; this implementation
// evaluates CSS selector rules with goquery and fills in the page-level
// fields every crawl needs (title, type, canonical).
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/draftcms/site-importer/internal/importer"
)

// RuleExtractor evaluates extraction rules against a parsed document.
type RuleExtractor struct{}

// NewRuleExtractor constructs a RuleExtractor.
func NewRuleExtractor() *RuleExtractor { return &RuleExtractor{} }

// Extract applies the rules and standard page signals to doc. The canonical
// link and og:type meta drive the pipeline's redirect and typing logic; rule
// values land on the typed Metadata fields when the field name matches, and
// in Fields otherwise.
func (e *RuleExtractor) Extract(doc *goquery.Document, rules []importer.ExtractionRule, pageURL string) importer.Metadata {
	meta := importer.Metadata{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	if canonical, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		meta.Canonical = strings.TrimSpace(canonical)
	}
	if ogType, ok := doc.Find(`meta[property="og:type"]`).First().Attr("content"); ok {
		if strings.Contains(strings.ToLower(ogType), "product") {
			meta.Type = string(importer.ItemTypeProduct)
		}
	}
	if meta.Type == "" {
		meta.Type = string(importer.ItemTypePage)
	}

	for _, rule := range rules {
		value := e.evaluate(doc, rule)
		if value == "" {
			continue
		}
		switch strings.ToLower(rule.Field) {
		case "title":
			meta.Title = value
		case "price":
			meta.Price = value
		case "sku":
			meta.SKU = value
		case "image":
			meta.Images = append(meta.Images, value)
		case "canonical":
			meta.Canonical = value
		case "type":
			meta.Type = value
		default:
			if meta.Fields == nil {
				meta.Fields = make(map[string]string)
			}
			meta.Fields[rule.Field] = value
		}
	}

	// Selector-driven heuristics are weaker than an explicit og:type, but a
	// matched price rule on an untyped page is a strong product signal.
	if meta.Type == string(importer.ItemTypePage) && meta.Price != "" {
		if strings.Contains(pageURL, "/product") {
			meta.Type = string(importer.ItemTypeProduct)
		}
	}
	return meta
}

func (e *RuleExtractor) evaluate(doc *goquery.Document, rule importer.ExtractionRule) string {
	sel := doc.Find(rule.Selector).First()
	if sel.Length() == 0 {
		return ""
	}
	if rule.Attribute != "" {
		value, _ := sel.Attr(rule.Attribute)
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(sel.Text())
}
