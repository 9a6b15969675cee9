package importer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// fingerprintMaxDepth bounds the structural walk; nesting beyond this depth
// stops being discriminative between templates and only adds noise.
const fingerprintMaxDepth = 10

// strippedTags are removed with their subtrees before the walk; their content
// is irrelevant to page structure and highly variable.
var strippedTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
}

// ignoredTags are decorative/inline elements skipped along with their
// subtrees; they vary too much in count and position across pages of the same
// template to be structurally meaningful. The image tag is on the list.
var ignoredTags = map[string]struct{}{
	"a": {}, "span": {}, "img": {}, "em": {}, "i": {}, "strong": {}, "b": {},
	"u": {}, "small": {}, "sub": {}, "sup": {}, "br": {}, "svg": {},
	"path": {}, "use": {},
}

// Fingerprint reduces an HTML document to a hash of its DOM shape so pages
// sharing a template cluster together regardless of content. Consecutive
// same-tag siblings collapse to one token, making the hash insensitive to
// list length. Returns an error when the input does not parse or has no body;
// callers treat that as "no hash", never as a crawl failure.
func Fingerprint(rawHTML []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	body := findBody(doc)
	if body == nil {
		return "", fmt.Errorf("document has no body")
	}

	var tokens []string
	walkStructure(body, 0, &tokens)

	sum := sha256.Sum256([]byte(strings.Join(tokens, ",")))
	return hex.EncodeToString(sum[:]), nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}

// walkStructure emits open/close tokens for the children of n, collapsing
// runs of same-tag siblings.
func walkStructure(n *html.Node, depth int, tokens *[]string) {
	if depth >= fingerprintMaxDepth {
		return
	}
	prevTag := ""
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		tag := strings.ToLower(c.Data)
		if _, strip := strippedTags[tag]; strip {
			continue
		}
		if _, ignore := ignoredTags[tag]; ignore {
			continue
		}
		if tag == prevTag {
			continue
		}
		prevTag = tag
		*tokens = append(*tokens, tag)
		walkStructure(c, depth+1, tokens)
		*tokens = append(*tokens, "/"+tag)
	}
}
