package importer

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultMaxPages bounds a crawl when neither the operator nor a preset sets
// a budget.
const DefaultMaxPages = 200

// MergeConfig layers a detected blueprint preset under an explicitly
// configured CrawlConfig. Explicit scalar fields win field-by-field; the
// pattern and rule lists are unioned with duplicates removed rather than
// overwritten.
func MergeConfig(explicit CrawlConfig, preset BlueprintPreset, rootURL string) CrawlConfig {
	merged := explicit

	merged.PriorityPaths = unionStrings(explicit.PriorityPaths, preset.PriorityPaths)
	merged.ExcludePaths = unionStrings(explicit.ExcludePaths, preset.ExcludePaths)
	merged.ExtractionRules = unionRules(explicit.ExtractionRules, preset.ExtractionRules)

	if merged.FeedURL == "" && preset.FeedPath != "" {
		merged.FeedURL = resolveAgainstRoot(rootURL, preset.FeedPath)
	}
	if merged.MaxPages <= 0 {
		merged.MaxPages = DefaultMaxPages
	}
	return merged
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, v := range append(append([]string{}, a...), b...) {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// unionRules dedupes on the (field, selector) pair so a preset rule never
// shadows an operator rule for the same field and value.
func unionRules(a, b []ExtractionRule) []ExtractionRule {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []ExtractionRule
	for _, r := range append(append([]ExtractionRule{}, a...), b...) {
		if r.Field == "" || r.Selector == "" {
			continue
		}
		key := fmt.Sprintf("%s\x00%s", strings.ToLower(r.Field), r.Selector)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func resolveAgainstRoot(rootURL, p string) string {
	root, err := url.Parse(rootURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(p)
	if err != nil {
		return ""
	}
	return root.ResolveReference(ref).String()
}
