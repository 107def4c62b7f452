// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package recommend

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// CategoryDetector maps free text onto a known category by keyword match.
// The keyword table is compiled once at construction into a list sorted by
// keyword length descending, so matching is deterministic and the most
// specific phrase wins ("vestido largo" out-ranks "vestido") regardless of
// map iteration order.
type CategoryDetector struct {
	entries []keywordEntry
}

// keywordEntry is one compiled (category, keyword) pair.
type keywordEntry struct {
	category string
	keyword  string
	pattern  *regexp.Regexp
}

// diacriticReplacer folds the fixed set of Spanish diacritics the catalog
// uses. Detection operates on folded lowercase text on both sides.
var diacriticReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u", "Ü", "u", "Ñ", "n",
)

// NormalizeText lowercases text and strips the fixed diacritic set.
func NormalizeText(s string) string {
	return diacriticReplacer.Replace(strings.ToLower(s))
}

// DefaultCategoryKeywords is the built-in keyword table for the storefront
// catalog. Keys are category names as they appear on products.
func DefaultCategoryKeywords() map[string][]string {
	return map[string][]string{
		"VESTIDOS LARGOS": {"vestido largo", "vestidos largos"},
		"VESTIDOS":        {"vestido", "vestidos"},
		"FALDAS":          {"falda", "faldas"},
		"BLUSAS":          {"blusa", "blusas", "camisa", "camisas", "top", "tops"},
		"PANTALONES":      {"pantalon", "pantalones", "jeans", "leggings"},
		"ABRIGOS":         {"abrigo", "abrigos", "chaqueta", "chaquetas", "chamarra"},
		"ACCESORIOS":      {"accesorio", "accesorios", "bolsa", "bolso", "collar", "aretes", "cinturon"},
		"ZAPATOS":         {"zapato", "zapatos", "tenis", "botas", "sandalias", "tacones"},
	}
}

// NewCategoryDetector compiles the keyword table. A nil or empty table
// falls back to DefaultCategoryKeywords.
func NewCategoryDetector(table map[string][]string) (*CategoryDetector, error) {
	if len(table) == 0 {
		table = DefaultCategoryKeywords()
	}

	entries := make([]keywordEntry, 0, len(table)*2)
	for category, keywords := range table {
		for _, kw := range keywords {
			normalized := NormalizeText(strings.TrimSpace(kw))
			if normalized == "" {
				continue
			}
			pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(normalized) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("compile keyword %q: %w", kw, err)
			}
			entries = append(entries, keywordEntry{
				category: category,
				keyword:  normalized,
				pattern:  pattern,
			})
		}
	}

	// Longest keyword first; ties ordered lexically so matching never
	// depends on map iteration order.
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].keyword) != len(entries[j].keyword) {
			return len(entries[i].keyword) > len(entries[j].keyword)
		}
		if entries[i].keyword != entries[j].keyword {
			return entries[i].keyword < entries[j].keyword
		}
		return entries[i].category < entries[j].category
	})

	return &CategoryDetector{entries: entries}, nil
}

// Detect returns the best-matching category for the query, restricted to
// the categories currently available. Returns false when nothing matches.
//
// Because entries are sorted longest-first, the first hit is the match with
// the greatest keyword length.
func (d *CategoryDetector) Detect(query string, available map[string]struct{}) (string, bool) {
	if query == "" || len(available) == 0 {
		return "", false
	}

	normalized := NormalizeText(query)
	for _, e := range d.entries {
		if _, ok := available[e.category]; !ok {
			continue
		}
		if e.pattern.MatchString(normalized) {
			return e.category, true
		}
	}
	return "", false
}
