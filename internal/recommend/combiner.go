// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package recommend

import "sort"

// combined holds the per-product state of a merge in progress.
type combined struct {
	productID  string
	content    float64
	retail     float64
	fromRetail bool
}

// Combine merges two ranked candidate lists into one, weighted by w:
//
//	finalScore(id) = w*contentScore(id) + (1-w)*retailScore(id)
//
// An ID absent from one list contributes 0 from that list. The merge is a
// union by product ID; the result is sorted by final score descending with
// ties broken by source priority (retail before content) and then by
// product ID, so the order is fully deterministic.
//
// Combine does not skip source calls itself; the w==0 / w==1 short-circuit
// that avoids invoking a zero-weight source is the caller's job.
func Combine(content, retail []CandidateScore, w float64) []CandidateScore {
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}

	merged := make(map[string]*combined, len(content)+len(retail))

	for _, cs := range content {
		c, ok := merged[cs.ProductID]
		if !ok {
			c = &combined{productID: cs.ProductID}
			merged[cs.ProductID] = c
		}
		c.content = cs.Score
	}
	for _, cs := range retail {
		c, ok := merged[cs.ProductID]
		if !ok {
			c = &combined{productID: cs.ProductID}
			merged[cs.ProductID] = c
		}
		c.retail = cs.Score
		c.fromRetail = true
	}

	out := make([]CandidateScore, 0, len(merged))
	for _, c := range merged {
		source := SourceContent
		if c.fromRetail {
			source = SourceRetail
		}
		out = append(out, CandidateScore{
			ProductID: c.productID,
			Score:     w*c.content + (1-w)*c.retail,
			Source:    source,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Source != out[j].Source {
			return out[i].Source == SourceRetail
		}
		return out[i].ProductID < out[j].ProductID
	})

	return out
}
