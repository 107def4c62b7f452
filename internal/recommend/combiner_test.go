// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package recommend

import (
	"math"
	"testing"
)

func combineFixtures() (content, retail []CandidateScore) {
	content = []CandidateScore{
		{ProductID: "A", Score: 0.9, Source: SourceContent},
		{ProductID: "B", Score: 0.5, Source: SourceContent},
	}
	retail = []CandidateScore{
		{ProductID: "B", Score: 0.8, Source: SourceRetail},
		{ProductID: "C", Score: 0.6, Source: SourceRetail},
	}
	return content, retail
}

func assertOrder(t *testing.T, got []CandidateScore, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ProductID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ProductID)
		}
	}
}

func TestCombineRetailOnly(t *testing.T) {
	content, retail := combineFixtures()

	got := Combine(content, retail, 0)

	// w=0: only retail scores count; A drops to 0 and sorts last.
	assertOrder(t, got, []string{"B", "C", "A"})
	if got[0].Score != 0.8 || got[1].Score != 0.6 {
		t.Errorf("unexpected scores: %+v", got)
	}
	if got[2].Score != 0 {
		t.Errorf("content-only item should score 0 at w=0, got %g", got[2].Score)
	}
}

func TestCombineContentOnly(t *testing.T) {
	content, retail := combineFixtures()

	got := Combine(content, retail, 1)

	assertOrder(t, got, []string{"A", "B", "C"})
	if got[0].Score != 0.9 || got[1].Score != 0.5 {
		t.Errorf("unexpected scores: %+v", got)
	}
}

func TestCombineWeightedBlend(t *testing.T) {
	content, retail := combineFixtures()

	got := Combine(content, retail, 0.5)

	// A=0.45, B=0.25+0.40=0.65, C=0.30
	assertOrder(t, got, []string{"B", "A", "C"})

	want := map[string]float64{"A": 0.45, "B": 0.65, "C": 0.30}
	for _, cs := range got {
		if math.Abs(cs.Score-want[cs.ProductID]) > 1e-9 {
			t.Errorf("%s: expected %g, got %g", cs.ProductID, want[cs.ProductID], cs.Score)
		}
	}
}

func TestCombineUnionNoDuplicates(t *testing.T) {
	content, retail := combineFixtures()

	got := Combine(content, retail, 0.5)

	seen := make(map[string]struct{})
	for _, cs := range got {
		if _, dup := seen[cs.ProductID]; dup {
			t.Errorf("duplicate product %s in merge", cs.ProductID)
		}
		seen[cs.ProductID] = struct{}{}
	}
	if len(seen) != 3 {
		t.Errorf("expected union of 3 products, got %d", len(seen))
	}
}

func TestCombineTieBreakRetailFirst(t *testing.T) {
	content := []CandidateScore{{ProductID: "X", Score: 0.5, Source: SourceContent}}
	retail := []CandidateScore{{ProductID: "Y", Score: 0.5, Source: SourceRetail}}

	got := Combine(content, retail, 0.5)

	// Both end at 0.25; the retail-sourced item wins the tie.
	assertOrder(t, got, []string{"Y", "X"})
}

func TestCombineDeterministic(t *testing.T) {
	content, retail := combineFixtures()

	first := Combine(content, retail, 0.5)
	for i := 0; i < 10; i++ {
		again := Combine(content, retail, 0.5)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("non-deterministic merge at position %d: %+v vs %+v", j, first[j], again[j])
			}
		}
	}
}

func TestCombineEmptyInputs(t *testing.T) {
	if got := Combine(nil, nil, 0.5); len(got) != 0 {
		t.Errorf("expected empty merge, got %+v", got)
	}

	content, _ := combineFixtures()
	got := Combine(content, nil, 0.5)
	assertOrder(t, got, []string{"A", "B"})
}

func TestCombineClampsWeight(t *testing.T) {
	content, retail := combineFixtures()

	low := Combine(content, retail, -0.5)
	assertOrder(t, low, []string{"B", "C", "A"})

	high := Combine(content, retail, 1.5)
	assertOrder(t, high, []string{"A", "B", "C"})
}
