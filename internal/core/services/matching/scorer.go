package matching

import (
	"sort"
	"strings"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
)

// DefaultTopK bounds how many ranked candidates reach version evaluation.
const DefaultTopK = 75

// vendorHintWeight is added when the range vendor appears in the publisher.
const vendorHintWeight = 1.0

// Candidate is a range with its relevance score for one software record.
type Candidate struct {
	Range domain.CPERange
	Score float64
}

// Scorer ranks candidate ranges by token overlap and vendor hint.
type Scorer struct {
	tables *Tables
	topK   int
}

// NewScorer creates a scorer keeping at most topK candidates.
func NewScorer(tables *Tables, topK int) *Scorer {
	if topK < 1 {
		topK = DefaultTopK
	}
	return &Scorer{tables: tables, topK: topK}
}

// Score computes the relevance of r for sw.
func (s *Scorer) Score(sw domain.Software, r domain.CPERange) float64 {
	return s.score(Tokenize(s.tables.Alias(sw.Name)), sw.Publisher, r)
}

func (s *Scorer) score(nameTokens TokenSet, publisher *string, r domain.CPERange) float64 {
	score := float64(nameTokens.Intersect(Tokenize(domain.Deref(r.Product))))
	if publisher != nil && *publisher != "" && r.Vendor != nil {
		vendor := Normalize(*r.Vendor)
		if vendor != "" && strings.Contains(Normalize(*publisher), vendor) {
			score += vendorHintWeight
		}
	}
	return score
}

// Rank scores every range, orders them by descending score with ties
// broken by ascending range ID, and keeps the top K.
func (s *Scorer) Rank(sw domain.Software, ranges []domain.CPERange) []Candidate {
	nameTokens := Tokenize(s.tables.Alias(sw.Name))
	out := make([]Candidate, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, Candidate{Range: r, Score: s.score(nameTokens, sw.Publisher, r)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Range.ID < out[j].Range.ID
	})
	if len(out) > s.topK {
		out = out[:s.topK]
	}
	return out
}
