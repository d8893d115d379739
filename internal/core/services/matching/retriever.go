package matching

import (
	"context"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
)

const (
	DefaultDirectLimit = 5000
	DefaultFuzzyLimit  = 10000
)

// Phase names the retrieval strategy that produced candidates.
type Phase string

const (
	PhaseNone   Phase = "none"
	PhaseDirect Phase = "direct"
	PhaseFuzzy  Phase = "fuzzy"
)

// Retriever finds CPE ranges that plausibly describe a software record.
type Retriever struct {
	tables      *Tables
	directLimit int
	fuzzyLimit  int
}

// NewRetriever creates a retriever over the given tables.
func NewRetriever(tables *Tables) *Retriever {
	return &Retriever{
		tables:      tables,
		directLimit: DefaultDirectLimit,
		fuzzyLimit:  DefaultFuzzyLimit,
	}
}

// Candidates returns candidate ranges for sw. The known-product table is
// tried first; fuzzy token search runs only when it yields nothing.
func (r *Retriever) Candidates(ctx context.Context, store ports.CatalogReader, sw domain.Software) ([]domain.CPERange, Phase, error) {
	// Strategy 1: known product table on the plain normalized name
	if kp, ok := r.tables.Lookup(Normalize(sw.Name)); ok {
		rows, err := store.FindRangesByVendorProduct(ctx, kp.Vendor, kp.Product, r.directLimit)
		if err != nil {
			return nil, PhaseNone, err
		}
		if len(rows) > 0 {
			return rows, PhaseDirect, nil
		}
	}

	// Strategy 2: token search on the aliased name and the publisher
	nameTokens := Tokenize(r.tables.Alias(sw.Name)).Sorted()
	var vendorTokens []string
	if sw.Publisher != nil {
		vendorTokens = Tokenize(*sw.Publisher).Sorted()
	}
	if len(nameTokens) == 0 && len(vendorTokens) == 0 {
		return nil, PhaseNone, nil
	}

	rows, err := store.SearchRanges(ctx, nameTokens, vendorTokens, r.fuzzyLimit)
	if err != nil {
		return nil, PhaseNone, err
	}
	if len(rows) == 0 {
		return nil, PhaseNone, nil
	}
	return rows, PhaseFuzzy, nil
}
