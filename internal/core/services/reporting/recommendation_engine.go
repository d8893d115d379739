package reporting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
)

const (
	maxRecommendations = 5
	minRecommendations = 3
	maxListed          = 3
)

// RecommendationEngine generates actionable remediation recommendations
type RecommendationEngine struct{}

var _ ports.Recommender = (*RecommendationEngine)(nil)

// NewRecommendationEngine creates a new recommendation engine instance
func NewRecommendationEngine() *RecommendationEngine {
	return &RecommendationEngine{}
}

type productRisk struct {
	product  string
	cves     map[string]struct{}
	kev      map[string]struct{}
	assets   map[uint]struct{}
	versions map[string]struct{}
	maxCVSS  float64
}

func (p *productRisk) priority() string {
	switch {
	case len(p.kev) > 0 || p.maxCVSS >= 9.0:
		return "critical"
	case p.maxCVSS >= 7.0:
		return "high"
	case p.maxCVSS >= 4.0:
		return "medium"
	default:
		return "low"
	}
}

var priorityRank = map[string]int{"critical": 0, "high": 1, "medium": 2, "low": 3}

// Recommend groups findings by affected product and returns one upgrade
// recommendation per product, most urgent first, padded with general advice.
func (re *RecommendationEngine) Recommend(findings []domain.Finding) []domain.Recommendation {
	byProduct := make(map[string]*productRisk)
	for _, f := range findings {
		name := domain.Deref(f.Product)
		if name == "" {
			name = "unidentified product"
		}
		p, ok := byProduct[name]
		if !ok {
			p = &productRisk{
				product:  name,
				cves:     make(map[string]struct{}),
				kev:      make(map[string]struct{}),
				assets:   make(map[uint]struct{}),
				versions: make(map[string]struct{}),
			}
			byProduct[name] = p
		}
		p.cves[f.CVEID] = struct{}{}
		p.assets[f.AssetID] = struct{}{}
		if f.KEV {
			p.kev[f.CVEID] = struct{}{}
		}
		if v := domain.Deref(f.DetectedVersion); v != "" {
			p.versions[v] = struct{}{}
		}
		if f.CVSS != nil && *f.CVSS > p.maxCVSS {
			p.maxCVSS = *f.CVSS
		}
	}

	risks := make([]*productRisk, 0, len(byProduct))
	for _, p := range byProduct {
		risks = append(risks, p)
	}
	sort.Slice(risks, func(i, j int) bool {
		a, b := risks[i], risks[j]
		if ra, rb := priorityRank[a.priority()], priorityRank[b.priority()]; ra != rb {
			return ra < rb
		}
		if len(a.kev) != len(b.kev) {
			return len(a.kev) > len(b.kev)
		}
		if a.maxCVSS != b.maxCVSS {
			return a.maxCVSS > b.maxCVSS
		}
		if len(a.assets) != len(b.assets) {
			return len(a.assets) > len(b.assets)
		}
		return a.product < b.product
	})

	var recommendations []domain.Recommendation
	for _, p := range risks {
		recommendations = append(recommendations, re.forProduct(p))
	}

	// Add general recommendations if we have fewer than 3
	if len(recommendations) < minRecommendations {
		recommendations = append(recommendations, re.getGeneralRecommendations()...)
	}

	if len(recommendations) > maxRecommendations {
		recommendations = recommendations[:maxRecommendations]
	}

	return recommendations
}

func (re *RecommendationEngine) forProduct(p *productRisk) domain.Recommendation {
	desc := fmt.Sprintf("%s is affected by %d CVE(s) on %d asset(s), highest CVSS %.1f.",
		p.product, len(p.cves), len(p.assets), p.maxCVSS)
	var actions []string
	if len(p.kev) > 0 {
		desc += fmt.Sprintf(" %d are known to be exploited in the wild.", len(p.kev))
		actions = append(actions, "Patch known-exploited CVEs first: "+listed(p.kev))
	}
	if len(p.versions) > 0 {
		actions = append(actions, fmt.Sprintf("Upgrade %s from detected versions %s to a fixed release", p.product, listed(p.versions)))
	} else {
		actions = append(actions, fmt.Sprintf("Identify the installed %s version and upgrade to a fixed release", p.product))
	}
	actions = append(actions, "Re-ingest the inventory of affected assets and re-run matching to confirm")

	return domain.Recommendation{
		Priority:    p.priority(),
		Title:       "Update " + p.product,
		Description: desc,
		Actions:     actions,
	}
}

// listed returns up to maxListed sorted keys, noting how many were omitted.
func listed(set map[string]struct{}) string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) <= maxListed {
		return strings.Join(keys, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(keys[:maxListed], ", "), len(keys)-maxListed)
}

func (re *RecommendationEngine) getGeneralRecommendations() []domain.Recommendation {
	return []domain.Recommendation{
		{
			Priority:    "low",
			Title:       "Keep Inventories Current",
			Description: "Findings reflect the last software inventory each asset reported. Stale inventories hide new exposure and keep fixed findings open.",
			Actions: []string{
				"Schedule inventory collection on every managed asset",
				"Re-run matching after each ingest cycle",
				"Retire assets that no longer report",
			},
		},
		{
			Priority:    "low",
			Title:       "Schedule Feed Synchronization",
			Description: "New CVEs and known-exploited entries are only matched after the catalog is synchronized.",
			Actions: []string{
				"Set VMSCOUT_SYNC_INTERVAL to refresh NVD and KEV periodically",
				"Configure an NVD API key for a higher request quota",
			},
		},
	}
}
