package domain

import (
	"sort"
	"strings"
	"time"
)

// ReportMetadata describes a generated report.
type ReportMetadata struct {
	ID          string
	Title       string
	GeneratedAt time.Time
	GeneratedBy string
	AssetID     *uint
}

// SeverityStats counts findings per severity tier.
type SeverityStats struct {
	Total    int
	Critical int
	High     int
	Medium   int
	Low      int
	Unknown  int
	KEV      int
}

// RiskItem is one CVE ranked by how much of the fleet it touches.
type RiskItem struct {
	Rank           int
	CVEID          string
	Severity       string
	CVSS           float64
	KEV            bool
	AffectedAssets int
}

// Recommendation is an actionable remediation step.
type Recommendation struct {
	Priority    string // critical, high, medium, low
	Title       string
	Description string
	Actions     []string
}

// FindingsReport aggregates findings for export.
type FindingsReport struct {
	Metadata        ReportMetadata
	RiskScore       float64
	RiskLevel       string
	Assets          int
	Stats           SeverityStats
	TopRisks        []RiskItem
	Recommendations []Recommendation
}

// BuildFindingsReport summarizes findings. TopRisks is ordered by KEV first,
// then CVSS, then affected asset count, then CVE ID, and holds at most topN items.
func BuildFindingsReport(meta ReportMetadata, findings []Finding, topN int) *FindingsReport {
	report := &FindingsReport{Metadata: meta}

	assets := make(map[uint]struct{})
	type agg struct {
		item   RiskItem
		assets map[uint]struct{}
	}
	byCVE := make(map[string]*agg)

	for _, f := range findings {
		assets[f.AssetID] = struct{}{}
		report.Stats.Total++
		switch strings.ToUpper(Deref(f.Severity)) {
		case "CRITICAL":
			report.Stats.Critical++
		case "HIGH":
			report.Stats.High++
		case "MEDIUM":
			report.Stats.Medium++
		case "LOW":
			report.Stats.Low++
		default:
			report.Stats.Unknown++
		}
		if f.KEV {
			report.Stats.KEV++
		}

		a, ok := byCVE[f.CVEID]
		if !ok {
			a = &agg{
				item:   RiskItem{CVEID: f.CVEID, Severity: Deref(f.Severity), KEV: f.KEV},
				assets: make(map[uint]struct{}),
			}
			if f.CVSS != nil {
				a.item.CVSS = *f.CVSS
			}
			byCVE[f.CVEID] = a
		}
		a.assets[f.AssetID] = struct{}{}
	}
	report.Assets = len(assets)

	risks := make([]RiskItem, 0, len(byCVE))
	for _, a := range byCVE {
		a.item.AffectedAssets = len(a.assets)
		risks = append(risks, a.item)
	}
	sort.Slice(risks, func(i, j int) bool {
		if risks[i].KEV != risks[j].KEV {
			return risks[i].KEV
		}
		if risks[i].CVSS != risks[j].CVSS {
			return risks[i].CVSS > risks[j].CVSS
		}
		if risks[i].AffectedAssets != risks[j].AffectedAssets {
			return risks[i].AffectedAssets > risks[j].AffectedAssets
		}
		return risks[i].CVEID < risks[j].CVEID
	})
	if topN > 0 && len(risks) > topN {
		risks = risks[:topN]
	}
	for i := range risks {
		risks[i].Rank = i + 1
	}
	report.TopRisks = risks

	report.RiskScore = riskScore(report.Stats, risks)
	report.RiskLevel = RiskLevel(report.RiskScore)
	return report
}

// riskScore is the highest CVSS seen, raised to at least 8.0 when any KEV is present.
func riskScore(stats SeverityStats, risks []RiskItem) float64 {
	score := 0.0
	for _, r := range risks {
		if r.CVSS > score {
			score = r.CVSS
		}
	}
	if stats.KEV > 0 && score < 8.0 {
		score = 8.0
	}
	return score
}

// RiskLevel maps a 0-10 score to a label.
func RiskLevel(score float64) string {
	switch {
	case score >= 9.0:
		return "Critical"
	case score >= 7.0:
		return "High"
	case score >= 4.0:
		return "Medium"
	case score > 0:
		return "Low"
	default:
		return "None"
	}
}
