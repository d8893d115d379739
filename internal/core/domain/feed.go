package domain

import (
	"strings"
	"time"
)

// FeedWindow is an inclusive range of publication dates.
type FeedWindow struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days covered by the window.
func (w FeedWindow) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// FeedPage is one page of the enumeration feed.
type FeedPage struct {
	StartIndex   int
	TotalResults int
	Items        []FeedItem
}

// FeedItem is the subset of an enumeration-feed CVE descriptor used by the catalog.
type FeedItem struct {
	ID           string
	Descriptions []FeedDescription
	Metrics      FeedMetrics
	Published    string
	Matches      []FeedCPEMatch
}

// FeedDescription is a localized description text.
type FeedDescription struct {
	Lang  string
	Value string
}

// FeedMetrics holds CVSS metric blocks keyed by CVSS version.
type FeedMetrics struct {
	V31 []FeedCVSS
	V30 []FeedCVSS
	V2  []FeedCVSS
}

// FeedCVSS is the score and severity of one metric block.
type FeedCVSS struct {
	BaseScore    *float64
	BaseSeverity *string
}

// FeedCPEMatch is one match entry of a configuration tree.
type FeedCPEMatch struct {
	Criteria  string
	StartIncl *string
	StartExcl *string
	EndIncl   *string
	EndExcl   *string
}

// EnglishSummary returns the first English description, if any.
func (it FeedItem) EnglishSummary() *string {
	for _, d := range it.Descriptions {
		if d.Lang == "en" {
			v := d.Value
			return &v
		}
	}
	return nil
}

// BestCVSS picks the first block of the preferred metric version
// (v3.1, then v3.0, then v2).
func (it FeedItem) BestCVSS() (*float64, *string) {
	for _, blocks := range [][]FeedCVSS{it.Metrics.V31, it.Metrics.V30, it.Metrics.V2} {
		if len(blocks) > 0 {
			return blocks[0].BaseScore, blocks[0].BaseSeverity
		}
	}
	return nil, nil
}

// Ranges converts the item's match entries into CPE range rows.
func (it FeedItem) Ranges() []CPERange {
	ranges := make([]CPERange, 0, len(it.Matches))
	for _, m := range it.Matches {
		if m.Criteria == "" {
			continue
		}
		ranges = append(ranges, NewCPERange(it.ID, m.Criteria, m.StartIncl, m.StartExcl, m.EndIncl, m.EndExcl))
	}
	return ranges
}

var feedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseFeedTime parses an ISO-8601 timestamp. Values without a zone are UTC.
// Unparsable input yields nil.
func ParseFeedTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// ToCVE builds the descriptive part of a catalog entry. KEV is left false;
// the store never overwrites it from this path.
func (it FeedItem) ToCVE() CVE {
	score, severity := it.BestCVSS()
	return CVE{
		ID:        it.ID,
		Summary:   it.EnglishSummary(),
		CVSS:      score,
		Severity:  severity,
		Published: ParseFeedTime(it.Published),
	}
}
