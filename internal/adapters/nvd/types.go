package nvd

import (
	"bytes"
	"encoding/json"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
)

// Response is one page of the CVE API 2.0 listing.
type Response struct {
	ResultsPerPage  int             `json:"resultsPerPage"`
	StartIndex      int             `json:"startIndex"`
	TotalResults    int             `json:"totalResults"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

// Vulnerability wraps a CVE descriptor.
type Vulnerability struct {
	CVE CVEItem `json:"cve"`
}

// CVEItem holds the descriptor fields the catalog consumes.
type CVEItem struct {
	ID           string         `json:"id"`
	Published    string         `json:"published"`
	Descriptions []Description  `json:"descriptions"`
	Metrics      Metrics        `json:"metrics"`
	Config       Configurations `json:"configurations"`
}

type Description struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type Metrics struct {
	V31 []CVSSMetric `json:"cvssMetricV31"`
	V30 []CVSSMetric `json:"cvssMetricV30"`
	V2  []CVSSMetric `json:"cvssMetricV2"`
}

// CVSSMetric is a metric block. Version 2 blocks carry the severity next
// to cvssData rather than inside it.
type CVSSMetric struct {
	CVSSData struct {
		BaseScore    *float64 `json:"baseScore"`
		BaseSeverity *string  `json:"baseSeverity"`
	} `json:"cvssData"`
	BaseSeverity *string `json:"baseSeverity"`
}

type Node struct {
	CPEMatch []CPEMatch `json:"cpeMatch"`
	Children []Node     `json:"children"`
}

// CPEMatch is one match entry. Criteria replaced cpe23Uri in API 2.0.
type CPEMatch struct {
	Vulnerable            bool    `json:"vulnerable"`
	Criteria              string  `json:"criteria"`
	CPE23URI              string  `json:"cpe23Uri"`
	VersionStartIncluding *string `json:"versionStartIncluding"`
	VersionStartExcluding *string `json:"versionStartExcluding"`
	VersionEndIncluding   *string `json:"versionEndIncluding"`
	VersionEndExcluding   *string `json:"versionEndExcluding"`
}

// Configurations is the list of configuration trees. A single legacy
// object of the form {"nodes": [...]} is accepted as a one-element list.
type Configurations []Configuration

type Configuration struct {
	Nodes []Node `json:"nodes"`
}

func (c *Configurations) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}
	if data[0] == '{' {
		var single Configuration
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*c = Configurations{single}
		return nil
	}
	var list []Configuration
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*c = list
	return nil
}

// ToPage converts the response into the feed page consumed by the synchronizer.
func (r *Response) ToPage() *domain.FeedPage {
	page := &domain.FeedPage{
		StartIndex:   r.StartIndex,
		TotalResults: r.TotalResults,
		Items:        make([]domain.FeedItem, 0, len(r.Vulnerabilities)),
	}
	for _, v := range r.Vulnerabilities {
		page.Items = append(page.Items, v.CVE.toItem())
	}
	return page
}

func (c CVEItem) toItem() domain.FeedItem {
	item := domain.FeedItem{
		ID:        c.ID,
		Published: c.Published,
		Metrics: domain.FeedMetrics{
			V31: convertMetrics(c.Metrics.V31),
			V30: convertMetrics(c.Metrics.V30),
			V2:  convertMetrics(c.Metrics.V2),
		},
	}
	for _, d := range c.Descriptions {
		item.Descriptions = append(item.Descriptions, domain.FeedDescription{Lang: d.Lang, Value: d.Value})
	}
	for _, conf := range c.Config {
		item.Matches = appendMatches(item.Matches, conf.Nodes)
	}
	return item
}

func convertMetrics(in []CVSSMetric) []domain.FeedCVSS {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.FeedCVSS, len(in))
	for i, m := range in {
		severity := m.CVSSData.BaseSeverity
		if severity == nil {
			severity = m.BaseSeverity
		}
		out[i] = domain.FeedCVSS{BaseScore: m.CVSSData.BaseScore, BaseSeverity: severity}
	}
	return out
}

func appendMatches(out []domain.FeedCPEMatch, nodes []Node) []domain.FeedCPEMatch {
	for _, n := range nodes {
		for _, m := range n.CPEMatch {
			criteria := m.Criteria
			if criteria == "" {
				criteria = m.CPE23URI
			}
			if criteria == "" {
				continue
			}
			out = append(out, domain.FeedCPEMatch{
				Criteria:  criteria,
				StartIncl: m.VersionStartIncluding,
				StartExcl: m.VersionStartExcluding,
				EndIncl:   m.VersionEndIncluding,
				EndExcl:   m.VersionEndExcluding,
			})
		}
		out = appendMatches(out, n.Children)
	}
	return out
}
