package domain

import (
	"regexp"
	"strings"
	"time"
)

var cveIDRegex = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)

// CVE represents a tracked vulnerability in the catalog.
// KEV only ever transitions from false to true.
type CVE struct {
	ID        string     `json:"id"` // e.g., "CVE-2023-0001"
	Summary   *string    `json:"summary,omitempty"`
	CVSS      *float64   `json:"cvss,omitempty"`     // base score 0-10
	Severity  *string    `json:"severity,omitempty"` // LOW, MEDIUM, HIGH, CRITICAL
	Published *time.Time `json:"published,omitempty"`
	KEV       bool       `json:"kev"`
}

// CPERange is one CPE match entry of a CVE's configuration tree.
// Vendor and Product are nil when the identifier is malformed.
type CPERange struct {
	ID        uint    `json:"id"`
	CVEID     string  `json:"cve_id"`
	CPE23     string  `json:"cpe23"` // cpe:2.3:a:vendor:product:version:...
	Vendor    *string `json:"vendor,omitempty"`
	Product   *string `json:"product,omitempty"`
	StartIncl *string `json:"version_start_including,omitempty"`
	StartExcl *string `json:"version_start_excluding,omitempty"`
	EndIncl   *string `json:"version_end_including,omitempty"`
	EndExcl   *string `json:"version_end_excluding,omitempty"`
}

// IsValidCVEID checks the canonical CVE-YYYY-NNNN form.
func IsValidCVEID(id string) bool {
	return cveIDRegex.MatchString(id)
}

// SplitCPE returns the vendor and product fields of a CPE 2.3 identifier.
// Both are nil unless the identifier starts with "cpe:", has at least six
// colon-separated fields and carries non-empty vendor and product fields.
func SplitCPE(cpe23 string) (vendor, product *string) {
	if !strings.HasPrefix(cpe23, "cpe:") {
		return nil, nil
	}
	parts := strings.Split(cpe23, ":")
	if len(parts) < 6 || parts[3] == "" || parts[4] == "" {
		return nil, nil
	}
	v, p := parts[3], parts[4]
	return &v, &p
}

// NewCPERange builds a range row for cveID, deriving vendor and product from cpe23.
func NewCPERange(cveID, cpe23 string, startIncl, startExcl, endIncl, endExcl *string) CPERange {
	vendor, product := SplitCPE(cpe23)
	return CPERange{
		CVEID:     cveID,
		CPE23:     cpe23,
		Vendor:    vendor,
		Product:   product,
		StartIncl: startIncl,
		StartExcl: startExcl,
		EndIncl:   endIncl,
		EndExcl:   endExcl,
	}
}
