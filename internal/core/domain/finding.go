package domain

import (
	"time"
)

const (
	DefaultFindingLimit = 500
	MaxFindingLimit     = 5000
)

// Finding is a materialized claim that an asset's software is subject to a CVE.
// Severity, CVSS and KEV are copies taken at match time.
type Finding struct {
	ID              uint      `json:"id"`
	AssetID         uint      `json:"asset_id"`
	SoftwareID      *uint     `json:"software_id,omitempty"`
	CVEID           string    `json:"cve"`
	Product         *string   `json:"product,omitempty"`
	DetectedVersion *string   `json:"detected_version,omitempty"`
	Severity        *string   `json:"severity,omitempty"`
	CVSS            *float64  `json:"cvss,omitempty"`
	KEV             bool      `json:"kev"`
	CreatedAt       time.Time `json:"created_at"`
}

// FindingFilter selects findings for listing. A nil AssetID lists all assets.
type FindingFilter struct {
	AssetID *uint
	Limit   int
}

// Normalize applies the default limit and validates bounds.
func (f *FindingFilter) Normalize() error {
	if f.Limit == 0 {
		f.Limit = DefaultFindingLimit
	}
	if f.Limit < 0 || f.Limit > MaxFindingLimit {
		return NewValidationError("limit", "must be between 1 and 5000")
	}
	if f.AssetID != nil && *f.AssetID == 0 {
		return NewValidationError("asset_id", "must be positive")
	}
	return nil
}

// MatchResult is the outcome of matching a single asset.
type MatchResult struct {
	AssetID         uint `json:"asset_id"`
	FindingsCreated int  `json:"findings_created"`
}

// MatchAllResult summarizes a match run over every asset.
type MatchAllResult struct {
	AssetsProcessed int `json:"assets_processed"`
	FindingsCreated int `json:"findings_created"`
	Failed          int `json:"failed"`
}

// CatalogStats are row counts across the store.
type CatalogStats struct {
	Assets   int64 `json:"assets"`
	Software int64 `json:"software"`
	Services int64 `json:"services"`
	CVEs     int64 `json:"cves"`
	KEV      int64 `json:"kev"`
	Findings int64 `json:"findings"`
}
