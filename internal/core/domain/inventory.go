package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Column limits for inventory strings.
const (
	MaxSoftwareNameLen = 512
	MaxVersionLen      = 128
	MaxPublisherLen    = 256
	MaxHostnameLen     = 255

	MaxProtocolLen     = 10
	MaxLocalAddressLen = 64
	MaxProcessLen      = 256
	MaxBannerLen       = 1024
	MaxPort            = 65535
)

// DefaultSoftwareLimit caps software listings when no limit is given.
const DefaultSoftwareLimit = 300

// Asset is a machine that reports an inventory.
type Asset struct {
	ID        uint      `json:"id"`
	Hostname  string    `json:"hostname"`
	OSName    *string   `json:"os_name,omitempty"`
	OSVersion *string   `json:"os_version,omitempty"`
	OSBuild   *string   `json:"os_build,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Software is one installed product on an asset.
type Software struct {
	ID        uint    `json:"id"`
	AssetID   uint    `json:"asset_id"`
	Name      string  `json:"name"`
	Version   *string `json:"version,omitempty"`
	Publisher *string `json:"publisher,omitempty"`
}

// NetworkService is a listening socket reported on an asset.
type NetworkService struct {
	ID           uint    `json:"id"`
	AssetID      uint    `json:"asset_id"`
	Protocol     *string `json:"protocol,omitempty"`
	LocalAddress *string `json:"local_address,omitempty"`
	LocalPort    int     `json:"local_port"`
	Process      *string `json:"process,omitempty"`
	Banner       *string `json:"banner,omitempty"`
}

// OSInfo is the operating system block of an inventory report.
type OSInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Build   string `json:"build"`
}

// SoftwareEntry is one software line of an inventory report.
type SoftwareEntry struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Publisher string `json:"publisher"`
}

// ServiceEntry is one listening service line of an inventory report.
type ServiceEntry struct {
	Protocol     string `json:"protocol"`
	LocalAddress string `json:"local_address"`
	LocalPort    *int   `json:"local_port"`
	Process      string `json:"process"`
	Banner       string `json:"banner"`
}

// InventoryPayload is the snapshot an agent posts for one asset.
type InventoryPayload struct {
	Hostname string          `json:"hostname"`
	OS       OSInfo          `json:"os"`
	Software []SoftwareEntry `json:"software"`
	Services []ServiceEntry  `json:"services"`
}

// Validate checks the payload and returns a ValidationError on failure.
func (p *InventoryPayload) Validate() error {
	host := strings.TrimSpace(p.Hostname)
	if host == "" {
		return NewValidationError("hostname", "hostname required")
	}
	if utf8.RuneCountInString(host) > MaxHostnameLen {
		return NewValidationError("hostname", "hostname too long")
	}
	for i, s := range p.Software {
		if strings.TrimSpace(s.Name) == "" {
			return NewValidationError("software", "entry "+strconv.Itoa(i)+" has no name")
		}
	}
	for i, sv := range p.Services {
		if sv.LocalPort == nil {
			return NewValidationError("services", "entry "+strconv.Itoa(i)+" has no local_port")
		}
		if *sv.LocalPort < 0 || *sv.LocalPort > MaxPort {
			return NewValidationError("services", "entry "+strconv.Itoa(i)+" has an invalid local_port")
		}
	}
	return nil
}

// Snapshot converts the payload into software rows for assetID, trimming
// and truncating strings to their column limits.
func (p *InventoryPayload) Snapshot(assetID uint) []Software {
	out := make([]Software, 0, len(p.Software))
	for _, s := range p.Software {
		out = append(out, Software{
			AssetID:   assetID,
			Name:      truncate(strings.TrimSpace(s.Name), MaxSoftwareNameLen),
			Version:   OptionalString(truncate(strings.TrimSpace(s.Version), MaxVersionLen)),
			Publisher: OptionalString(truncate(strings.TrimSpace(s.Publisher), MaxPublisherLen)),
		})
	}
	return out
}

// ServiceSnapshot converts the payload into service rows for assetID.
// Protocols are upper-cased. Call Validate first.
func (p *InventoryPayload) ServiceSnapshot(assetID uint) []NetworkService {
	out := make([]NetworkService, 0, len(p.Services))
	for _, sv := range p.Services {
		port := 0
		if sv.LocalPort != nil {
			port = *sv.LocalPort
		}
		out = append(out, NetworkService{
			AssetID:      assetID,
			Protocol:     OptionalString(truncate(strings.ToUpper(strings.TrimSpace(sv.Protocol)), MaxProtocolLen)),
			LocalAddress: OptionalString(truncate(strings.TrimSpace(sv.LocalAddress), MaxLocalAddressLen)),
			LocalPort:    port,
			Process:      OptionalString(truncate(strings.TrimSpace(sv.Process), MaxProcessLen)),
			Banner:       OptionalString(truncate(sv.Banner, MaxBannerLen)),
		})
	}
	return out
}

// OptionalString returns nil for an empty string.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// truncate keeps at most n characters of s.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
