package storage

import (
	"github.com/lcalzada-xor/vmscout/internal/core/domain"
)

func cveToDomain(m CVEModel) *domain.CVE {
	return &domain.CVE{
		ID:        m.ID,
		Summary:   m.Summary,
		CVSS:      m.CVSS,
		Severity:  m.Severity,
		Published: m.Published,
		KEV:       m.KEV,
	}
}

func cveToModel(c domain.CVE) CVEModel {
	return CVEModel{
		ID:        c.ID,
		Summary:   c.Summary,
		CVSS:      c.CVSS,
		Severity:  c.Severity,
		Published: c.Published,
		KEV:       c.KEV,
	}
}

func rangeToDomain(m CPERangeModel) domain.CPERange {
	return domain.CPERange{
		ID:        m.ID,
		CVEID:     m.CVEID,
		CPE23:     m.CPE23,
		Vendor:    m.Vendor,
		Product:   m.Product,
		StartIncl: m.StartIncl,
		StartExcl: m.StartExcl,
		EndIncl:   m.EndIncl,
		EndExcl:   m.EndExcl,
	}
}

func rangesToDomain(models []CPERangeModel) []domain.CPERange {
	out := make([]domain.CPERange, len(models))
	for i, m := range models {
		out[i] = rangeToDomain(m)
	}
	return out
}

func rangeToModel(cveID string, r domain.CPERange) CPERangeModel {
	return CPERangeModel{
		CVEID:     cveID,
		CPE23:     r.CPE23,
		Vendor:    r.Vendor,
		Product:   r.Product,
		StartIncl: r.StartIncl,
		StartExcl: r.StartExcl,
		EndIncl:   r.EndIncl,
		EndExcl:   r.EndExcl,
	}
}

func assetToDomain(m AssetModel) domain.Asset {
	return domain.Asset{
		ID:        m.ID,
		Hostname:  m.Hostname,
		OSName:    m.OSName,
		OSVersion: m.OSVersion,
		OSBuild:   m.OSBuild,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func softwareToDomain(m SoftwareModel) domain.Software {
	return domain.Software{
		ID:        m.ID,
		AssetID:   m.AssetID,
		Name:      m.Name,
		Version:   m.Version,
		Publisher: m.Publisher,
	}
}

func softwareToModel(assetID uint, s domain.Software) SoftwareModel {
	return SoftwareModel{
		AssetID:   assetID,
		Name:      s.Name,
		Version:   s.Version,
		Publisher: s.Publisher,
	}
}

func serviceToDomain(m ServiceModel) domain.NetworkService {
	return domain.NetworkService{
		ID:           m.ID,
		AssetID:      m.AssetID,
		Protocol:     m.Protocol,
		LocalAddress: m.LocalAddress,
		LocalPort:    m.LocalPort,
		Process:      m.Process,
		Banner:       m.Banner,
	}
}

func serviceToModel(assetID uint, s domain.NetworkService) ServiceModel {
	return ServiceModel{
		AssetID:      assetID,
		Protocol:     s.Protocol,
		LocalAddress: s.LocalAddress,
		LocalPort:    s.LocalPort,
		Process:      s.Process,
		Banner:       s.Banner,
	}
}

func findingToDomain(m FindingModel) domain.Finding {
	return domain.Finding{
		ID:              m.ID,
		AssetID:         m.AssetID,
		SoftwareID:      m.SoftwareID,
		CVEID:           m.CVEID,
		Product:         m.Product,
		DetectedVersion: m.DetectedVersion,
		Severity:        m.Severity,
		CVSS:            m.CVSS,
		KEV:             m.KEV,
		CreatedAt:       m.CreatedAt,
	}
}

func findingToModel(f domain.Finding) FindingModel {
	return FindingModel{
		AssetID:         f.AssetID,
		SoftwareID:      f.SoftwareID,
		CVEID:           f.CVEID,
		Product:         f.Product,
		DetectedVersion: f.DetectedVersion,
		Severity:        f.Severity,
		CVSS:            f.CVSS,
		KEV:             f.KEV,
	}
}
