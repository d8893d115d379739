package reporting

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
)

func sampleReport(findings []domain.Finding) *domain.FindingsReport {
	return domain.BuildFindingsReport(domain.ReportMetadata{
		ID:          "5f0c2a7e-1111-2222-3333-444455556666",
		Title:       "Vulnerability Findings",
		GeneratedAt: time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC),
		GeneratedBy: "vmscout",
	}, findings, 10)
}

func TestPDFExporter_ExportFindings(t *testing.T) {
	critical := "CRITICAL"
	score := 9.8
	var findings []domain.Finding
	for i := 0; i < 40; i++ {
		findings = append(findings, domain.Finding{
			AssetID:  uint(i%5 + 1),
			CVEID:    fmt.Sprintf("CVE-2024-%04d", i),
			Severity: &critical,
			CVSS:     &score,
			KEV:      i%7 == 0,
		})
	}

	var buf bytes.Buffer
	require.NoError(t, NewPDFExporter().ExportFindings(sampleReport(findings), &buf))

	out := buf.Bytes()
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "output should be a PDF document")
	assert.Greater(t, len(out), 1000)
}

func TestPDFExporter_WithRecommendations(t *testing.T) {
	report := sampleReport([]domain.Finding{{AssetID: 1, CVEID: "CVE-2023-0001", KEV: true}})
	report.Recommendations = []domain.Recommendation{
		{
			Priority:    "critical",
			Title:       "Update vlc_media_player",
			Description: "vlc_media_player is affected by 1 CVE(s) on 1 asset(s), highest CVSS 7.8.",
			Actions:     []string{"Patch known-exploited CVEs first: CVE-2023-0001", strings.Repeat("long action ", 20)},
		},
		{Priority: "low", Title: "Keep Inventories Current", Description: "Findings reflect the last inventory."},
	}

	var withRecs, without bytes.Buffer
	require.NoError(t, NewPDFExporter().ExportFindings(report, &withRecs))
	report.Recommendations = nil
	require.NoError(t, NewPDFExporter().ExportFindings(report, &without))

	assert.True(t, bytes.HasPrefix(withRecs.Bytes(), []byte("%PDF-")))
	assert.Greater(t, withRecs.Len(), without.Len())
}

func TestPDFExporter_EmptyReport(t *testing.T) {
	var buf bytes.Buffer
	report := sampleReport(nil)
	report.Metadata.ID = "abc"

	require.NoError(t, NewPDFExporter().ExportFindings(report, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestColors(t *testing.T) {
	r, g, b := riskColor(9.1)
	assert.Equal(t, [3]int{220, 53, 69}, [3]int{r, g, b})
	r, g, b = riskColor(0)
	assert.Equal(t, [3]int{52, 199, 89}, [3]int{r, g, b})

	r, g, b = severityColor("high")
	assert.Equal(t, [3]int{255, 149, 0}, [3]int{r, g, b})
	r, g, b = severityColor("")
	assert.Equal(t, [3]int{120, 120, 120}, [3]int{r, g, b})
}
