package matching

import (
	"strings"

	version "github.com/hashicorp/go-version"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
)

// Verdict is the outcome of a version range check.
type Verdict int

const (
	// Unmatched means the version is provably outside the range.
	Unmatched Verdict = iota
	// Matched means every present bound is satisfied.
	Matched
	// Indeterminate means the version or a bound is missing or unparsable.
	Indeterminate
)

func (v Verdict) String() string {
	switch v {
	case Matched:
		return "matched"
	case Unmatched:
		return "unmatched"
	default:
		return "indeterminate"
	}
}

// Applies folds the verdict into a match decision. Indeterminate counts
// as a match so unparsable input never hides a vulnerable install.
func (v Verdict) Applies() bool {
	return v != Unmatched
}

type bound struct {
	raw *string
	ok  func(cmp int) bool
}

// EvaluateRange checks detected against the four optional bounds of r.
func EvaluateRange(detected *string, r domain.CPERange) Verdict {
	if detected == nil || strings.TrimSpace(*detected) == "" {
		return Indeterminate
	}
	v, err := version.NewVersion(strings.TrimSpace(*detected))
	if err != nil {
		return Indeterminate
	}

	bounds := []bound{
		{r.StartIncl, func(c int) bool { return c >= 0 }},
		{r.StartExcl, func(c int) bool { return c > 0 }},
		{r.EndIncl, func(c int) bool { return c <= 0 }},
		{r.EndExcl, func(c int) bool { return c < 0 }},
	}

	// Parse every present bound before comparing so a bad bound is
	// indeterminate regardless of order.
	parsed := make([]*version.Version, len(bounds))
	for i, b := range bounds {
		if b.raw == nil || strings.TrimSpace(*b.raw) == "" {
			continue
		}
		bv, err := version.NewVersion(strings.TrimSpace(*b.raw))
		if err != nil {
			return Indeterminate
		}
		parsed[i] = bv
	}

	for i, b := range bounds {
		if parsed[i] == nil {
			continue
		}
		if !b.ok(v.Compare(parsed[i])) {
			return Unmatched
		}
	}
	return Matched
}
