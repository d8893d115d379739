// Package feeds keeps the CVE catalog current from the enumeration and
// known-exploited feeds.
package feeds

import (
	"context"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
)

// Service implements ports.FeedSyncer on top of the two synchronizers.
type Service struct {
	nvd *NVDSync
	kev *KEVSync
}

var _ ports.FeedSyncer = (*Service)(nil)

func NewService(nvd *NVDSync, kev *KEVSync) *Service {
	return &Service{nvd: nvd, kev: kev}
}

func (s *Service) SyncVulnerabilities(ctx context.Context, days int) (domain.SyncResult, error) {
	return s.nvd.Update(ctx, days)
}

func (s *Service) SyncKnownExploited(ctx context.Context) (domain.KEVResult, error) {
	return s.kev.Update(ctx)
}
