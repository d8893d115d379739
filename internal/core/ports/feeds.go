package ports

import (
	"context"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
)

// VulnerabilityFeed fetches pages of the CVE enumeration feed.
type VulnerabilityFeed interface {
	// FetchPage returns domain.ErrFeedNotFound when the feed rejects the window.
	FetchPage(ctx context.Context, window domain.FeedWindow, startIndex int) (*domain.FeedPage, error)
}

// ExploitedFeed fetches the known-exploited vulnerability identifiers.
type ExploitedFeed interface {
	FetchExploited(ctx context.Context) ([]string, error)
}
