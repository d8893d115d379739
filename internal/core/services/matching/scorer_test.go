package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
)

func rangeWithID(id uint, cpe string) domain.CPERange {
	r := domain.NewCPERange("CVE-2024-0001", cpe, nil, nil, nil, nil)
	r.ID = id
	return r
}

func TestScorer_Score(t *testing.T) {
	s := NewScorer(DefaultTables(), 10)
	sw := domain.Software{Name: "VLC media player", Publisher: sp("VideoLAN")}

	vlc := rangeWithID(1, "cpe:2.3:a:videolan:vlc_media_player:*:*:*:*:*:*:*:*")
	assert.Equal(t, 4.0, s.Score(sw, vlc), "three shared tokens plus vendor hint")

	other := rangeWithID(2, "cpe:2.3:a:acme:media_server:*:*:*:*:*:*:*:*")
	assert.Equal(t, 1.0, s.Score(sw, other))

	noPublisher := domain.Software{Name: "VLC media player"}
	assert.Equal(t, 3.0, s.Score(noPublisher, vlc))

	malformed := rangeWithID(3, "broken")
	assert.Equal(t, 0.0, s.Score(sw, malformed))
}

func TestScorer_RankOrdersAndTruncates(t *testing.T) {
	s := NewScorer(DefaultTables(), 2)
	sw := domain.Software{Name: "VLC media player"}

	ranges := []domain.CPERange{
		rangeWithID(7, "cpe:2.3:a:acme:player:*:*:*:*:*:*:*:*"),
		rangeWithID(3, "cpe:2.3:a:acme:media_player:*:*:*:*:*:*:*:*"),
		rangeWithID(5, "cpe:2.3:a:acme:player:*:*:*:*:*:*:*:*"),
		rangeWithID(9, "cpe:2.3:a:videolan:vlc_media_player:*:*:*:*:*:*:*:*"),
	}

	ranked := s.Rank(sw, ranges)
	require.Len(t, ranked, 2)
	assert.Equal(t, uint(9), ranked[0].Range.ID)
	assert.Equal(t, uint(3), ranked[1].Range.ID)

	s = NewScorer(DefaultTables(), 10)
	ranked = s.Rank(sw, ranges)
	require.Len(t, ranked, 4)
	assert.Equal(t, uint(5), ranked[2].Range.ID, "equal scores keep ascending ID")
	assert.Equal(t, uint(7), ranked[3].Range.ID)
}

func TestNewScorer_DefaultTopK(t *testing.T) {
	s := NewScorer(DefaultTables(), 0)
	assert.Equal(t, DefaultTopK, s.topK)
}
