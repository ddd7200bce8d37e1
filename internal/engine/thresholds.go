package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// ErrInvalidBands is returned for an unusable tier configuration.
var ErrInvalidBands = errors.New("invalid tier bands")

// Thresholds maps a 0-100 score to a tier.
// Bands use lower inclusive, next lower exclusive; the last band is open.
type Thresholds struct {
	bands []domain.TierBand
}

// NewThresholds validates that bands start at 0 and ascend strictly. When
// tiers is given, the bands must name exactly those tiers in that order, so
// only the boundaries are configurable.
func NewThresholds(bands []domain.TierBand, tiers ...string) (*Thresholds, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: no bands", ErrInvalidBands)
	}
	if len(tiers) > 0 {
		if len(bands) != len(tiers) {
			return nil, fmt.Errorf("%w: got %d bands, want %d (%s)",
				ErrInvalidBands, len(bands), len(tiers), strings.Join(tiers, ", "))
		}
		for i, b := range bands {
			if b.Tier != tiers[i] {
				return nil, fmt.Errorf("%w: band %d is %q, want %q", ErrInvalidBands, i+1, b.Tier, tiers[i])
			}
		}
	}
	if bands[0].Lower != 0 {
		return nil, fmt.Errorf("%w: first band %s starts at %d, want 0", ErrInvalidBands, bands[0].Tier, bands[0].Lower)
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].Lower <= bands[i-1].Lower {
			return nil, fmt.Errorf("%w: band %s at %d does not ascend", ErrInvalidBands, bands[i].Tier, bands[i].Lower)
		}
	}
	return &Thresholds{bands: append([]domain.TierBand(nil), bands...)}, nil
}

// MustThresholds is NewThresholds for package-level defaults.
func MustThresholds(bands []domain.TierBand, tiers ...string) *Thresholds {
	t, err := NewThresholds(bands, tiers...)
	if err != nil {
		panic(err)
	}
	return t
}

// Tier returns the tier for score.
func (t *Thresholds) Tier(score int) string {
	tier := t.bands[0].Tier
	for _, band := range t.bands {
		if score >= band.Lower {
			tier = band.Tier
		}
	}
	return tier
}

// Best is the tier for a score of 0.
func (t *Thresholds) Best() string {
	return t.bands[0].Tier
}

// Worst is the open-ended top tier.
func (t *Thresholds) Worst() string {
	return t.bands[len(t.bands)-1].Tier
}

// Bands returns a copy of the configured bands.
func (t *Thresholds) Bands() []domain.TierBand {
	return append([]domain.TierBand(nil), t.bands...)
}
