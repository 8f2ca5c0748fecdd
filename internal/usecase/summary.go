package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"CountryAtlas/internal/domain"
	"CountryAtlas/internal/ports"
)

// DefaultTopN is the size of the GDP ranking in the summary image.
const DefaultTopN = 5

// SummaryReporter ranks the store by estimated GDP and renders the cached image.
type SummaryReporter struct {
	repo     ports.CountryRepository
	renderer ports.SummaryRenderer
	topN     int
	logger   *slog.Logger
	now      func() time.Time
}

// NewSummaryReporter wires the store and renderer.
func NewSummaryReporter(repo ports.CountryRepository, renderer ports.SummaryRenderer, topN int, logger *slog.Logger, now func() time.Time) *SummaryReporter {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SummaryReporter{repo: repo, renderer: renderer, topN: topN, logger: logger, now: now}
}

// Build renders the summary for a run that processed total countries.
// Every failure is reported as domain.ErrArtifactRender.
func (s *SummaryReporter) Build(ctx context.Context, total int) (string, error) {
	top, err := s.repo.TopByGDP(ctx, s.topN)
	if err != nil {
		return "", fmt.Errorf("%w: load ranking: %w", domain.ErrArtifactRender, err)
	}

	path, err := s.renderer.Render(ctx, domain.Summary{
		TotalCountries: total,
		GeneratedAt:    s.now().UTC(),
		Limit:          s.topN,
		Top:            top,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrArtifactRender, err)
	}

	s.logger.Debug("summary built", "path", path, "ranked", len(top))
	return path, nil
}
