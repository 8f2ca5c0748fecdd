package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"CountryAtlas/internal/domain"
	"CountryAtlas/internal/ports"
)

// CountryService serves read and admin operations over the store and the cached image.
type CountryService struct {
	repo     ports.CountryRepository
	renderer ports.SummaryRenderer
}

// NewCountryService wires the query side.
func NewCountryService(repo ports.CountryRepository, renderer ports.SummaryRenderer) *CountryService {
	return &CountryService{repo: repo, renderer: renderer}
}

// List returns countries matching filter.
func (s *CountryService) List(ctx context.Context, filter domain.CountryFilter) ([]domain.Country, error) {
	return s.repo.List(ctx, filter)
}

// Get looks a country up by name.
func (s *CountryService) Get(ctx context.Context, name string) (domain.Country, error) {
	return s.repo.Get(ctx, name)
}

// Delete removes a country; refresh never deletes, so this is the only way rows go away.
func (s *CountryService) Delete(ctx context.Context, name string) (int64, error) {
	return s.repo.Delete(ctx, name)
}

// Status reports the row count and the latest refresh time.
func (s *CountryService) Status(ctx context.Context) (domain.StoreStatus, error) {
	return s.repo.Status(ctx)
}

// Ping checks the store connection.
func (s *CountryService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// SummaryImage returns the path of the cached image, or domain.ErrNotFound
// when no refresh has produced one yet.
func (s *CountryService) SummaryImage() (string, error) {
	path := s.renderer.Path()
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("summary image: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("stat summary image: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("summary image: %w", domain.ErrNotFound)
	}
	return path, nil
}
