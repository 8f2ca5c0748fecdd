package domain

import "errors"

var (
	ErrSourceUnavailable = errors.New("external data source unavailable")
	ErrArtifactRender    = errors.New("summary artifact render failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidRecord     = errors.New("invalid country record")
)
