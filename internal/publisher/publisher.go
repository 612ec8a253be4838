package publisher

import (
	"context"

	"github.com/samcutley/intelwatch/internal/domain"
)

// Publisher pushes newly discovered articles to downstream consumers.
type Publisher interface {
	// NotifyNew publishes one newly created article.
	NotifyNew(ctx context.Context, article *domain.Article) error

	// Trim caps the backing stream at the configured maximum length.
	Trim(ctx context.Context) error

	// Close closes the publisher connection.
	Close() error
}
