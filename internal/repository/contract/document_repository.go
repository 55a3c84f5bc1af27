package contract

import (
	"context"
	"time"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/specification"

	"github.com/google/uuid"
)

// StatusGuard is the precondition of a conditional status change: the stored
// document must be in one of From and, when StaleBefore is set, must not have
// been touched since then.
type StatusGuard struct {
	From        []entity.DocumentStatus
	StaleBefore time.Time
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	Update(ctx context.Context, doc *entity.Document) error
	// UpdateStatus writes the processing fields of doc (status, chunk count,
	// error message, processed_at) only if the stored row satisfies guard,
	// and reports whether it did.
	UpdateStatus(ctx context.Context, doc *entity.Document, guard StatusGuard) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
