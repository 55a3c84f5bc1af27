package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// DocumentRepository keeps documents in process memory. It understands the
// specifications the services use; any other specification is ignored.
// Without an OrderBy, newest documents come first.
type DocumentRepository struct {
	// mu serialises writes so UpdateStatus can check and set in one step.
	mu    sync.Mutex
	cache *cache.Cache
}

func NewDocumentRepository() contract.DocumentRepository {
	return &DocumentRepository{
		cache: cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	if doc.Id == uuid.Nil {
		doc.Id = uuid.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	return r.cache.Add(doc.Id.String(), cloneDocument(doc), cache.NoExpiration)
}

func (r *DocumentRepository) Update(ctx context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	doc.UpdatedAt = &now
	r.cache.Set(doc.Id.String(), cloneDocument(doc), cache.NoExpiration)
	return nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, doc *entity.Document, guard contract.StatusGuard) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.cache.Get(doc.Id.String())
	if !ok {
		return false, nil
	}
	stored := item.(*entity.Document)
	if !hasStatus(stored.Status, guard.From) {
		return false, nil
	}
	if !guard.StaleBefore.IsZero() && !updatedAt(stored).Before(guard.StaleBefore) {
		return false, nil
	}

	now := time.Now()
	next := cloneDocument(stored)
	next.Status = doc.Status
	next.ChunkCount = doc.ChunkCount
	next.ErrorMessage = doc.ErrorMessage
	next.ProcessedAt = doc.ProcessedAt
	next.UpdatedAt = &now
	r.cache.Set(doc.Id.String(), next, cache.NoExpiration)

	doc.UpdatedAt = &now
	return true, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(id.String())
	return nil
}

func (r *DocumentRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	docs := r.find(specs)
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

func (r *DocumentRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	return r.find(specs), nil
}

func (r *DocumentRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.find(specs))), nil
}

func (r *DocumentRepository) find(specs []specification.Specification) []*entity.Document {
	var out []*entity.Document
	for _, item := range r.cache.Items() {
		doc := item.Object.(*entity.Document)
		if matchesDocument(doc, specs) {
			out = append(out, cloneDocument(doc))
		}
	}
	order := specification.OrderBy{Field: "created_at", Desc: true}
	for _, spec := range specs {
		if o, ok := spec.(specification.OrderBy); ok {
			order = o
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if order.Desc {
			return documentLess(out[j], out[i], order.Column())
		}
		return documentLess(out[i], out[j], order.Column())
	})
	for _, spec := range specs {
		if p, ok := spec.(specification.Pagination); ok {
			out = paginate(out, p)
		}
	}
	return out
}

func documentLess(a, b *entity.Document, column string) bool {
	switch column {
	case "filename":
		return a.Filename < b.Filename
	case "status":
		return a.Status < b.Status
	case "chunk_count":
		return a.ChunkCount < b.ChunkCount
	case "file_size":
		return a.FileSize < b.FileSize
	case "updated_at":
		return updatedAt(a).Before(updatedAt(b))
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func updatedAt(doc *entity.Document) time.Time {
	if doc.UpdatedAt != nil {
		return *doc.UpdatedAt
	}
	return doc.CreatedAt
}

func matchesDocument(doc *entity.Document, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if doc.Id != s.ID {
				return false
			}
		case specification.ByIDs:
			found := false
			for _, id := range s.IDs {
				if doc.Id == id {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case specification.UserOwnedBy:
			if doc.UserId != s.UserID {
				return false
			}
		case specification.ByFileType:
			if doc.FileType != s.FileType {
				return false
			}
		case specification.FilenameSearch:
			if !strings.Contains(strings.ToLower(doc.Filename), strings.ToLower(s.Query)) {
				return false
			}
		case specification.ByStatus:
			if !hasStatus(doc.Status, s.Statuses) {
				return false
			}
		}
	}
	return true
}

func hasStatus(status entity.DocumentStatus, in []entity.DocumentStatus) bool {
	for _, s := range in {
		if status == s {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, p specification.Pagination) []T {
	if p.Offset >= len(items) {
		return nil
	}
	items = items[p.Offset:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

func cloneDocument(doc *entity.Document) *entity.Document {
	c := *doc
	return &c
}
