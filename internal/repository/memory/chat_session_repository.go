package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ChatSessionRepository keeps sessions alongside ChatMessageRepository and
// expires them on the same schedule. Without an OrderBy, the most recently
// active sessions come first.
type ChatSessionRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewChatSessionRepository() contract.ChatSessionRepository {
	return &ChatSessionRepository{
		cache: cache.New(24*time.Hour, 10*time.Minute),
	}
}

func (r *ChatSessionRepository) Create(ctx context.Context, session *entity.ChatSession) error {
	if session.Id == uuid.Nil {
		session.Id = uuid.New()
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt == nil {
		session.UpdatedAt = &now
	}
	return r.cache.Add(session.Id.String(), cloneSession(session), cache.DefaultExpiration)
}

func (r *ChatSessionRepository) Touch(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.cache.Get(id.String())
	if !ok {
		return nil
	}
	next := cloneSession(item.(*entity.ChatSession))
	now := time.Now()
	next.UpdatedAt = &now
	r.cache.Set(id.String(), next, cache.DefaultExpiration)
	return nil
}

func (r *ChatSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.cache.Delete(id.String())
	return nil
}

func (r *ChatSessionRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	sessions := r.find(specs)
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

func (r *ChatSessionRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	return r.find(specs), nil
}

func (r *ChatSessionRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.find(specs))), nil
}

func (r *ChatSessionRepository) find(specs []specification.Specification) []*entity.ChatSession {
	var out []*entity.ChatSession
	for _, item := range r.cache.Items() {
		session := item.Object.(*entity.ChatSession)
		if matchesSession(session, specs) {
			out = append(out, cloneSession(session))
		}
	}

	order := specification.OrderBy{Field: "updated_at", Desc: true}
	for _, spec := range specs {
		if o, ok := spec.(specification.OrderBy); ok {
			order = o
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if order.Desc {
			a, b = b, a
		}
		if order.Column() == "updated_at" {
			return sessionUpdatedAt(a).Before(sessionUpdatedAt(b))
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	for _, spec := range specs {
		if p, ok := spec.(specification.Pagination); ok {
			out = paginate(out, p)
		}
	}
	return out
}

func matchesSession(session *entity.ChatSession, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if session.Id != s.ID {
				return false
			}
		case specification.UserOwnedBy:
			if session.UserId != s.UserID {
				return false
			}
		}
	}
	return true
}

func sessionUpdatedAt(session *entity.ChatSession) time.Time {
	if session.UpdatedAt != nil {
		return *session.UpdatedAt
	}
	return session.CreatedAt
}

func cloneSession(session *entity.ChatSession) *entity.ChatSession {
	c := *session
	c.DocumentIds = append([]uuid.UUID(nil), session.DocumentIds...)
	return &c
}
