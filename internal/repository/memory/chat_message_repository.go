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

// ChatMessageRepository stores chat turns per session. Sessions expire after
// a day without new messages.
type ChatMessageRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewChatMessageRepository() contract.ChatMessageRepository {
	return &ChatMessageRepository{
		cache: cache.New(24*time.Hour, 10*time.Minute),
	}
}

func (r *ChatMessageRepository) Create(ctx context.Context, message *entity.ChatMessage) error {
	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := message.ChatSessionId.String()
	var history []*entity.ChatMessage
	if x, found := r.cache.Get(key); found {
		history = x.([]*entity.ChatMessage)
	}
	c := *message
	r.cache.Set(key, append(history, &c), cache.DefaultExpiration)
	return nil
}

func (r *ChatMessageRepository) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	r.cache.Delete(sessionId.String())
	return nil
}

// FindAll requires a ByChatSessionID specification; UserOwnedBy and
// Pagination are honoured as well.
func (r *ChatMessageRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var (
		session  *specification.ByChatSessionID
		owner    *specification.UserOwnedBy
		page     *specification.Pagination
		newFirst bool
	)
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByChatSessionID:
			session = &s
		case specification.UserOwnedBy:
			owner = &s
		case specification.Pagination:
			page = &s
		case specification.OrderBy:
			newFirst = s.Field == "created_at" && s.Desc
		}
	}
	if session == nil {
		return nil, nil
	}

	r.mu.Lock()
	x, found := r.cache.Get(session.ChatSessionID.String())
	r.mu.Unlock()
	if !found {
		return nil, nil
	}

	var out []*entity.ChatMessage
	for _, msg := range x.([]*entity.ChatMessage) {
		if owner != nil && msg.UserId != owner.UserID {
			continue
		}
		c := *msg
		out = append(out, &c)
	}
	if newFirst {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	if page != nil {
		out = paginate(out, *page)
	}
	return out, nil
}

func (r *ChatMessageRepository) CountBySession(ctx context.Context, sessionIds []uuid.UUID) (map[uuid.UUID]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[uuid.UUID]int64, len(sessionIds))
	for _, id := range sessionIds {
		if x, found := r.cache.Get(id.String()); found {
			counts[id] = int64(len(x.([]*entity.ChatMessage)))
		}
	}
	return counts, nil
}
