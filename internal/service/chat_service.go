package service

import (
	"context"
	"strings"
	"time"

	"ai-docqa-be/internal/constant"
	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/specification"
	"ai-docqa-be/internal/repository/unitofwork"
	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/rag"
	"ai-docqa-be/pkg/retrieval"
	"ai-docqa-be/pkg/vectorindex"

	"github.com/google/uuid"
)

type ChatConfig struct {
	TopK         int
	HistoryTurns int
}

// Titles of sessions opened by a question are cut to this many runes.
const sessionTitleRunes = 50

type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateChatSessionRequest) (*dto.ChatSessionResponse, error)
	ListSessions(ctx context.Context, userId uuid.UUID) (*dto.ListChatSessionsResponse, error)
	ShowSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.ChatSessionResponse, error)
	Ask(ctx context.Context, userId uuid.UUID, req *dto.AskRequest) (*dto.AskResponse, error)
	History(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.ChatHistoryResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
}

type chatService struct {
	uowFactory  unitofwork.RepositoryFactory
	coordinator *retrieval.Coordinator
	synthesizer *rag.Synthesizer
	logger      logger.ILogger
	cfg         ChatConfig
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	coordinator *retrieval.Coordinator,
	synthesizer *rag.Synthesizer,
	log logger.ILogger,
	cfg ChatConfig,
) IChatService {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.HistoryTurns < 0 {
		cfg.HistoryTurns = 0
	}
	return &chatService{
		uowFactory:  uowFactory,
		coordinator: coordinator,
		synthesizer: synthesizer,
		logger:      log,
		cfg:         cfg,
	}
}

func (s *chatService) CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateChatSessionRequest) (*dto.ChatSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	scope := uniqueIds(req.DocumentIds)
	if len(scope) > 0 {
		n, err := uow.DocumentRepository().Count(ctx,
			specification.ByIDs{IDs: scope},
			specification.UserOwnedBy{UserID: userId},
		)
		if err != nil {
			return nil, err
		}
		if n != int64(len(scope)) {
			return nil, constant.ErrDocumentNotFound
		}
	}

	session := &entity.ChatSession{
		Id:          uuid.New(),
		UserId:      userId,
		Title:       strings.TrimSpace(req.Title),
		DocumentIds: scope,
	}
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("ChatService", "Chat session created", map[string]interface{}{
		"chat_session_id": session.Id.String(),
		"documents":       len(scope),
	})
	return toChatSessionResponse(session, 0), nil
}

// ListSessions returns the user's sessions, most recently active first.
func (s *chatService) ListSessions(ctx context.Context, userId uuid.UUID) (*dto.ListChatSessionsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(sessions))
	for i, session := range sessions {
		ids[i] = session.Id
	}
	counts, err := uow.ChatMessageRepository().CountBySession(ctx, ids)
	if err != nil {
		return nil, err
	}

	res := &dto.ListChatSessionsResponse{Sessions: make([]*dto.ChatSessionResponse, 0, len(sessions))}
	for _, session := range sessions {
		res.Sessions = append(res.Sessions, toChatSessionResponse(session, counts[session.Id]))
	}
	return res, nil
}

func (s *chatService) ShowSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.ChatSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.ownedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}
	counts, err := uow.ChatMessageRepository().CountBySession(ctx, []uuid.UUID{session.Id})
	if err != nil {
		return nil, err
	}
	return toChatSessionResponse(session, counts[session.Id]), nil
}

// Ask answers within a session. Without a session id a new session is opened
// and titled after the question. The question is searched against the
// requested documents, else the session's documents, else every searchable
// document the user owns. Both turns are stored and the session is touched
// in one transaction.
func (s *chatService) Ask(ctx context.Context, userId uuid.UUID, req *dto.AskRequest) (*dto.AskResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	var (
		session *entity.ChatSession
		opened  bool
		err     error
	)
	if req.ChatSessionId == uuid.Nil {
		opened = true
		session = &entity.ChatSession{
			Id:          uuid.New(),
			UserId:      userId,
			Title:       sessionTitle(req.Question),
			DocumentIds: uniqueIds(req.DocumentIds),
		}
	} else if session, err = s.ownedSession(ctx, uow, userId, req.ChatSessionId); err != nil {
		return nil, err
	}
	sessionId := session.Id

	var history []llm.Message
	if !opened {
		if history, err = s.recentHistory(ctx, uow, userId, sessionId); err != nil {
			return nil, err
		}
	}

	scope := req.DocumentIds
	if len(scope) == 0 {
		scope = session.DocumentIds
	}
	collections, err := s.searchableCollections(ctx, uow, userId, scope)
	if err != nil {
		return nil, err
	}

	k := req.TopK
	if k <= 0 {
		k = s.cfg.TopK
	}

	var results []vectorindex.SearchResult
	if len(collections) > 0 {
		filter := vectorindex.Filter{MetaUserID: userId.String()}
		results = s.coordinator.SearchMany(ctx, collections, req.Question, k, filter)
	}
	answer := s.synthesizer.Answer(ctx, req.Question, results, history)

	now := time.Now()
	sent := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		UserId:        userId,
		Role:          entity.ChatRoleUser,
		Chat:          req.Question,
		CreatedAt:     now,
	}
	reply := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		UserId:        userId,
		Role:          entity.ChatRoleAssistant,
		Chat:          answer.Text,
		Sources:       answer.Sources,
		CreatedAt:     now.Add(time.Millisecond),
	}
	if len(results) > 0 {
		score := answer.RelevanceScore
		reply.RelevanceScore = &score
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if opened {
		err = uow.ChatSessionRepository().Create(ctx, session)
	} else {
		err = uow.ChatSessionRepository().Touch(ctx, sessionId)
	}
	if err != nil {
		return nil, err
	}
	if err := uow.ChatMessageRepository().Create(ctx, sent); err != nil {
		return nil, err
	}
	if err := uow.ChatMessageRepository().Create(ctx, reply); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("ChatService", "Question answered", map[string]interface{}{
		"chat_session_id": sessionId.String(),
		"collections":     len(collections),
		"results":         len(results),
		"used_fallback":   answer.UsedFallback,
	})

	return &dto.AskResponse{
		ChatSessionId: sessionId,
		Sent:          toChatMessageResponse(sent),
		Reply:         toChatMessageResponse(reply),
		UsedFallback:  answer.UsedFallback,
	}, nil
}

func (s *chatService) History(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.ChatHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.ownedSession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	msgs, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	res := &dto.ChatHistoryResponse{
		ChatSessionId: sessionId,
		Messages:      make([]*dto.ChatMessageResponse, 0, len(msgs)),
	}
	for _, m := range msgs {
		res.Messages = append(res.Messages, toChatMessageResponse(m))
	}
	return res, nil
}

// DeleteSession removes the session together with its messages.
func (s *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.ownedSession(ctx, uow, userId, sessionId); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, sessionId); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return err
	}
	return uow.Commit()
}

func (s *chatService) ownedSession(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, constant.ErrChatSessionNotFound
	}
	return session, nil
}

// recentHistory returns the last HistoryTurns messages of the session, oldest
// first.
func (s *chatService) recentHistory(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, sessionId uuid.UUID) ([]llm.Message, error) {
	if s.cfg.HistoryTurns == 0 {
		return nil, nil
	}
	msgs, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: s.cfg.HistoryTurns},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		role := llm.RoleUser
		if msgs[i].Role == entity.ChatRoleAssistant {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: msgs[i].Chat})
	}
	return history, nil
}

func (s *chatService) searchableCollections(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, ids []uuid.UUID) ([]string, error) {
	specs := []specification.Specification{
		specification.UserOwnedBy{UserID: userId},
		specification.NotDeleted{},
		specification.ByStatus{Statuses: []entity.DocumentStatus{
			entity.DocumentStatusProcessed,
			entity.DocumentStatusPartiallyProcessed,
		}},
	}
	if len(ids) > 0 {
		specs = append(specs, specification.ByIDs{IDs: ids})
	}

	docs, err := uow.DocumentRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	collections := make([]string, 0, len(docs))
	for _, d := range docs {
		collections = append(collections, vectorindex.CollectionName(d.Id.String()))
	}
	return collections, nil
}

func sessionTitle(question string) string {
	title := []rune(strings.TrimSpace(question))
	if len(title) > sessionTitleRunes {
		return string(title[:sessionTitleRunes]) + "..."
	}
	return string(title)
}

func uniqueIds(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func toChatSessionResponse(session *entity.ChatSession, messageCount int64) *dto.ChatSessionResponse {
	updatedAt := session.CreatedAt
	if session.UpdatedAt != nil {
		updatedAt = *session.UpdatedAt
	}
	return &dto.ChatSessionResponse{
		Id:           session.Id,
		Title:        session.Title,
		DocumentIds:  session.DocumentIds,
		MessageCount: messageCount,
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func toChatMessageResponse(m *entity.ChatMessage) *dto.ChatMessageResponse {
	return &dto.ChatMessageResponse{
		Id:             m.Id,
		Role:           m.Role,
		Chat:           m.Chat,
		RelevanceScore: m.RelevanceScore,
		Sources:        m.Sources,
		CreatedAt:      m.CreatedAt,
	}
}
