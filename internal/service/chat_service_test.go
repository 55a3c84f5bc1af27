package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"ai-docqa-be/internal/constant"
	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/memory"
	"ai-docqa-be/internal/repository/unitofwork"
	"ai-docqa-be/pkg/embedding/embeddingtest"
	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/rag"
	"ai-docqa-be/pkg/retrieval"
	"ai-docqa-be/pkg/vectorindex"
	vmemory "ai-docqa-be/pkg/vectorindex/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLLM struct {
	reply   string
	prompts [][]llm.Message
}

func (r *recordingLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	r.prompts = append(r.prompts, history)
	return r.reply, nil
}

func (r *recordingLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return r.reply, nil
}

type chatFixture struct {
	svc   IChatService
	docs  contract.DocumentRepository
	index *vectorindex.Index
	user  uuid.UUID
}

func newChatFixture(t *testing.T, generator llm.LLMProvider) *chatFixture {
	t.Helper()
	f := &chatFixture{
		docs:  memory.NewDocumentRepository(),
		index: vectorindex.NewIndex(vmemory.NewStore(), embeddingtest.NewTopicProvider("revenue", "weather"), nil),
		user:  uuid.New(),
	}
	coordinator := retrieval.NewCoordinator(f.index)
	synthesizer := rag.NewSynthesizer(generator, rag.NewContextBuilder(0, 0), logger.NewNopLogger())
	uowFactory := unitofwork.NewMemoryRepositoryFactory(f.docs, memory.NewChatSessionRepository(), memory.NewChatMessageRepository())
	f.svc = NewChatService(uowFactory, coordinator, synthesizer, logger.NewNopLogger(), ChatConfig{TopK: 5, HistoryTurns: 4})
	return f
}

// addDocument stores a document in the given status and indexes each text as
// one chunk of it.
func (f *chatFixture) addDocument(t *testing.T, owner uuid.UUID, filename string, status entity.DocumentStatus, texts ...string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	doc := &entity.Document{
		Id:         uuid.New(),
		UserId:     owner,
		Filename:   filename,
		FileType:   "txt",
		Status:     status,
		ChunkCount: len(texts),
		CreatedAt:  time.Now(),
	}
	require.NoError(t, f.docs.Create(ctx, doc))
	for i, text := range texts {
		_, err := f.index.Add(ctx, vectorindex.CollectionName(doc.Id.String()), text, map[string]interface{}{
			MetaDocumentID: doc.Id.String(),
			MetaUserID:     owner.String(),
			MetaFilename:   filename,
			MetaChunkIndex: i,
		})
		require.NoError(t, err)
	}
	return doc.Id
}

func TestChatService_AskAnswersFromProcessedDocuments(t *testing.T) {
	f := newChatFixture(t, nil)
	f.addDocument(t, f.user, "report.txt", entity.DocumentStatusProcessed, "Revenue grew by ten percent in March.")
	f.addDocument(t, f.user, "notes.txt", entity.DocumentStatusPartiallyProcessed, "The weather was mild.")

	res, err := f.svc.Ask(context.Background(), f.user, &dto.AskRequest{Question: "How did revenue change?"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, res.ChatSessionId)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, "user", res.Sent.Role)
	assert.Equal(t, "assistant", res.Reply.Role)
	assert.Contains(t, res.Reply.Chat, "Revenue grew by ten percent in March.")
	assert.Equal(t, "report.txt", res.Reply.Sources[0])
	require.NotNil(t, res.Reply.RelevanceScore)
	assert.InDelta(t, 1.0, *res.Reply.RelevanceScore, 1e-9)
}

func TestChatService_AskWithoutSearchableDocuments(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *chatFixture)
	}{
		{"no documents", func(f *chatFixture) {}},
		{"only unfinished documents", func(f *chatFixture) {
			f.addDocument(t, f.user, "queued.txt", entity.DocumentStatusUploaded, "Revenue grew.")
			f.addDocument(t, f.user, "broken.txt", entity.DocumentStatusFailed, "Revenue grew.")
		}},
		{"documents of another user", func(f *chatFixture) {
			f.addDocument(t, uuid.New(), "theirs.txt", entity.DocumentStatusProcessed, "Revenue grew.")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(t, nil)
			tt.setup(f)

			res, err := f.svc.Ask(context.Background(), f.user, &dto.AskRequest{Question: "What about revenue?"})
			require.NoError(t, err)
			assert.Equal(t, rag.NoResultsMessage, res.Reply.Chat)
			assert.Nil(t, res.Reply.RelevanceScore)
			assert.Empty(t, res.Reply.Sources)
		})
	}
}

func TestChatService_AskRestrictedToDocumentIds(t *testing.T) {
	f := newChatFixture(t, nil)
	f.addDocument(t, f.user, "report.txt", entity.DocumentStatusProcessed, "Revenue grew in March.")
	weather := f.addDocument(t, f.user, "weather.txt", entity.DocumentStatusProcessed, "Revenue of the weather station fell.")

	res, err := f.svc.Ask(context.Background(), f.user, &dto.AskRequest{
		Question:    "revenue",
		DocumentIds: []uuid.UUID{weather},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"weather.txt"}, res.Reply.Sources)
}

func TestChatService_HistoryFeedsGeneration(t *testing.T) {
	generator := &recordingLLM{reply: "Revenue grew ten percent."}
	f := newChatFixture(t, generator)
	f.addDocument(t, f.user, "report.txt", entity.DocumentStatusProcessed, "Revenue grew by ten percent.")
	ctx := context.Background()

	first, err := f.svc.Ask(ctx, f.user, &dto.AskRequest{Question: "How much did revenue grow?"})
	require.NoError(t, err)
	assert.False(t, first.UsedFallback)
	assert.Equal(t, "Revenue grew ten percent.", first.Reply.Chat)

	_, err = f.svc.Ask(ctx, f.user, &dto.AskRequest{ChatSessionId: first.ChatSessionId, Question: "And revenue in April?"})
	require.NoError(t, err)

	require.Len(t, generator.prompts, 2)
	second := generator.prompts[1]
	require.Len(t, second, 4)
	assert.Equal(t, llm.RoleSystem, second[0].Role)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "How much did revenue grow?"}, second[1])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "Revenue grew ten percent."}, second[2])
	assert.True(t, strings.Contains(second[3].Content, "And revenue in April?"))
}

func TestChatService_HistoryAndDeleteSession(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.History(ctx, f.user, uuid.New())
	assert.ErrorIs(t, err, constant.ErrChatSessionNotFound)

	res, err := f.svc.Ask(ctx, f.user, &dto.AskRequest{Question: "Anything?"})
	require.NoError(t, err)

	history, err := f.svc.History(ctx, f.user, res.ChatSessionId)
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "Anything?", history.Messages[0].Chat)
	assert.Equal(t, rag.NoResultsMessage, history.Messages[1].Chat)

	_, err = f.svc.History(ctx, uuid.New(), res.ChatSessionId)
	assert.ErrorIs(t, err, constant.ErrChatSessionNotFound)
	assert.ErrorIs(t, f.svc.DeleteSession(ctx, uuid.New(), res.ChatSessionId), constant.ErrChatSessionNotFound)

	require.NoError(t, f.svc.DeleteSession(ctx, f.user, res.ChatSessionId))
	_, err = f.svc.History(ctx, f.user, res.ChatSessionId)
	assert.ErrorIs(t, err, constant.ErrChatSessionNotFound)
}

func TestChatService_Sessions(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()
	report := f.addDocument(t, f.user, "report.txt", entity.DocumentStatusProcessed, "Revenue grew in March.")
	theirs := f.addDocument(t, uuid.New(), "theirs.txt", entity.DocumentStatusProcessed, "Revenue fell.")

	_, err := f.svc.CreateSession(ctx, f.user, &dto.CreateChatSessionRequest{Title: "Theirs", DocumentIds: []uuid.UUID{theirs}})
	assert.ErrorIs(t, err, constant.ErrDocumentNotFound)

	scoped, err := f.svc.CreateSession(ctx, f.user, &dto.CreateChatSessionRequest{
		Title:       "  Q1 report ",
		DocumentIds: []uuid.UUID{report, report},
	})
	require.NoError(t, err)
	assert.Equal(t, "Q1 report", scoped.Title)
	assert.Equal(t, []uuid.UUID{report}, scoped.DocumentIds)
	assert.Zero(t, scoped.MessageCount)

	time.Sleep(2 * time.Millisecond)
	open, err := f.svc.CreateSession(ctx, f.user, &dto.CreateChatSessionRequest{Title: "Open"})
	require.NoError(t, err)

	list, err := f.svc.ListSessions(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, list.Sessions, 2)
	assert.Equal(t, open.Id, list.Sessions[0].Id)

	// Asking in the older session moves it to the top.
	time.Sleep(2 * time.Millisecond)
	_, err = f.svc.Ask(ctx, f.user, &dto.AskRequest{ChatSessionId: scoped.Id, Question: "revenue"})
	require.NoError(t, err)

	list, err = f.svc.ListSessions(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, list.Sessions, 2)
	assert.Equal(t, scoped.Id, list.Sessions[0].Id)
	assert.Equal(t, int64(2), list.Sessions[0].MessageCount)
	assert.Zero(t, list.Sessions[1].MessageCount)
	assert.True(t, list.Sessions[0].UpdatedAt.After(scoped.UpdatedAt))

	show, err := f.svc.ShowSession(ctx, f.user, scoped.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), show.MessageCount)

	_, err = f.svc.ShowSession(ctx, uuid.New(), scoped.Id)
	assert.ErrorIs(t, err, constant.ErrChatSessionNotFound)
	others, err := f.svc.ListSessions(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, others.Sessions)

	history, err := f.svc.History(ctx, f.user, open.Id)
	require.NoError(t, err)
	assert.Empty(t, history.Messages)
}

func TestChatService_AskUsesSessionScope(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()
	f.addDocument(t, f.user, "report.txt", entity.DocumentStatusProcessed, "Revenue grew in March.")
	weather := f.addDocument(t, f.user, "weather.txt", entity.DocumentStatusProcessed, "Revenue of the weather station fell.")

	session, err := f.svc.CreateSession(ctx, f.user, &dto.CreateChatSessionRequest{Title: "Weather", DocumentIds: []uuid.UUID{weather}})
	require.NoError(t, err)

	res, err := f.svc.Ask(ctx, f.user, &dto.AskRequest{ChatSessionId: session.Id, Question: "revenue"})
	require.NoError(t, err)
	assert.Equal(t, []string{"weather.txt"}, res.Reply.Sources)
}

func TestChatService_AskOpensSession(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Ask(ctx, f.user, &dto.AskRequest{ChatSessionId: uuid.New(), Question: "Anything?"})
	assert.ErrorIs(t, err, constant.ErrChatSessionNotFound)

	question := strings.Repeat("revenue ", 10)
	res, err := f.svc.Ask(ctx, f.user, &dto.AskRequest{Question: question})
	require.NoError(t, err)

	show, err := f.svc.ShowSession(ctx, f.user, res.ChatSessionId)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(question)[:50]+"...", show.Title)
	assert.Equal(t, int64(2), show.MessageCount)
}

func TestSessionTitle(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"  How did revenue change?  ", "How did revenue change?"},
		{strings.Repeat("é", 50), strings.Repeat("é", 50)},
		{strings.Repeat("é", 51), strings.Repeat("é", 50) + "..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sessionTitle(tt.question))
	}
}
