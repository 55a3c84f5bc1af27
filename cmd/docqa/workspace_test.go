package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/rag"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineConfig() *config.Config {
	cfg := config.Load()
	cfg.Ai.EmbeddingProvider = "local"
	cfg.Ai.EmbeddingCacheTTL = 0
	cfg.Ai.LLMProvider = "none"
	cfg.Rag.AddPause = 0
	cfg.Rag.BatchPause = 0
	return cfg
}

func TestWorkspace_IngestAskForget(t *testing.T) {
	dir := t.TempDir()
	report := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(report, []byte("Quarterly revenue grew by ten percent."), 0o644))

	ws, err := newWorkspace(offlineConfig(), dir, logger.NewNopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	doc, err := ws.ingest(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusProcessed, doc.Status)
	assert.Equal(t, 1, doc.ChunkCount)

	res, err := ws.ask(ctx, "How much did quarterly revenue grow?", 0)
	require.NoError(t, err)
	assert.True(t, res.UsedFallback)
	assert.Contains(t, res.Reply.Chat, "Quarterly revenue grew by ten percent.")
	assert.Equal(t, []string{"report.txt"}, res.Reply.Sources)

	// Re-ingesting a changed file replaces its chunks.
	require.NoError(t, os.WriteFile(report, []byte("Quarterly revenue fell sharply."), 0o644))
	doc, err = ws.ingest(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusProcessed, doc.Status)
	assert.Equal(t, 1, doc.ChunkCount)

	require.NoError(t, ws.forget(ctx, report))
	res, err = ws.ask(ctx, "How much did quarterly revenue grow?", 0)
	require.NoError(t, err)
	assert.Equal(t, rag.NoResultsMessage, res.Reply.Chat)
	assert.Equal(t, res.ChatSessionId, ws.session)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  changeKind
	}{
		{"create", fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Create}, changeUpdated},
		{"write", fsnotify.Event{Name: "/d/a.csv", Op: fsnotify.Write}, changeUpdated},
		{"remove", fsnotify.Event{Name: "/d/a.pdf", Op: fsnotify.Remove}, changeDeleted},
		{"rename", fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Rename}, changeDeleted},
		{"chmod", fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Chmod}, changeNone},
		{"hidden", fsnotify.Event{Name: "/d/.a.txt", Op: fsnotify.Create}, changeNone},
		{"unsupported", fsnotify.Event{Name: "/d/a.docx", Op: fsnotify.Write}, changeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.event))
		})
	}
}
