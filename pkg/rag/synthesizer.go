package rag

import (
	"context"
	"strings"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/vectorindex"
)

const replyTokens = 1024

type Answer struct {
	Text           string
	Sources        []string
	RelevanceScore float64
	UsedFallback   bool
}

// Synthesizer answers a question from ranked search results. A nil generator
// always uses the extractive answer.
type Synthesizer struct {
	generator llm.LLMProvider
	builder   ContextBuilder
	logger    logger.ILogger
}

func NewSynthesizer(generator llm.LLMProvider, builder ContextBuilder, log logger.ILogger) *Synthesizer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Synthesizer{generator: generator, builder: builder, logger: log}
}

func (s *Synthesizer) Answer(ctx context.Context, question string, results []vectorindex.SearchResult, history []llm.Message) Answer {
	if len(results) == 0 {
		return Answer{Text: NoResultsMessage, Sources: []string{}}
	}

	contextText, used := s.builder.Build(results)
	answer := Answer{
		Sources:        Sources(used),
		RelevanceScore: BestRelevance(used),
	}

	if s.generator != nil {
		messages := BuildMessages(contextText, question, history)
		text, err := s.generator.Chat(ctx, messages, llm.WithContextWindow(contextWindow(messages)))
		if err == nil && strings.TrimSpace(text) != "" {
			answer.Text = strings.TrimSpace(text)
			return answer
		}
		details := map[string]interface{}{"sources": answer.Sources}
		if err != nil {
			details["error"] = err.Error()
		}
		s.logger.Warn("RAG", "Generation unavailable, using extractive answer", details)
	}

	answer.Text = Extract(question, used)
	answer.UsedFallback = true
	return answer
}

// contextWindow sizes the model context for messages at roughly four
// characters per token plus room for the reply, rounded up to 1024.
func contextWindow(messages []llm.Message) int {
	chars := 0
	for _, m := range messages {
		chars += len(m.Content)
	}
	tokens := chars/4 + replyTokens
	return (tokens + 1023) / 1024 * 1024
}
