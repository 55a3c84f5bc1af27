package bootstrap

import (
	"fmt"

	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/chunker"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/embedding/jina"
	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/llm/factory"
	"ai-docqa-be/pkg/normalizer"
	"ai-docqa-be/pkg/rag"
	"ai-docqa-be/pkg/retrieval"
	"ai-docqa-be/pkg/segmenter"
	"ai-docqa-be/pkg/vectorindex"
)

// Pipeline is the document-to-answer chain shared by the REST server and the
// CLI. The vector store is chosen by the caller.
type Pipeline struct {
	Embeddings  embedding.EmbeddingProvider
	Generator   llm.LLMProvider
	Normalizer  *normalizer.Normalizer
	Assembler   *chunker.Assembler
	Index       *vectorindex.Index
	Coordinator *retrieval.Coordinator
	Synthesizer *rag.Synthesizer
}

func NewPipeline(cfg *config.Config, store vectorindex.Store, log logger.ILogger) (*Pipeline, error) {
	embeddings, err := NewEmbeddingProvider(cfg.Ai, cfg.Keys)
	if err != nil {
		return nil, err
	}

	generator, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, llmBaseURL(cfg.Ai), cfg.Keys.HuggingFace)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	assembler, err := chunker.New(chunker.Config{
		MaxChunkSize:        cfg.Rag.MaxChunkSize,
		MinChunkSize:        cfg.Rag.MinChunkSize,
		ChunkOverlap:        cfg.Rag.ChunkOverlap,
		SimilarityThreshold: cfg.Rag.SimilarityThreshold,
	}, segmenter.New(embeddings, cfg.Rag.SimilarityThreshold), chunker.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}

	index := vectorindex.NewIndex(store, embeddings, log)

	return &Pipeline{
		Embeddings: embeddings,
		Generator:  generator,
		Normalizer: normalizer.New(normalizer.WithPageAnnotations(cfg.Rag.AnnotatePages)),
		Assembler:  assembler,
		Index:      index,
		Coordinator: retrieval.NewCoordinator(index,
			retrieval.WithMinRelevance(cfg.Rag.MinRelevance),
			retrieval.WithLogger(log),
		),
		Synthesizer: rag.NewSynthesizer(generator, rag.NewContextBuilder(cfg.Rag.MaxContextChunks, cfg.Rag.MaxContextChars), log),
	}, nil
}

// NewEmbeddingProvider builds the configured provider behind the in-process
// cache. Sentence embeddings repeat across segmentation and querying.
func NewEmbeddingProvider(ai config.AIConfig, keys config.APIKeys) (embedding.EmbeddingProvider, error) {
	var provider embedding.EmbeddingProvider
	switch ai.EmbeddingProvider {
	case "ollama":
		provider = embedding.NewOllamaProvider(ai.OllamaBaseURL, ai.OllamaModel, ai.EmbeddingDimensions)
	case "jina":
		if keys.Jina == "" {
			return nil, fmt.Errorf("jina embedding provider requires JINA_API_KEY")
		}
		provider = jina.NewJinaProvider(keys.Jina, ai.JinaModel, ai.EmbeddingDimensions)
	case "local":
		provider = embedding.NewHashingProvider(ai.EmbeddingDimensions)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ai.EmbeddingProvider)
	}

	if ai.EmbeddingCacheTTL > 0 {
		provider = embedding.NewCachedProvider(provider, ai.EmbeddingCacheTTL)
	}
	return provider, nil
}

func llmBaseURL(ai config.AIConfig) string {
	if ai.LLMBaseURL != "" {
		return ai.LLMBaseURL
	}
	if ai.LLMProvider == "ollama" {
		return ai.OllamaBaseURL
	}
	return ""
}
