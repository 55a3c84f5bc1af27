// Package embeddingtest provides a scriptable EmbeddingProvider for tests.
package embeddingtest

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrScripted = errors.New("embeddingtest: scripted failure")

// TopicProvider returns a one-hot vector on the axis of the first topic
// keyword found in the text (case-insensitive). Text matching no topic maps to
// the last axis. FailWhen, if set, is consulted before embedding.
type TopicProvider struct {
	Topics   []string
	FailWhen func(call int, text string) bool

	mu    sync.Mutex
	calls int
}

func NewTopicProvider(topics ...string) *TopicProvider {
	return &TopicProvider{Topics: topics}
}

func (p *TopicProvider) Dimensions() int {
	return len(p.Topics) + 1
}

func (p *TopicProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *TopicProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()

	if p.FailWhen != nil && p.FailWhen(call, text) {
		return nil, ErrScripted
	}

	vec := make([]float32, p.Dimensions())
	lower := strings.ToLower(text)
	for i, topic := range p.Topics {
		if strings.Contains(lower, strings.ToLower(topic)) {
			vec[i] = 1
			return vec, nil
		}
	}
	vec[len(vec)-1] = 1
	return vec, nil
}
