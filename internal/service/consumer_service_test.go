package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngestion struct {
	mu        sync.Mutex
	calls     map[uuid.UUID]int
	failFirst bool
	active    int
	peak      int
	release   chan struct{}
}

func newFakeIngestion() *fakeIngestion {
	return &fakeIngestion{calls: map[uuid.UUID]int{}}
}

func (f *fakeIngestion) Process(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	f.calls[id]++
	first := f.calls[id] == 1
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if f.failFirst && first {
		return errors.New("database unavailable")
	}
	return nil
}

func (f *fakeIngestion) snapshot() (map[uuid.UUID]int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]int, len(f.calls))
	for k, v := range f.calls {
		out[k] = v
	}
	return out, f.peak
}

func publishJob(t *testing.T, pub IPublisherService, job dto.ProcessDocumentMessage) {
	t.Helper()
	payload, err := json.Marshal(job)
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), payload))
}

func TestConsumer_RunsJobsConcurrentlyUpToWorkers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ingestion := newFakeIngestion()
	ingestion.release = make(chan struct{})
	consumer := NewConsumerService(pubSub, "PROCESS_DOCUMENT", ingestion, logger.NewNopLogger(), 2)
	require.NoError(t, consumer.Consume(ctx))

	pub := NewPublisherService("PROCESS_DOCUMENT", pubSub)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		publishJob(t, pub, dto.ProcessDocumentMessage{DocumentId: id})
	}

	assert.Eventually(t, func() bool {
		calls, _ := ingestion.snapshot()
		return len(calls) == 2
	}, time.Second, 10*time.Millisecond)

	close(ingestion.release)

	assert.Eventually(t, func() bool {
		calls, _ := ingestion.snapshot()
		return len(calls) == 3
	}, time.Second, 10*time.Millisecond)

	_, peak := ingestion.snapshot()
	assert.Equal(t, 2, peak)
}

func TestConsumer_DropsMalformedJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ingestion := newFakeIngestion()
	consumer := NewConsumerService(pubSub, "PROCESS_DOCUMENT", ingestion, logger.NewNopLogger(), 1)
	require.NoError(t, consumer.Consume(ctx))

	pub := NewPublisherService("PROCESS_DOCUMENT", pubSub)
	require.NoError(t, pub.Publish(ctx, []byte("not json")))
	require.NoError(t, pub.Publish(ctx, []byte(`{"document_id":"00000000-0000-0000-0000-000000000000"}`)))
	good := uuid.New()
	publishJob(t, pub, dto.ProcessDocumentMessage{DocumentId: good, Reprocess: true})

	assert.Eventually(t, func() bool {
		calls, _ := ingestion.snapshot()
		return calls[good] == 1
	}, time.Second, 10*time.Millisecond)

	calls, _ := ingestion.snapshot()
	assert.Len(t, calls, 1)
}

func TestConsumer_RetriesFailedJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ingestion := newFakeIngestion()
	ingestion.failFirst = true
	consumer := NewConsumerService(pubSub, "PROCESS_DOCUMENT", ingestion, logger.NewNopLogger(), 1)
	require.NoError(t, consumer.Consume(ctx))

	id := uuid.New()
	publishJob(t, NewPublisherService("PROCESS_DOCUMENT", pubSub), dto.ProcessDocumentMessage{DocumentId: id})

	assert.Eventually(t, func() bool {
		calls, _ := ingestion.snapshot()
		return calls[id] == 2
	}, 5*time.Second, 20*time.Millisecond)
}
