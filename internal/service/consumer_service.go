package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const (
	jobAttempts     = 3
	jobRetryBackoff = 2 * time.Second
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	ingestion  IIngestionService
	logger     logger.ILogger
	workers    int
	wg         sync.WaitGroup
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	ingestion IIngestionService,
	log logger.ILogger,
	workers int,
) IConsumerService {
	if workers <= 0 {
		workers = 1
	}
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		ingestion:  ingestion,
		logger:     log,
		workers:    workers,
	}
}

// Consume starts the job loop. At most workers documents ingest at once.
// The channel delivers the next job only after the previous one is acked, so
// a job is acked as soon as a worker slot claims it and retried in place.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		sem := make(chan struct{}, cs.workers)
		for msg := range messages {
			payload, ok := cs.decode(msg)
			if !ok {
				continue
			}

			sem <- struct{}{}
			msg.Ack()
			cs.wg.Add(1)
			go func(job dto.ProcessDocumentMessage) {
				defer func() {
					<-sem
					cs.wg.Done()
				}()
				cs.process(ctx, job)
			}(payload)
		}
		cs.wg.Wait()
	}()

	return nil
}

func (cs *consumerService) decode(msg *message.Message) (dto.ProcessDocumentMessage, bool) {
	var payload dto.ProcessDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.DocumentId == uuid.Nil {
		details := map[string]interface{}{"message_id": msg.UUID}
		if err != nil {
			details["error"] = err.Error()
		}
		cs.logger.Error("Consumer", "Dropping malformed ingestion job", details)
		msg.Ack()
		return payload, false
	}
	return payload, true
}

func (cs *consumerService) process(ctx context.Context, job dto.ProcessDocumentMessage) {
	details := map[string]interface{}{
		"document_id": job.DocumentId.String(),
		"reprocess":   job.Reprocess,
	}
	cs.logger.Info("Consumer", "Processing document", details)

	for attempt := 1; attempt <= jobAttempts; attempt++ {
		err := cs.ingestion.Process(ctx, job.DocumentId)
		if err == nil {
			return
		}
		details["attempt"] = attempt
		details["error"] = err.Error()
		if attempt == jobAttempts {
			cs.logger.Error("Consumer", "Ingestion job gave up", details)
			return
		}
		cs.logger.Warn("Consumer", "Ingestion job failed, retrying", details)
		if sleep(ctx, jobRetryBackoff*time.Duration(attempt)) != nil {
			return
		}
	}
}
