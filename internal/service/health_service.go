package service

import (
	"context"
	"errors"
	"time"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/vectorindex"

	"gorm.io/gorm"
)

// healthCollection is counted to reach the vector store; it never exists.
const healthCollection = "health_check"

const healthTimeout = 3 * time.Second

type IHealthService interface {
	// Check reports each backing store and whether all of them are up.
	Check(ctx context.Context) (*dto.HealthResponse, bool)
}

type healthService struct {
	db     *gorm.DB
	store  vectorindex.Store
	logger logger.ILogger
}

// NewHealthService checks db when it is non-nil; without one the database
// is reported as disabled.
func NewHealthService(db *gorm.DB, store vectorindex.Store, log logger.ILogger) IHealthService {
	return &healthService{db: db, store: store, logger: log}
}

func (s *healthService) Check(ctx context.Context) (*dto.HealthResponse, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	res := &dto.HealthResponse{
		Status: dto.HealthUp,
		Components: map[string]string{
			"database":     dto.HealthDisabled,
			"vector_store": dto.HealthUp,
		},
	}

	if s.db != nil {
		res.Components["database"] = s.componentState("database", s.pingDB(ctx))
	}
	_, err := s.store.Count(ctx, healthCollection)
	if errors.Is(err, vectorindex.ErrCollectionNotFound) {
		err = nil
	}
	res.Components["vector_store"] = s.componentState("vector_store", err)

	healthy := true
	for _, state := range res.Components {
		if state == dto.HealthDown {
			healthy = false
			res.Status = dto.HealthDown
		}
	}
	return res, healthy
}

func (s *healthService) pingDB(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *healthService) componentState(component string, err error) string {
	if err == nil {
		return dto.HealthUp
	}
	s.logger.Warn("Health", "Component unavailable", map[string]interface{}{
		"component": component,
		"error":     err.Error(),
	})
	return dto.HealthDown
}
