package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portal-server/internal/messaging"
	"portal-server/internal/models"
	"portal-server/internal/repository"
)

// InventoryService handles DID inventory browsing and ordering. An
// order marks the rows as taken and emits an event for the back-office
// mailer; provisioning on the switch stays a manual back-office step.
type InventoryService struct {
	numbers   repository.NumberRepository
	publisher messaging.EmailEventPublisher
	logger    *zap.Logger
}

// NewInventoryService creates the inventory service.
func NewInventoryService(numbers repository.NumberRepository, publisher messaging.EmailEventPublisher, logger *zap.Logger) *InventoryService {
	return &InventoryService{
		numbers:   numbers,
		publisher: publisher,
		logger:    logger.Named("InventoryService"),
	}
}

// List returns inventory rows matching the filter.
func (s *InventoryService) List(ctx context.Context, filter models.NumberFilter) ([]*models.AvailableNumber, error) {
	return s.numbers.List(ctx, filter)
}

// Order reserves the given numbers for the customer identified by
// orderedBy and publishes the order.placed event. Numbers that are no
// longer available cause the whole order to be rejected, so the
// customer never half-orders a basket.
func (s *InventoryService) Order(ctx context.Context, ids []uuid.UUID, orderedBy string) ([]*models.AvailableNumber, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no numbers provided", models.ErrInvalidInput)
	}

	rows, err := s.numbers.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(ids) {
		return nil, models.ErrNumberNotFound
	}
	for _, n := range rows {
		if n.Status != models.NumberStatusAvailable {
			return nil, fmt.Errorf("%w: %s", models.ErrNumberNotAvailable, n.Numero)
		}
	}

	updated, err := s.numbers.MarkOrdered(ctx, ids)
	if err != nil {
		return nil, err
	}
	if updated != int64(len(ids)) {
		// A concurrent order took some of the rows first.
		return nil, models.ErrNumberNotAvailable
	}

	event := models.EmailEvent{
		Type:      models.EventTypeOrderPlaced,
		OrderedBy: orderedBy,
	}
	for _, n := range rows {
		event.Numbers = append(event.Numbers, models.OrderedNumber{
			ID:     n.ID.String(),
			Numero: n.Numero,
			Prefix: n.Prefix,
			Region: n.Region,
		})
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// The order itself stands; the back office just has to spot it
		// in the portal instead of by mail.
		s.logger.Error("Failed to publish order event", zap.Error(err), zap.String("ordered_by", orderedBy))
	}

	s.logger.Info("Numbers ordered", zap.Int("count", len(rows)), zap.String("ordered_by", orderedBy))
	return rows, nil
}
