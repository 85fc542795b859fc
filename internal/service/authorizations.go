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

// AuthorizationService manages caller-id authorization requests.
type AuthorizationService struct {
	requests  repository.AuthorizationRepository
	publisher messaging.EmailEventPublisher
	logger    *zap.Logger
}

// NewAuthorizationService creates the authorization request service.
func NewAuthorizationService(requests repository.AuthorizationRepository, publisher messaging.EmailEventPublisher, logger *zap.Logger) *AuthorizationService {
	return &AuthorizationService{
		requests:  requests,
		publisher: publisher,
		logger:    logger.Named("AuthorizationService"),
	}
}

// Create files a new pending request and notifies the back office.
func (s *AuthorizationService) Create(ctx context.Context, numero, requester string, documentRefs []string) (*models.AuthorizationRequest, error) {
	if numero == "" {
		return nil, fmt.Errorf("%w: numero is required", models.ErrInvalidInput)
	}
	if requester == "" {
		return nil, fmt.Errorf("%w: requester is required", models.ErrInvalidInput)
	}

	created, err := s.requests.Create(ctx, &models.AuthorizationRequest{
		Numero:       numero,
		Requester:    requester,
		DocumentRefs: documentRefs,
		Status:       models.AuthorizationStatusPending,
	})
	if err != nil {
		return nil, err
	}

	event := models.EmailEvent{
		Type:    models.EventTypeAuthorizationRequested,
		Request: created,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish authorization event", zap.Error(err), zap.String("numero", numero))
	}

	s.logger.Info("Authorization request created",
		zap.String("id", created.ID.String()),
		zap.String("numero", numero),
		zap.String("requester", requester),
	)
	return created, nil
}

// ListByRequester returns the requester's requests, newest first.
func (s *AuthorizationService) ListByRequester(ctx context.Context, requester string) ([]*models.AuthorizationRequest, error) {
	return s.requests.ListByRequester(ctx, requester)
}

// UpdateStatus transitions a request to the given status.
func (s *AuthorizationService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.AuthorizationRequest, error) {
	if err := s.requests.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.requests.GetByID(ctx, id)
}
