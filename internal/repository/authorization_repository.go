package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"portal-server/internal/models"
)

const (
	createAuthorizationQuery = `
        INSERT INTO authorization_requests (id, numero, requester, document_refs, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, numero, requester, document_refs, status, created_at, updated_at`

	getAuthorizationQuery = `
        SELECT id, numero, requester, document_refs, status, created_at, updated_at
        FROM authorization_requests WHERE id = $1`

	listAuthorizationsByRequesterQuery = `
        SELECT id, numero, requester, document_refs, status, created_at, updated_at
        FROM authorization_requests WHERE requester = $1 ORDER BY created_at DESC`

	updateAuthorizationStatusQuery = `
        UPDATE authorization_requests
        SET status = $1, updated_at = NOW()
        WHERE id = $2`
)

// AuthorizationRepository is the persistence port for caller-id
// authorization requests.
type AuthorizationRepository interface {
	Create(ctx context.Context, req *models.AuthorizationRequest) (*models.AuthorizationRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuthorizationRequest, error)
	ListByRequester(ctx context.Context, requester string) ([]*models.AuthorizationRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Compile-time check to ensure implementation satisfies the interface.
var _ AuthorizationRepository = (*pgAuthorizationRepository)(nil)

type pgAuthorizationRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgAuthorizationRepository creates a PostgreSQL-backed repository
// for authorization requests.
func NewPgAuthorizationRepository(pool *pgxpool.Pool, logger *zap.Logger) AuthorizationRepository {
	return &pgAuthorizationRepository{
		pool:   pool,
		logger: logger.Named("PgAuthorizationRepo"),
	}
}

func (r *pgAuthorizationRepository) Create(ctx context.Context, req *models.AuthorizationRequest) (*models.AuthorizationRequest, error) {
	id := req.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	status := req.Status
	if status == "" {
		status = models.AuthorizationStatusPending
	}
	docRefs := req.DocumentRefs
	if docRefs == nil {
		docRefs = []string{}
	}

	var created models.AuthorizationRequest
	err := pgxscan.Get(ctx, r.pool, &created, createAuthorizationQuery,
		id, req.Numero, req.Requester, docRefs, status)
	if err != nil {
		r.logger.Error("Error creating authorization request", zap.String("numero", req.Numero), zap.Error(err))
		return nil, fmt.Errorf("failed to create authorization request: %w", err)
	}
	return &created, nil
}

func (r *pgAuthorizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuthorizationRequest, error) {
	var req models.AuthorizationRequest
	err := pgxscan.Get(ctx, r.pool, &req, getAuthorizationQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrRequestNotFound
		}
		r.logger.Error("Error getting authorization request", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get authorization request: %w", err)
	}
	return &req, nil
}

func (r *pgAuthorizationRepository) ListByRequester(ctx context.Context, requester string) ([]*models.AuthorizationRequest, error) {
	var reqs []*models.AuthorizationRequest
	if err := pgxscan.Select(ctx, r.pool, &reqs, listAuthorizationsByRequesterQuery, requester); err != nil {
		r.logger.Error("Error listing authorization requests", zap.String("requester", requester), zap.Error(err))
		return nil, fmt.Errorf("failed to list authorization requests: %w", err)
	}
	if reqs == nil {
		reqs = []*models.AuthorizationRequest{}
	}
	return reqs, nil
}

func (r *pgAuthorizationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !models.ValidAuthorizationStatus(status) {
		return fmt.Errorf("%w: unknown status %q", models.ErrBadRequest, status)
	}
	tag, err := r.pool.Exec(ctx, updateAuthorizationStatusQuery, status, id)
	if err != nil {
		r.logger.Error("Error updating authorization status", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("failed to update authorization status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrRequestNotFound
	}
	return nil
}
