package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"portal-server/internal/models"
)

const (
	getNumberByNumeroQuery = `
        SELECT id, numero, prefix, region, type, status, created_at, updated_at
        FROM available_numbers WHERE numero = $1`

	upsertNumberQuery = `
        INSERT INTO available_numbers (id, numero, prefix, region, type, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (numero) DO NOTHING`

	markOrderedQuery = `
        UPDATE available_numbers
        SET status = $1, updated_at = NOW()
        WHERE id = ANY($2) AND status = $3`
)

// NumberRepository is the persistence port for the DID inventory.
type NumberRepository interface {
	List(ctx context.Context, filter models.NumberFilter) ([]*models.AvailableNumber, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.AvailableNumber, error)
	GetByNumero(ctx context.Context, numero string) (*models.AvailableNumber, error)
	BulkUpsert(ctx context.Context, numbers []*models.AvailableNumber) (int, error)
	MarkOrdered(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// Compile-time check to ensure implementation satisfies the interface.
var _ NumberRepository = (*pgNumberRepository)(nil)

type pgNumberRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgNumberRepository creates a PostgreSQL-backed number repository.
func NewPgNumberRepository(pool *pgxpool.Pool, logger *zap.Logger) NumberRepository {
	return &pgNumberRepository{
		pool:   pool,
		logger: logger.Named("PgNumberRepo"),
	}
}

// List returns inventory rows matching the filter, ordered by numero.
func (r *pgNumberRepository) List(ctx context.Context, filter models.NumberFilter) ([]*models.AvailableNumber, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, numero, prefix, region, type, status, created_at, updated_at FROM available_numbers`)

	var conds []string
	var args []interface{}
	addCond := func(field, value string) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", field, len(args)))
	}
	if filter.Status != "" {
		addCond("status", filter.Status)
	}
	if filter.Region != "" {
		addCond("region", filter.Region)
	}
	if filter.Prefix != "" {
		addCond("prefix", filter.Prefix)
	}
	if len(conds) > 0 {
		query.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	query.WriteString(" ORDER BY numero")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	var numbers []*models.AvailableNumber
	if err := pgxscan.Select(ctx, r.pool, &numbers, query.String(), args...); err != nil {
		r.logger.Error("Error listing numbers", zap.Error(err))
		return nil, fmt.Errorf("failed to list numbers: %w", err)
	}
	if numbers == nil {
		numbers = []*models.AvailableNumber{}
	}
	return numbers, nil
}

// GetByIDs returns the rows for the given ids; missing ids are skipped.
func (r *pgNumberRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.AvailableNumber, error) {
	if len(ids) == 0 {
		return []*models.AvailableNumber{}, nil
	}
	var numbers []*models.AvailableNumber
	query := `SELECT id, numero, prefix, region, type, status, created_at, updated_at
              FROM available_numbers WHERE id = ANY($1)`
	if err := pgxscan.Select(ctx, r.pool, &numbers, query, ids); err != nil {
		r.logger.Error("Error getting numbers by ids", zap.Error(err))
		return nil, fmt.Errorf("failed to get numbers by ids: %w", err)
	}
	return numbers, nil
}

func (r *pgNumberRepository) GetByNumero(ctx context.Context, numero string) (*models.AvailableNumber, error) {
	var number models.AvailableNumber
	err := pgxscan.Get(ctx, r.pool, &number, getNumberByNumeroQuery, numero)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNumberNotFound
		}
		r.logger.Error("Error getting number", zap.String("numero", numero), zap.Error(err))
		return nil, fmt.Errorf("failed to get number %s: %w", numero, err)
	}
	return &number, nil
}

// BulkUpsert inserts numbers ignoring duplicates, returning how many
// rows were actually inserted.
func (r *pgNumberRepository) BulkUpsert(ctx context.Context, numbers []*models.AvailableNumber) (int, error) {
	if len(numbers) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, n := range numbers {
		id := n.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		batch.Queue(upsertNumberQuery, id, n.Numero, n.Prefix, n.Region, n.Type, n.Status)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range numbers {
		tag, err := results.Exec()
		if err != nil {
			r.logger.Error("Error upserting number batch", zap.Error(err))
			return inserted, fmt.Errorf("failed to upsert numbers: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// MarkOrdered flips available rows to ordered, returning the number of
// rows actually updated.
func (r *pgNumberRepository) MarkOrdered(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, markOrderedQuery, models.NumberStatusOrdered, ids, models.NumberStatusAvailable)
	if err != nil {
		r.logger.Error("Error marking numbers ordered", zap.Error(err))
		return 0, fmt.Errorf("failed to mark numbers ordered: %w", err)
	}
	return tag.RowsAffected(), nil
}
