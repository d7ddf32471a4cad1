package repository

import (
	"context"

	"github.com/jmehdipour/messaging-gateway/internal/db"
	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// ProvidersRepository manages the provider catalog.
type ProvidersRepository interface {
	Upsert(ctx context.Context, p model.Provider) error
	List(ctx context.Context) ([]model.Provider, error)
}

type ProvidersRepositoryImpl struct {
	db *sqlx.DB
}

func NewProvidersRepository(db *sqlx.DB) *ProvidersRepositoryImpl {
	return &ProvidersRepositoryImpl{db: db}
}

var _ ProvidersRepository = (*ProvidersRepositoryImpl)(nil)

// Upsert inserts the provider or refreshes its type (idempotent on name).
func (r *ProvidersRepositoryImpl) Upsert(ctx context.Context, p model.Provider) error {
	q := `INSERT INTO providers (name, type) VALUES (?, ?) ON CONFLICT (name) DO UPDATE SET type = EXCLUDED.type`
	if db.IsMySQL(r.db) {
		q = `INSERT INTO providers (name, type) VALUES (?, ?) ON DUPLICATE KEY UPDATE type = VALUES(type)`
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q), p.Name, p.Type.String())
	return err
}

func (r *ProvidersRepositoryImpl) List(ctx context.Context) ([]model.Provider, error) {
	rows := []model.Provider{}
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name, type FROM providers ORDER BY name`); err != nil {
		return nil, err
	}
	return rows, nil
}
