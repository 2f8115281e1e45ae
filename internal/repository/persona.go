package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luminary-chat/luminary/internal/domain"
)

// PersonaRepository handles persona persistence.
type PersonaRepository struct {
	pool *pgxpool.Pool
}

func NewPersonaRepository(pool *pgxpool.Pool) *PersonaRepository {
	return &PersonaRepository{pool: pool}
}

// Create inserts a new persona, assigning an ID and timestamps.
func (r *PersonaRepository) Create(ctx context.Context, p *domain.Persona) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.pool.Exec(ctx,
		`INSERT INTO personas (id, slug, name, description, archived, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Slug, p.Name, p.Description, p.Archived, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetBySlug fetches a persona by its slug.
func (r *PersonaRepository) GetBySlug(ctx context.Context, slug string) (*domain.Persona, error) {
	var p domain.Persona
	err := r.pool.QueryRow(ctx,
		`SELECT id, slug, name, description, archived, created_at, updated_at
		 FROM personas WHERE slug = $1`,
		slug,
	).Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.Archived, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPersonaNotFound
		}
		return nil, err
	}

	return &p, nil
}

// List returns all personas, optionally including archived ones.
func (r *PersonaRepository) List(ctx context.Context, includeArchived bool) ([]*domain.Persona, error) {
	query := `SELECT id, slug, name, description, archived, created_at, updated_at
		 FROM personas`
	if !includeArchived {
		query += ` WHERE NOT archived`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var personas []*domain.Persona
	for rows.Next() {
		var p domain.Persona
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.Archived, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		personas = append(personas, &p)
	}

	return personas, rows.Err()
}

// SetArchived flips a persona's archived flag.
func (r *PersonaRepository) SetArchived(ctx context.Context, slug string, archived bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE personas SET archived = $2, updated_at = $3 WHERE slug = $1`,
		slug, archived, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPersonaNotFound
	}
	return nil
}
