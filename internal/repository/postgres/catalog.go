package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/database"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
)

// CarrierRepository implements repository.CarrierRepository using PostgreSQL.
type CarrierRepository struct {
	pool database.DBTX
}

// NewCarrierRepository creates a new PostgreSQL-backed carrier repository.
func NewCarrierRepository(pool database.DBTX) *CarrierRepository {
	return &CarrierRepository{pool: pool}
}

// Create inserts a carrier. Names are unique regardless of case.
func (r *CarrierRepository) Create(ctx context.Context, c *domain.Carrier) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO carriers (id, name, phone, created_at)
		VALUES ($1, $2, $3, $4)`, c.ID, c.Name, c.Phone, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("carrier", "name", c.Name)
		}
		return fmt.Errorf("insert carrier: %w", err)
	}
	return nil
}

func (r *CarrierRepository) getOne(ctx context.Context, where string, arg any) (*domain.Carrier, error) {
	var c domain.Carrier
	err := r.pool.QueryRow(ctx, `SELECT id, name, phone, created_at FROM carriers WHERE `+where, arg).
		Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("carrier", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("scan carrier: %w", err)
	}
	return &c, nil
}

// GetByID retrieves a carrier by its ID.
func (r *CarrierRepository) GetByID(ctx context.Context, id string) (*domain.Carrier, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByName retrieves a carrier by name, ignoring case.
func (r *CarrierRepository) GetByName(ctx context.Context, name string) (*domain.Carrier, error) {
	return r.getOne(ctx, "lower(name) = lower($1)", name)
}

// List returns all carriers by name.
func (r *CarrierRepository) List(ctx context.Context) ([]domain.Carrier, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, phone, created_at FROM carriers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list carriers: %w", err)
	}
	defer rows.Close()

	carriers := make([]domain.Carrier, 0)
	for rows.Next() {
		var c domain.Carrier
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan carrier row: %w", err)
		}
		carriers = append(carriers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate carriers: %w", err)
	}
	return carriers, nil
}

// PartyRepository implements repository.PartyRepository using PostgreSQL.
type PartyRepository struct {
	pool database.DBTX
}

// NewPartyRepository creates a new PostgreSQL-backed customer/supplier
// repository.
func NewPartyRepository(pool database.DBTX) *PartyRepository {
	return &PartyRepository{pool: pool}
}

// Create inserts a customer or supplier.
func (r *PartyRepository) Create(ctx context.Context, p *domain.Party) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO parties (id, kind, name, phone, email, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Kind, p.Name, p.Phone, p.Email, p.Address, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert party: %w", err)
	}
	return nil
}

// GetByID retrieves a customer or supplier by its ID.
func (r *PartyRepository) GetByID(ctx context.Context, id string) (*domain.Party, error) {
	var p domain.Party
	err := r.pool.QueryRow(ctx, `
		SELECT id, kind, name, phone, email, address, created_at
		FROM parties WHERE id = $1`, id).
		Scan(&p.ID, &p.Kind, &p.Name, &p.Phone, &p.Email, &p.Address, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("party", id)
		}
		return nil, fmt.Errorf("scan party: %w", err)
	}
	return &p, nil
}

// List returns parties of one kind by name.
func (r *PartyRepository) List(ctx context.Context, kind string) ([]domain.Party, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, name, phone, email, address, created_at
		FROM parties WHERE kind = $1
		ORDER BY name`, kind)
	if err != nil {
		return nil, fmt.Errorf("list parties: %w", err)
	}
	defer rows.Close()

	parties := make([]domain.Party, 0)
	for rows.Next() {
		var p domain.Party
		if err := rows.Scan(&p.ID, &p.Kind, &p.Name, &p.Phone, &p.Email, &p.Address, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan party row: %w", err)
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parties: %w", err)
	}
	return parties, nil
}

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed staff user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// CreateIfAbsent inserts u unless its username exists.
func (r *UserRepository) CreateIfAbsent(ctx context.Context, u *domain.User) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, full_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (username) DO NOTHING`,
		u.ID, u.Username, u.PasswordHash, u.FullName, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg string) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, full_name, role, created_at, updated_at
		FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", arg)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "username = $1", username)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id = $1", id)
}
