package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"userdesk/internal/models"
	"userdesk/internal/users"
	"userdesk/shared/logger"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

const schema = `CREATE TABLE IF NOT EXISTS users (
	id         BIGSERIAL PRIMARY KEY,
	name       VARCHAR(50)  NOT NULL,
	email      VARCHAR(320) NOT NULL,
	created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
	CONSTRAINT users_email_key UNIQUE (email)
)`

const userColumns = `id, name, email, created_at, updated_at`

// PoolOptions tunes the shared connection pool.
type PoolOptions struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

// PostgreSQL is the users.Store backed by PostgreSQL through sqlx.
type PostgreSQL struct {
	db *sqlx.DB
}

var _ users.Store = (*PostgreSQL)(nil)

// Connect opens and verifies a PostgreSQL connection pool.
func Connect(ctx context.Context, dsn string, pool PoolOptions) (*PostgreSQL, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if pool.MaxOpen > 0 {
		db.SetMaxOpenConns(pool.MaxOpen)
	}
	if pool.MaxIdle > 0 {
		db.SetMaxIdleConns(pool.MaxIdle)
	}
	if pool.MaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.MaxLifetime)
	}

	logger.Info("PostgreSQL store connected", logger.Int("max_open", pool.MaxOpen))
	return NewPostgreSQL(db), nil
}

// NewPostgreSQL wraps an existing sqlx handle.
func NewPostgreSQL(db *sqlx.DB) *PostgreSQL {
	return &PostgreSQL{db: db}
}

// EnsureSchema creates the users table when it does not exist.
func (p *PostgreSQL) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

func (p *PostgreSQL) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return p.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (p *PostgreSQL) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return p.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// List returns all users ordered by id ascending.
func (p *PostgreSQL) List(ctx context.Context) ([]models.User, error) {
	out := []models.User{}
	if err := p.db.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM users ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (p *PostgreSQL) Insert(ctx context.Context, in models.UserInput) (*models.User, error) {
	query := `INSERT INTO users (name, email) VALUES ($1, $2) RETURNING ` + userColumns

	var u models.User
	if err := p.db.QueryRowxContext(ctx, query, in.Name, in.Email).StructScan(&u); err != nil {
		return nil, translate(err)
	}

	logger.Debug("Inserted user", logger.Int64("user_id", u.ID))
	return &u, nil
}

// Update sets only the fields present in patch.
func (p *PostgreSQL) Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	query, args := updateQuery(id, patch)

	var u models.User
	if err := p.db.QueryRowxContext(ctx, query, args...).StructScan(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// Delete removes a user. Deleting an absent id is not an error.
func (p *PostgreSQL) Delete(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		logger.Debug("Delete matched no user", logger.Int64("user_id", id))
	}
	return nil
}

func (p *PostgreSQL) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

func (p *PostgreSQL) DriverName() string {
	return "postgres"
}

func (p *PostgreSQL) get(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	if err := p.db.GetContext(ctx, &u, query, arg); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func updateQuery(id int64, patch models.UserPatch) (string, []any) {
	var sets []string
	var args []any

	if patch.Name != nil {
		args = append(args, *patch.Name)
		sets = append(sets, "name = $"+strconv.Itoa(len(args)))
	}
	if patch.Email != nil {
		args = append(args, *patch.Email)
		sets = append(sets, "email = $"+strconv.Itoa(len(args)))
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)
	return query, args
}

// translate maps driver errors onto the users sentinels.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return users.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", users.ErrEmailTaken, pqErr.Constraint)
	}
	return fmt.Errorf("db error: %w", err)
}
