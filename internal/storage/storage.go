// internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"imgedit/internal/models"
)

// DB is the subset of pgxpool.Pool the store needs; it lets tests substitute
// a mock connection.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DefaultListLimit bounds history reads when the caller does not say otherwise.
const DefaultListLimit = 20

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Storage persists the per-user edit history in PostgreSQL.
type Storage struct {
	db           DB
	pool         *pgxpool.Pool
	sqlDB        *sql.DB // For migrations
	tenantScoped bool
	log          *slog.Logger
}

func NewStorage(ctx context.Context, dsn string, tenantScoped bool, log *slog.Logger) (*Storage, error) {
	const op = "storage.NewStorage"

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(db); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	return &Storage{db: pool, pool: pool, sqlDB: db, tenantScoped: tenantScoped, log: log}, nil
}

// NewWithDB builds a store over an existing connection, without migrations.
func NewWithDB(db DB, tenantScoped bool, log *slog.Logger) *Storage {
	return &Storage{db: db, tenantScoped: tenantScoped, log: log}
}

func (s *Storage) Close() {
	if s.sqlDB != nil {
		s.sqlDB.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// Append persists a completed edit record. Records are written whole or not
// at all; there is no partial state to repair.
func (s *Storage) Append(ctx context.Context, rec *models.EditRecord) error {
	const op = "storage.Append"

	query, args, err := psql.Insert("edit_records").
		Columns("id", "user_id", "prompt", "original_image_url", "edited_image_url", "created_at").
		Values(rec.ID, ownerValue(rec.OwnerID), rec.Prompt, rec.OriginalImageURL, rec.EditedImageURL, rec.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	return nil
}

// List returns the caller's records, newest first, bounded by limit. Store
// failures and an unauthenticated caller in tenant mode both yield an empty
// history rather than an error; missing history is not worth failing a read
// path over.
func (s *Storage) List(ctx context.Context, owner *uuid.UUID, limit int) []models.EditRecord {
	const op = "storage.List"

	if limit <= 0 || limit > 100 {
		limit = DefaultListLimit
	}

	builder := psql.Select("id", "user_id", "prompt", "original_image_url", "edited_image_url", "created_at").
		From("edit_records").
		OrderBy("created_at DESC").
		Limit(uint64(limit))
	if s.tenantScoped {
		if owner == nil {
			return []models.EditRecord{}
		}
		builder = builder.Where(sq.Eq{"user_id": *owner})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		s.log.WarnContext(ctx, "history list failed", slog.String("op", op), slog.Any("error", err))
		return []models.EditRecord{}
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		s.log.WarnContext(ctx, "history list failed", slog.String("op", op), slog.Any("error", err))
		return []models.EditRecord{}
	}
	defer rows.Close()

	records := []models.EditRecord{}
	for rows.Next() {
		var rec models.EditRecord
		var ownerID uuid.NullUUID
		if err := rows.Scan(&rec.ID, &ownerID, &rec.Prompt, &rec.OriginalImageURL, &rec.EditedImageURL, &rec.CreatedAt); err != nil {
			s.log.WarnContext(ctx, "history list failed", slog.String("op", op), slog.Any("error", err))
			return []models.EditRecord{}
		}
		if ownerID.Valid {
			id := ownerID.UUID
			rec.OwnerID = &id
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		s.log.WarnContext(ctx, "history list failed", slog.String("op", op), slog.Any("error", err))
		return []models.EditRecord{}
	}
	return records
}

// Delete removes a record by id. In tenant mode the delete only matches the
// caller's own rows. Absence is not exceptional: the result reports whether
// a row went away.
func (s *Storage) Delete(ctx context.Context, id string, owner *uuid.UUID) (bool, error) {
	const op = "storage.Delete"

	builder := psql.Delete("edit_records").Where(sq.Eq{"id": id})
	if s.tenantScoped {
		if owner == nil {
			return false, nil
		}
		builder = builder.Where(sq.Eq{"user_id": *owner})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: %v", op, err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %v", op, err)
	}
	return tag.RowsAffected() > 0, nil
}

func ownerValue(owner *uuid.UUID) any {
	if owner == nil {
		return nil
	}
	return *owner
}
