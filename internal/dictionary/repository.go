package dictionary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

//go:generate mockgen -source=repository.go -destination=../mocks/dictionary/mock_repository.go -package=mock_dictionary

// Repository defines operations for managing dictionary records.
type Repository interface {
	FindByKeyword(ctx context.Context, keyword string) (*Record, error)
	FindByAbbreviation(ctx context.Context, abbreviation string) (*Record, error)
	FindAll(ctx context.Context) ([]Record, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, record *Record) error
	BatchCreate(ctx context.Context, records []*Record) error
}

// DBRepository implements Repository using SQLite or MySQL through sqlx.
type DBRepository struct {
	db *sqlx.DB
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

const selectColumns = "SELECT id, keyword, abbreviation, description, created_at FROM words"

// FindByKeyword returns the record with the keyword, or nil if not found.
func (r *DBRepository) FindByKeyword(ctx context.Context, keyword string) (*Record, error) {
	return r.findOne(ctx, selectColumns+" WHERE keyword = ?", keyword)
}

// FindByAbbreviation returns the record using the abbreviation, or nil if not found.
func (r *DBRepository) FindByAbbreviation(ctx context.Context, abbreviation string) (*Record, error) {
	return r.findOne(ctx, selectColumns+" WHERE abbreviation = ?", abbreviation)
}

func (r *DBRepository) findOne(ctx context.Context, query string, arg string) (*Record, error) {
	var record Record
	err := r.db.GetContext(ctx, &record, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(words) > %w", err)
	}
	return &record, nil
}

// FindAll returns all records ordered by keyword.
func (r *DBRepository) FindAll(ctx context.Context) ([]Record, error) {
	var records []Record
	if err := r.db.SelectContext(ctx, &records, selectColumns+" ORDER BY keyword"); err != nil {
		return nil, fmt.Errorf("db.SelectContext(words) > %w", err)
	}
	return records, nil
}

func (r *DBRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM words"); err != nil {
		return 0, fmt.Errorf("db.GetContext(count words) > %w", err)
	}
	return count, nil
}

// Create inserts a record and sets its ID.
// A duplicate keyword or abbreviation is reported as ErrKeywordExists or ErrAbbreviationExists.
func (r *DBRepository) Create(ctx context.Context, record *Record) error {
	return insert(ctx, r.db, record)
}

// BatchCreate inserts all records in one transaction.
func (r *DBRepository) BatchCreate(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTxx() > %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, record := range records {
		if err := insert(ctx, tx, record); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit() > %w", err)
	}
	return nil
}

func insert(ctx context.Context, execer sqlx.ExecerContext, record *Record) error {
	result, err := execer.ExecContext(ctx,
		"INSERT INTO words (keyword, abbreviation, description) VALUES (?, ?, ?)",
		record.Keyword, record.Abbreviation, record.Description)
	if err != nil {
		if uniqueErr := uniqueViolation(err); uniqueErr != nil {
			return fmt.Errorf("%w: %s", uniqueErr, describe(uniqueErr, record))
		}
		return fmt.Errorf("db.ExecContext(insert words) > %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("result.LastInsertId() > %w", err)
	}
	record.ID = id
	return nil
}

// uniqueViolation maps a driver's unique-constraint error to the matching sentinel, or nil.
func uniqueViolation(err error) error {
	var message string
	var mysqlErr *mysql.MySQLError
	switch {
	case errors.As(err, &mysqlErr) && mysqlErr.Number == 1062:
		message = mysqlErr.Message
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		message = err.Error()
	default:
		return nil
	}

	if strings.Contains(message, "abbreviation") {
		return ErrAbbreviationExists
	}
	return ErrKeywordExists
}

func describe(uniqueErr error, record *Record) string {
	if errors.Is(uniqueErr, ErrAbbreviationExists) {
		return record.Abbreviation
	}
	return record.Keyword
}
