// Package journal persists operation receipts in a relational database.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bricsengine/core"
)

const defaultListLimit = 100

// Receipt is the persisted form of core.Receipt.
type Receipt struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Operation string    `gorm:"index"`
	Caller    string    `gorm:"index;size:42"`
	Details   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

// Store implements core.Journal on top of gorm.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn. postgres:// and postgresql:// DSNs use Postgres;
// anything else is treated as a SQLite path or URI.
func Open(dsn string) (*Store, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, errors.New("journal: dsn required")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://") {
		dialector = postgres.Open(trimmed)
	} else {
		if err := ensureDir(trimmed); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	return New(db)
}

func ensureDir(path string) error {
	if strings.HasPrefix(path, "file:") || strings.Contains(path, ":memory:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("journal: create dir: %w", err)
	}
	return nil
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("journal: db required")
	}
	if err := db.AutoMigrate(&Receipt{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores r.
func (s *Store) Record(ctx context.Context, r core.Receipt) error {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return fmt.Errorf("journal: receipt id: %w", err)
	}
	details, err := json.Marshal(r.Details)
	if err != nil {
		return fmt.Errorf("journal: encode details: %w", err)
	}
	row := Receipt{
		ID:        id,
		Operation: r.Operation,
		Caller:    strings.ToLower(r.Caller.Hex()),
		Details:   string(details),
		CreatedAt: r.CreatedAt.UTC(),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// List returns receipts newest first.
func (s *Store) List(ctx context.Context, filter core.ReceiptFilter) ([]core.Receipt, error) {
	query := s.db.WithContext(ctx).Model(&Receipt{})
	if filter.Caller != nil {
		query = query.Where("caller = ?", strings.ToLower(filter.Caller.Hex()))
	}
	if op := strings.TrimSpace(filter.Operation); op != "" {
		query = query.Where("operation = ?", op)
	}
	limit := filter.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	var rows []Receipt
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	out := make([]core.Receipt, 0, len(rows))
	for _, row := range rows {
		details := map[string]string{}
		if row.Details != "" {
			if err := json.Unmarshal([]byte(row.Details), &details); err != nil {
				return nil, fmt.Errorf("journal: decode details %s: %w", row.ID, err)
			}
		}
		out = append(out, core.Receipt{
			ID:        row.ID.String(),
			Operation: row.Operation,
			Caller:    common.HexToAddress(row.Caller),
			Details:   details,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

var _ core.Journal = (*Store)(nil)
