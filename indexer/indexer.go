package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"multiswap/core/events"
	"multiswap/core/types"
)

const eventPrefix = "escrow."

// DefaultHistoryLimit caps History when the caller passes no limit.
const DefaultHistoryLimit = 100

var ErrEmptyDSN = errors.New("indexer: dsn required")

// Indexer persists escrow lifecycle events for later queries. It implements
// events.Emitter so it can subscribe to the runtime directly.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time

	mu  sync.Mutex
	seq uint64
}

var _ events.Emitter = (*Indexer)(nil)

// Open connects to dsn and migrates the schema. A postgres:// or
// postgresql:// URL selects postgres; anything else is a sqlite path.
func Open(dsn string, log *slog.Logger) (*Indexer, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrEmptyDSN
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://") {
		dialector = postgres.Open(trimmed)
	} else {
		dialector = sqlite.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open: %w", err)
	}
	return New(db, log)
}

// New wraps an existing connection.
func New(db *gorm.DB, log *slog.Logger) (*Indexer, error) {
	if db == nil {
		return nil, errors.New("indexer: nil database")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	idx := &Indexer{db: db, logger: log.With(slog.String("component", "indexer")), now: time.Now}
	var last EscrowEvent
	err := db.Order("sequence desc").Limit(1).Find(&last).Error
	if err != nil {
		return nil, fmt.Errorf("indexer: load sequence: %w", err)
	}
	idx.seq = last.Sequence
	return idx, nil
}

// Emit records escrow events. Failures are logged; the ledger has already
// committed and indexing is best effort.
func (i *Indexer) Emit(evt events.Event) {
	carrier, ok := evt.(events.Carrier)
	if !ok {
		return
	}
	payload := carrier.Event()
	if payload == nil || !strings.HasPrefix(payload.Type, eventPrefix) {
		return
	}
	if err := i.Record(context.Background(), payload); err != nil {
		i.logger.Error("index escrow event failed",
			slog.String("type", payload.Type),
			slog.String("escrow", payload.Attributes["escrow"]),
			slog.Any("error", err))
	}
}

// Record stores a single escrow event payload.
func (i *Indexer) Record(ctx context.Context, payload *types.Event) error {
	if payload == nil {
		return errors.New("indexer: nil event")
	}
	attrs, err := json.Marshal(payload.Attributes)
	if err != nil {
		return fmt.Errorf("indexer: encode attributes: %w", err)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	row := EscrowEvent{
		ID:           uuid.New(),
		Sequence:     i.seq + 1,
		Escrow:       payload.Attributes["escrow"],
		Type:         payload.Type,
		Initiator:    payload.Attributes["initiator"],
		Counterparty: payload.Attributes["counterparty"],
		TermsHash:    payload.Attributes["termsHash"],
		Direction:    payload.Attributes["direction"],
		Reserve:      payload.Attributes["reserve"],
		LegsA:        atoi(payload.Attributes["legsA"]),
		LegsB:        atoi(payload.Attributes["legsB"]),
		Attributes:   string(attrs),
		CreatedAt:    i.now().UTC(),
	}
	if err := i.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("indexer: insert: %w", err)
	}
	i.seq = row.Sequence
	return nil
}

// History lists the events recorded for escrow in the order they were
// committed. A non-positive limit applies DefaultHistoryLimit.
func (i *Indexer) History(ctx context.Context, escrow string, limit int) ([]EscrowEvent, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var rows []EscrowEvent
	err := i.db.WithContext(ctx).
		Where("escrow = ?", escrow).
		Order("sequence asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("indexer: history: %w", err)
	}
	return rows, nil
}

// ByParty lists events where key is the initiator or counterparty, newest
// first.
func (i *Indexer) ByParty(ctx context.Context, key string, limit int) ([]EscrowEvent, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var rows []EscrowEvent
	err := i.db.WithContext(ctx).
		Where("initiator = ? OR counterparty = ?", key, key).
		Order("sequence desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("indexer: by party: %w", err)
	}
	return rows, nil
}

// Close releases the underlying connection.
func (i *Indexer) Close() error {
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
