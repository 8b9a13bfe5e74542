package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EscrowEvent is one committed lifecycle transition of an escrow account.
type EscrowEvent struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Sequence     uint64    `gorm:"index"`
	Escrow       string    `gorm:"size:64;index"`
	Type         string    `gorm:"size:32;index"`
	Initiator    string    `gorm:"size:64;index"`
	Counterparty string    `gorm:"size:64;index"`
	TermsHash    string    `gorm:"size:64"`
	Direction    string    `gorm:"size:32"`
	Reserve      string    `gorm:"size:24"`
	LegsA        int
	LegsB        int
	Attributes   string `gorm:"type:text"`
	CreatedAt    time.Time
}

// AutoMigrate performs the index schema migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EscrowEvent{})
}
