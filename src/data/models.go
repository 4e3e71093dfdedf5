package data

import (
	"time"

	"gorm.io/gorm"
)

// Setting represents a configuration setting stored in the database
type Setting struct {
	ID     uint32 `gorm:"primaryKey;autoIncrement"`
	Name   string `gorm:"size:64;uniqueIndex;not null"`
	Value  string `gorm:"type:text;not null"`
	Active uint8  `gorm:"not null;default:1"`
}

// MemberRow persists bounty.Member without its assignment set.
type MemberRow struct {
	ID         string `gorm:"primaryKey;size:64"`
	Role       string `gorm:"size:16;not null"`
	CreditDebt int64  `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (MemberRow) TableName() string { return "members" }

// AssignmentRow is one entry of a member's assignment set.
type AssignmentRow struct {
	MemberID  string `gorm:"primaryKey;size:64"`
	BountyID  uint64 `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (AssignmentRow) TableName() string { return "member_assignments" }

// BountyRow persists bounty.Bounty.
type BountyRow struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement"`
	CreatorID   string  `gorm:"size:64;index;not null"`
	Type        string  `gorm:"size:16;not null"`
	Status      string  `gorm:"size:32;index;not null"`
	Title       string  `gorm:"size:256;not null"`
	Description string  `gorm:"type:text"`
	AssignedTo  *string `gorm:"size:64;index"`
	VerifierID  *string `gorm:"size:64"`
	ExternalRef *string `gorm:"size:128;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (BountyRow) TableName() string { return "bounties" }

var allModels = []interface{}{
	&Setting{}, &MemberRow{}, &AssignmentRow{}, &BountyRow{},
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(allModels...)
}
