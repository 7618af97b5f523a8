package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Customer struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
	Calls     []Call
}

func (c *Customer) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Call is one stored analysis. In clear, Report holds the record without
// transcript text and Transcript holds the text and segments. When Encrypted,
// Report holds the whole sealed record and Transcript is empty.
type Call struct {
	ID         string `gorm:"primaryKey;size:36"`
	CustomerID string `gorm:"index;not null"`
	RecordID   string `gorm:"index"`
	AudioName  string
	Report     string
	Transcript string
	Encrypted  bool
	CreatedAt  time.Time `gorm:"index"`
}

func (c *Call) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
