package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"gorm.io/datatypes"
)

// Run records one completed coverage analysis. The parse cache is in-memory
// only; the history store persists finished reports, nothing else.
type Run struct {
	ID        string    `gorm:"primaryKey;type:varchar(20)"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	// Analyzed inputs
	CLIPath string `gorm:"type:varchar(512);not null"`
	TestDir string `gorm:"type:varchar(512);not null"`

	// Per-category counts
	CommandsTotal     int
	CommandsTested    int
	SubcommandsTotal  int
	SubcommandsTested int
	FlagsTotal        int
	FlagsTested       int
	OptionsTotal      int
	OptionsTested     int
	OverallTotal      int
	OverallTested     int
	OverallPercent    float64 `gorm:"type:decimal(5,2)"`

	// Full report for later inspection
	Report datatypes.JSON `gorm:"type:jsonb"`

	WarningCount int `gorm:"default:0"`
}

func (Run) TableName() string { return "runs" }

// NewID returns a short random hex identifier.
func NewID() string {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format("150405.000")))[:20]
	}
	return hex.EncodeToString(buf)
}
