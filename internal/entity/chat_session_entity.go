package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id    uuid.UUID
	Title string

	// Standing summary state. Summary is replaced wholesale every interval;
	// TurnsSinceSummary counts assistant turns committed since the last
	// replacement and SummarySequence marks the last summarized message.
	Summary           string
	TurnsSinceSummary int
	SummarySequence   int64

	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
