package models

import "frs/src/types"

// Event is a catalog row. The reconciliation flow only reads it, to
// cross-reference selected event ids against their category.
type Event struct {
	ID       uint                `gorm:"primarykey" json:"id"`
	Name     string              `json:"name"`
	Category types.EventCategory `json:"category"`
	Day      uint                `json:"day,omitempty"`

	types.Timestamps
}
