package models

import "frs/src/types"

// Payment is one checkout attempt against the gateway. Rows are never
// deleted; status moves to success exactly once, during reconciliation.
type Payment struct {
	ID          uint                `gorm:"primarykey" json:"id"`
	OrderID     string              `gorm:"uniqueIndex" json:"order_id"`
	ReferenceID string              `json:"reference_id,omitempty"`
	UserID      uint                `json:"user_id"`
	Amount      int64               `json:"amount"`
	PassType    types.PassType      `json:"pass_type"`
	Status      types.PaymentStatus `gorm:"default:'pending'" json:"status"`
	TeamID      *uint               `json:"team_id,omitempty"`
	Events      types.UintList      `gorm:"type:jsonb" json:"events,omitempty"`
	Days        types.UintList      `gorm:"type:jsonb" json:"days,omitempty"`

	User *User `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Team *Team `gorm:"foreignKey:team_id" json:"team,omitempty"`

	types.Timestamps
}
