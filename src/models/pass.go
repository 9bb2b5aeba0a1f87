package models

import "frs/src/types"

// Pass is the issued entry credential. At most one row exists per
// gateway order id; the unique index backs the in-transaction existence
// check that makes reconciliation idempotent.
type Pass struct {
	ID           uint                `gorm:"primarykey" json:"id"`
	Identifier   *string             `gorm:"<-:create" json:"resource_id"`
	UserID       uint                `json:"user_id"`
	PassType     types.PassType      `json:"pass_type"`
	Amount       int64               `json:"amount"`
	OrderID      string              `gorm:"uniqueIndex" json:"order_id"`
	Status       string              `gorm:"default:'paid'" json:"status"`
	QRCode       string              `json:"qr_code"`
	EventAccess  types.EventAccess   `gorm:"type:jsonb" json:"event_access"`
	TeamSnapshot *types.TeamSnapshot `gorm:"type:jsonb" json:"team_snapshot,omitempty"`
	Events       types.UintList      `gorm:"type:jsonb" json:"events,omitempty"`
	Days         types.UintList      `gorm:"type:jsonb" json:"days,omitempty"`

	User *User `gorm:"foreignKey:user_id" json:"user,omitempty"`

	types.Timestamps
}
