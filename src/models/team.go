package models

import "frs/src/types"

type Team struct {
	ID            uint                `gorm:"primarykey" json:"id"`
	Name          string              `json:"name,omitempty"`
	LeaderID      uint                `json:"leader_id"`
	MemberCount   uint                `json:"member_count"`
	PassID        *uint               `json:"pass_id,omitempty"`
	PaymentStatus types.PaymentStatus `gorm:"default:'pending'" json:"payment_status"`

	Leader  *User         `gorm:"foreignKey:leader_id" json:"-"`
	Members []*TeamMember `json:"members,omitempty"`

	types.Timestamps
}

type TeamMember struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	TeamID    uint   `json:"team_id,omitempty"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Leader    bool   `json:"leader"`
	CheckedIn bool   `json:"checked_in"`

	types.Timestamps
}
