package models

import "frs/src/types"

type User struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	UID   string `gorm:"uniqueIndex" json:"uid"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `gorm:"default:'attendee'" json:"role,omitempty"`

	types.Timestamps
}
