package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type UintList []uint

func (a UintList) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *UintList) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type PassType string

const (
	PASS_DAY      PassType = "day_pass"
	PASS_FULL     PassType = "full_pass"
	PASS_EVENTS   PassType = "events_pass"
	PASS_PRO_SHOW PassType = "pro_show"
	PASS_GROUP    PassType = "group_events"
)

func (p PassType) Valid() bool {
	switch p {
	case PASS_DAY, PASS_FULL, PASS_EVENTS, PASS_PRO_SHOW, PASS_GROUP:
		return true
	}
	return false
}

// IsGroup reports whether the pass is a team/group category pass.
func (p PassType) IsGroup() bool {
	return p == PASS_GROUP
}

type PaymentStatus string

const (
	PAYMENT_PENDING PaymentStatus = "pending"
	PAYMENT_SUCCESS PaymentStatus = "success"
	PAYMENT_FAILED  PaymentStatus = "failed"
)

type EventCategory string

const (
	EVENT_TECHNICAL     EventCategory = "technical"
	EVENT_NON_TECHNICAL EventCategory = "non_technical"
)

// Gateway order settlement states as reported by the order-status endpoint.
const (
	ORDER_PAID       = "PAID"
	ORDER_ACTIVE     = "ACTIVE"
	ORDER_EXPIRED    = "EXPIRED"
	ORDER_FAILED     = "FAILED"
	ORDER_CANCELLED  = "CANCELLED"
	ORDER_TERMINATED = "TERMINATED"
)

// TerminalOrderState reports whether the gateway can no longer move the
// order to PAID, so polling further is pointless.
func TerminalOrderState(status string) bool {
	switch status {
	case ORDER_EXPIRED, ORDER_FAILED, ORDER_CANCELLED, ORDER_TERMINATED:
		return true
	}
	return false
}

// EventAccess holds the access grants computed at reconciliation time
// from the selected events and the pass type.
type EventAccess struct {
	Tech        bool   `json:"tech"`
	NonTech     bool   `json:"non_tech"`
	ProShowDays []uint `json:"pro_show_days,omitempty"`
	FullAccess  bool   `json:"full_access"`
}

func (a EventAccess) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *EventAccess) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type SnapshotMember struct {
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Leader    bool   `json:"leader"`
	CheckedIn bool   `json:"checked_in"`
}

// TeamSnapshot is an immutable copy of the team roster taken when the
// pass is issued. The live team row keeps evolving on its own.
type TeamSnapshot struct {
	Name        string           `json:"name"`
	MemberCount int              `json:"member_count"`
	Members     []SnapshotMember `json:"members"`
}

func (a TeamSnapshot) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *TeamSnapshot) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type CreateOrderRequestBody struct {
	PassType    string `json:"pass_type" binding:"required,passtype"`
	Amount      int64  `json:"amount,omitempty"`
	TeamID      *uint  `json:"team_id,omitempty"`
	MemberCount uint   `json:"member_count,omitempty"`
	Events      []uint `json:"events,omitempty"`
	Days        []uint `json:"days,omitempty"`
}

type VerifyOrderRequestBody struct {
	OrderID string `json:"order_id" binding:"required"`
}

type DecodePassRequestBody struct {
	QRCode string `json:"qr_code" binding:"required"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}
