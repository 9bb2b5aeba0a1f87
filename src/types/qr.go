package types

import "errors"

type QRPayloadKind string

const (
	QR_INDIVIDUAL QRPayloadKind = "individual"
	QR_GROUP      QRPayloadKind = "group"
)

type QRMember struct {
	Name   string `json:"name"`
	Leader bool   `json:"leader"`
}

type IndividualQRPayload struct {
	PassID   string   `json:"pass_id"`
	Name     string   `json:"name"`
	PassType PassType `json:"pass_type"`
	Events   []uint   `json:"events,omitempty"`
	Days     []uint   `json:"days,omitempty"`
}

type GroupQRPayload struct {
	PassID   string     `json:"pass_id"`
	PassType PassType   `json:"pass_type"`
	TeamName string     `json:"team_name"`
	Members  []QRMember `json:"members"`
	Events   []uint     `json:"events,omitempty"`
	Days     []uint     `json:"days,omitempty"`
}

// QRPayload is the tagged union embedded in a pass QR token. Exactly one
// variant matching Kind is populated; Validate enforces that before the
// payload is ever encrypted.
type QRPayload struct {
	Kind       QRPayloadKind        `json:"kind"`
	Individual *IndividualQRPayload `json:"individual,omitempty"`
	Group      *GroupQRPayload      `json:"group,omitempty"`
}

func NewIndividualQRPayload(p IndividualQRPayload) QRPayload {
	return QRPayload{Kind: QR_INDIVIDUAL, Individual: &p}
}

func NewGroupQRPayload(p GroupQRPayload) QRPayload {
	return QRPayload{Kind: QR_GROUP, Group: &p}
}

func (p QRPayload) Validate() error {
	switch p.Kind {
	case QR_INDIVIDUAL:
		if p.Individual == nil || p.Group != nil {
			return errors.New("individual payload must carry only the individual variant")
		}
		if p.Individual.PassID == "" {
			return errors.New("payload is missing the pass id")
		}
	case QR_GROUP:
		if p.Group == nil || p.Individual != nil {
			return errors.New("group payload must carry only the group variant")
		}
		if p.Group.PassID == "" {
			return errors.New("payload is missing the pass id")
		}
		if len(p.Group.Members) == 0 {
			return errors.New("group payload has an empty roster")
		}
	default:
		return errors.New("unknown payload kind")
	}
	return nil
}
