package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"frs/src/lib"
	"frs/src/models"
	"frs/src/types"
	"frs/src/utils"

	"github.com/google/uuid"
)

// ErrPaymentNotFound means the gateway settled an order this service has
// no payment record for. Either the record write failed after order
// creation (orphan order) or replication has not caught up; both need an
// operator, not a retry loop.
var ErrPaymentNotFound = errors.New("no payment record found for order")

// NotPaidError is the expected "come back later" outcome: the gateway
// has not reported the order as PAID within the poll budget.
type NotPaidError struct {
	Status string
}

func (e *NotPaidError) Error() string {
	return fmt.Sprintf("order is not paid: status=%s", e.Status)
}

// GatewayError wraps a hard failure talking to the payment gateway.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway error: %s", e.Err.Error())
}

func (e *GatewayError) Unwrap() error { return e.Err }

type ReconcileResult struct {
	Created bool   `json:"created"`
	PassID  uint   `json:"pass_id"`
	QRCode  string `json:"qr_code"`
}

// Notifier is invoked exactly once per order id, on the reconciliation
// call that created the pass.
type Notifier func(pass *models.Pass, user *models.User)

// Reconciler turns a settled gateway order into exactly one pass. All
// cross-invocation coordination is delegated to the store's transaction
// isolation; the reconciler holds no locks and may run concurrently in
// any number of processes.
type Reconciler struct {
	Store   Store
	Gateway lib.PaymentGateway
	Key     []byte
	Notify  Notifier

	PollPolicy   utils.RetryPolicy
	LookupPolicy utils.RetryPolicy
}

func NewReconciler(store Store, gateway lib.PaymentGateway, key []byte) *Reconciler {
	return &Reconciler{
		Store:        store,
		Gateway:      gateway,
		Key:          key,
		Notify:       DispatchPassIssued,
		PollPolicy:   utils.RetryPolicy{MaxAttempts: 5, Delay: 2 * time.Second},
		LookupPolicy: utils.RetryPolicy{MaxAttempts: 3, Delay: 1 * time.Second},
	}
}

// Reconcile drives the full verification pipeline for one order id. It
// is safe to call from both the user-verify endpoint and the gateway
// webhook, sequentially or concurrently, any number of times.
func (r *Reconciler) Reconcile(ctx context.Context, orderID string) (*ReconcileResult, error) {
	status, err := r.pollOrderStatus(ctx, orderID)
	if err != nil {
		return nil, &GatewayError{Err: err}
	}
	if status.Status != types.ORDER_PAID {
		return nil, &NotPaidError{Status: status.Status}
	}

	payment, err := r.lookupPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// The catalog is not mutated by this flow, so the category
	// cross-reference can happen before the atomic unit.
	access, err := r.computeEventAccess(ctx, payment)
	if err != nil {
		return nil, err
	}

	var result ReconcileResult
	var issued *models.Pass
	var owner *models.User
	err = r.Store.RunTransaction(ctx, func(tx Tx) error {
		result = ReconcileResult{}
		issued, owner = nil, nil

		current, found, err := tx.PaymentByOrderID(orderID)
		if err != nil {
			return err
		}
		if !found {
			return ErrPaymentNotFound
		}
		if err := tx.MarkPaymentSuccess(current.ID); err != nil {
			return err
		}

		existing, found, err := tx.PassByOrderID(orderID)
		if err != nil {
			return err
		}
		if found {
			result = ReconcileResult{Created: false, PassID: existing.ID, QRCode: existing.QRCode}
			return nil
		}

		user, found, err := tx.UserByID(current.UserID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("user %d not found for order %s", current.UserID, orderID)
		}
		var team *models.Team
		if current.PassType.IsGroup() && current.TeamID != nil {
			t, found, err := tx.TeamByID(*current.TeamID)
			if err != nil {
				return err
			}
			if !found {
				log.Printf("Team %d referenced by order %s does not exist; issuing an individual pass\n", *current.TeamID, orderID)
			} else {
				team = t
			}
		}

		identifier := fmt.Sprintf("pass:%s", uuid.NewString())
		payload := buildQRPayload(identifier, user, current, team)
		if err := payload.Validate(); err != nil {
			return err
		}
		token, err := utils.EncryptPayload(r.Key, payload)
		if err != nil {
			return err
		}

		pass := &models.Pass{
			Identifier:  &identifier,
			UserID:      current.UserID,
			PassType:    current.PassType,
			Amount:      current.Amount,
			OrderID:     orderID,
			Status:      "paid",
			QRCode:      token,
			EventAccess: access,
			Events:      current.Events,
			Days:        current.Days,
		}
		if team != nil {
			pass.TeamSnapshot = snapshotTeam(team)
		}
		if err := tx.CreatePass(pass); err != nil {
			return err
		}
		if team != nil {
			if err := tx.LinkTeamPass(team.ID, pass.ID); err != nil {
				return err
			}
		}

		issued = pass
		owner = user
		result = ReconcileResult{Created: true, PassID: pass.ID, QRCode: token}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Created && issued != nil && r.Notify != nil {
		r.Notify(issued, owner)
	}
	return &result, nil
}

func (r *Reconciler) pollOrderStatus(ctx context.Context, orderID string) (*lib.OrderStatus, error) {
	return utils.Retry(ctx, r.PollPolicy,
		func(ctx context.Context) (*lib.OrderStatus, error) {
			return r.Gateway.OrderStatus(ctx, orderID)
		},
		func(status *lib.OrderStatus, err error) bool {
			if err != nil {
				// Any gateway failure is a hard stop, not a retry.
				return false
			}
			if status.Status == types.ORDER_PAID || types.TerminalOrderState(status.Status) {
				return false
			}
			return true
		})
}

// lookupPayment absorbs replication lag between the order-creation write
// and this read with a short bounded retry.
func (r *Reconciler) lookupPayment(ctx context.Context, orderID string) (*models.Payment, error) {
	return utils.Retry(ctx, r.LookupPolicy,
		func(ctx context.Context) (*models.Payment, error) {
			payment, found, err := r.Store.PaymentByOrderID(ctx, orderID)
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, ErrPaymentNotFound
			}
			return payment, nil
		},
		func(_ *models.Payment, err error) bool {
			return errors.Is(err, ErrPaymentNotFound)
		})
}

func (r *Reconciler) computeEventAccess(ctx context.Context, payment *models.Payment) (types.EventAccess, error) {
	access := types.EventAccess{}
	if payment.PassType == types.PASS_FULL {
		access.Tech = true
		access.NonTech = true
		access.FullAccess = true
		access.ProShowDays = payment.Days
		return access, nil
	}
	if payment.PassType == types.PASS_PRO_SHOW {
		access.ProShowDays = payment.Days
		return access, nil
	}
	if len(payment.Events) == 0 {
		return access, nil
	}
	events, err := r.Store.EventsByIDs(ctx, payment.Events)
	if err != nil {
		return access, err
	}
	for _, ev := range events {
		switch ev.Category {
		case types.EVENT_TECHNICAL:
			access.Tech = true
		case types.EVENT_NON_TECHNICAL:
			access.NonTech = true
		}
	}
	return access, nil
}

func buildQRPayload(identifier string, user *models.User, payment *models.Payment, team *models.Team) types.QRPayload {
	if team != nil {
		members := make([]types.QRMember, 0, len(team.Members))
		for _, m := range team.Members {
			members = append(members, types.QRMember{Name: m.Name, Leader: m.Leader})
		}
		if len(members) > 0 {
			return types.NewGroupQRPayload(types.GroupQRPayload{
				PassID:   identifier,
				PassType: payment.PassType,
				TeamName: team.Name,
				Members:  members,
				Events:   payment.Events,
				Days:     payment.Days,
			})
		}
	}
	return types.NewIndividualQRPayload(types.IndividualQRPayload{
		PassID:   identifier,
		Name:     user.Name,
		PassType: payment.PassType,
		Events:   payment.Events,
		Days:     payment.Days,
	})
}

func snapshotTeam(team *models.Team) *types.TeamSnapshot {
	snapshot := &types.TeamSnapshot{
		Name:        team.Name,
		MemberCount: len(team.Members),
	}
	for _, m := range team.Members {
		snapshot.Members = append(snapshot.Members, types.SnapshotMember{
			Name:      m.Name,
			Phone:     m.Phone,
			Leader:    m.Leader,
			CheckedIn: false,
		})
	}
	return snapshot
}
