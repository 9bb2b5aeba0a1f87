package common

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"frs/src/lib"
	"frs/src/models"
	"frs/src/types"
	"frs/src/utils"

	"github.com/stretchr/testify/assert"
)

// memStore models the document store for reconciliation tests. Its
// transactions are globally serialized by a mutex, which is exactly the
// isolation the real store's transaction primitive provides for the
// read-then-conditionally-create race.
type memStore struct {
	mu            sync.Mutex
	payments      map[string]*models.Payment
	passes        map[string]*models.Pass
	users         map[uint]*models.User
	teams         map[uint]*models.Team
	events        map[uint]models.Event
	nextPassID    uint
	paymentReads  int32
	teamLinkCalls map[uint]int
}

func newMemStore() *memStore {
	return &memStore{
		payments:      make(map[string]*models.Payment),
		passes:        make(map[string]*models.Pass),
		users:         make(map[uint]*models.User),
		teams:         make(map[uint]*models.Team),
		events:        make(map[uint]models.Event),
		teamLinkCalls: make(map[uint]int),
	}
}

func (s *memStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{s: s})
}

func (s *memStore) PaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	atomic.AddInt32(&s.paymentReads, 1)
	p, ok := s.payments[orderID]
	return p, ok, nil
}

func (s *memStore) EventsByIDs(ctx context.Context, ids []uint) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, id := range ids {
		if ev, ok := s.events[id]; ok {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *memStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[payment.OrderID] = payment
	return nil
}

func (s *memStore) TeamByID(ctx context.Context, id uint) (*models.Team, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	return t, ok, nil
}

func (s *memStore) UserByID(ctx context.Context, id uint) (*models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *memStore) PassesByUserID(ctx context.Context, userID uint) ([]models.Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Pass
	for _, p := range s.passes {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memStore) PassByID(ctx context.Context, id uint) (*models.Pass, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.passes {
		if p.ID == id {
			return p, true, nil
		}
	}
	return nil, false, nil
}

type memTx struct {
	s *memStore
}

func (t *memTx) PaymentByOrderID(orderID string) (*models.Payment, bool, error) {
	p, ok := t.s.payments[orderID]
	return p, ok, nil
}

func (t *memTx) MarkPaymentSuccess(paymentID uint) error {
	for _, p := range t.s.payments {
		if p.ID == paymentID {
			p.Status = types.PAYMENT_SUCCESS
			return nil
		}
	}
	return errors.New("payment not found")
}

func (t *memTx) PassByOrderID(orderID string) (*models.Pass, bool, error) {
	p, ok := t.s.passes[orderID]
	return p, ok, nil
}

func (t *memTx) UserByID(id uint) (*models.User, bool, error) {
	u, ok := t.s.users[id]
	return u, ok, nil
}

func (t *memTx) TeamByID(id uint) (*models.Team, bool, error) {
	tm, ok := t.s.teams[id]
	return tm, ok, nil
}

func (t *memTx) CreatePass(pass *models.Pass) error {
	if _, exists := t.s.passes[pass.OrderID]; exists {
		return errors.New("duplicate pass for order")
	}
	t.s.nextPassID++
	pass.ID = t.s.nextPassID
	t.s.passes[pass.OrderID] = pass
	return nil
}

func (t *memTx) LinkTeamPass(teamID uint, passID uint) error {
	team, ok := t.s.teams[teamID]
	if !ok {
		return errors.New("team not found")
	}
	team.PassID = &passID
	team.PaymentStatus = types.PAYMENT_SUCCESS
	t.s.teamLinkCalls[teamID]++
	return nil
}

type fakeGateway struct {
	mu       sync.Mutex
	statuses []string
	calls    int
	err      error
}

func (g *fakeGateway) OrderStatus(ctx context.Context, orderID string) (*lib.OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	idx := g.calls - 1
	if idx >= len(g.statuses) {
		idx = len(g.statuses) - 1
	}
	return &lib.OrderStatus{OrderID: orderID, Status: g.statuses[idx]}, nil
}

func (g *fakeGateway) CreateOrder(ctx context.Context, in *lib.CreateOrderInput) (*lib.GatewayOrder, error) {
	return nil, errors.New("not implemented")
}

func testReconciler(store Store, gw lib.PaymentGateway, notified *int32) *Reconciler {
	rec := NewReconciler(store, gw, bytes.Repeat([]byte{0xAB}, 32))
	rec.PollPolicy.Delay = 0
	rec.LookupPolicy.Delay = 0
	rec.Notify = func(pass *models.Pass, user *models.User) {
		atomic.AddInt32(notified, 1)
	}
	return rec
}

func seedIndividual(store *memStore) {
	store.users[1] = &models.User{ID: 1, UID: "u-1", Name: "Ada", Email: "ada@example.com"}
	store.events[1] = models.Event{ID: 1, Name: "Robo Race", Category: types.EVENT_TECHNICAL}
	store.events[2] = models.Event{ID: 2, Name: "Open Mic", Category: types.EVENT_NON_TECHNICAL}
	store.payments["order_abc"] = &models.Payment{
		ID:       1,
		OrderID:  "order_abc",
		UserID:   1,
		Amount:   500,
		PassType: types.PASS_DAY,
		Status:   types.PAYMENT_PENDING,
		Events:   types.UintList{1, 2},
		Days:     types.UintList{1},
	}
}

func seedGroup(store *memStore) {
	store.users[2] = &models.User{ID: 2, UID: "u-2", Name: "Grace", Email: "grace@example.com"}
	teamID := uint(7)
	store.teams[teamID] = &models.Team{
		ID:          teamID,
		Name:        "Bitwise",
		LeaderID:    2,
		MemberCount: 4,
		Members: []*models.TeamMember{
			{ID: 1, TeamID: teamID, Name: "Grace", Leader: true},
			{ID: 2, TeamID: teamID, Name: "Linus"},
			{ID: 3, TeamID: teamID, Name: "Barbara"},
			{ID: 4, TeamID: teamID, Name: "Edsger"},
		},
	}
	store.payments["order_team_1"] = &models.Payment{
		ID:       2,
		OrderID:  "order_team_1",
		UserID:   2,
		Amount:   1000,
		PassType: types.PASS_GROUP,
		Status:   types.PAYMENT_PENDING,
		TeamID:   &teamID,
	}
}

func TestReconcileIssuesExactlyOnePass(t *testing.T) {
	store := newMemStore()
	seedIndividual(store)
	gw := &fakeGateway{statuses: []string{types.ORDER_PAID}}
	var notified int32
	rec := testReconciler(store, gw, &notified)

	first, err := rec.Reconcile(context.Background(), "order_abc")
	assert.NoError(t, err)
	assert.True(t, first.Created)
	assert.NotZero(t, first.PassID)
	assert.NotEmpty(t, first.QRCode)

	second, err := rec.Reconcile(context.Background(), "order_abc")
	assert.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.PassID, second.PassID)
	assert.Equal(t, first.QRCode, second.QRCode)

	assert.Len(t, store.passes, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&notified))
	assert.Equal(t, types.PAYMENT_SUCCESS, store.payments["order_abc"].Status)
}

func TestReconcileComputesEventAccess(t *testing.T) {
	store := newMemStore()
	seedIndividual(store)
	gw := &fakeGateway{statuses: []string{types.ORDER_PAID}}
	var notified int32
	rec := testReconciler(store, gw, &notified)

	result, err := rec.Reconcile(context.Background(), "order_abc")
	assert.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, 1, gw.calls)

	pass := store.passes["order_abc"]
	assert.True(t, pass.EventAccess.Tech)
	assert.True(t, pass.EventAccess.NonTech)
	assert.False(t, pass.EventAccess.FullAccess)
	assert.Nil(t, pass.TeamSnapshot)

	var payload types.QRPayload
	assert.NoError(t, utils.DecryptPayload(bytes.Repeat([]byte{0xAB}, 32), result.QRCode, &payload))
	assert.Equal(t, types.QR_INDIVIDUAL, payload.Kind)
	assert.Equal(t, "Ada", payload.Individual.Name)
	assert.Equal(t, types.PASS_DAY, payload.Individual.PassType)
}

func TestReconcileConcurrentGroupCalls(t *testing.T) {
	store := newMemStore()
	seedGroup(store)
	gw := &fakeGateway{statuses: []string{types.ORDER_PAID}}
	var notified int32
	rec := testReconciler(store, gw, &notified)

	var wg sync.WaitGroup
	results := make([]*ReconcileResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = rec.Reconcile(context.Background(), "order_team_1")
		}(i)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, results[0].PassID, results[1].PassID)
	assert.Equal(t, results[0].QRCode, results[1].QRCode)
	assert.NotEqual(t, results[0].Created, results[1].Created)

	assert.Len(t, store.passes, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&notified))

	team := store.teams[7]
	assert.Equal(t, 1, store.teamLinkCalls[7])
	assert.Equal(t, types.PAYMENT_SUCCESS, team.PaymentStatus)
	assert.NotNil(t, team.PassID)
	assert.Equal(t, results[0].PassID, *team.PassID)

	pass := store.passes["order_team_1"]
	assert.NotNil(t, pass.TeamSnapshot)
	assert.Equal(t, "Bitwise", pass.TeamSnapshot.Name)
	assert.Equal(t, 4, pass.TeamSnapshot.MemberCount)
	for _, member := range pass.TeamSnapshot.Members {
		assert.False(t, member.CheckedIn)
	}
}

func TestReconcileGroupQRPayloadCarriesRoster(t *testing.T) {
	store := newMemStore()
	seedGroup(store)
	gw := &fakeGateway{statuses: []string{types.ORDER_PAID}}
	var notified int32
	rec := testReconciler(store, gw, &notified)

	result, err := rec.Reconcile(context.Background(), "order_team_1")
	assert.NoError(t, err)

	var payload types.QRPayload
	assert.NoError(t, utils.DecryptPayload(bytes.Repeat([]byte{0xAB}, 32), result.QRCode, &payload))
	assert.Equal(t, types.QR_GROUP, payload.Kind)
	assert.Equal(t, "Bitwise", payload.Group.TeamName)
	assert.Len(t, payload.Group.Members, 4)
	leaders := 0
	for _, m := range payload.Group.Members {
		if m.Leader {
			leaders++
		}
	}
	assert.Equal(t, 1, leaders)
}

func TestReconcileNotPaidAfterPollBudget(t *testing.T) {
	store := newMemStore()
	seedIndividual(store)
	gw := &fakeGateway{statuses: []string{types.ORDER_ACTIVE}}
	var notified int32
	rec := testReconciler(store, gw, &notified)

	result, err := rec.Reconcile(context.Background(), "order_abc")
	assert.Nil(t, result)
	var notPaid *NotPaidError
	assert.ErrorAs(t, err, &notPaid)
	assert.Equal(t, types.ORDER_ACTIVE, notPaid.Status)
	assert.Equal(t, 5, gw.calls)

	assert.Empty(t, store.passes)
	assert.Equal(t, types.PAYMENT_PENDING, store.payments["order_abc"].Status)
	assert.Zero(t, atomic.LoadInt32(&notified))
}

func TestReconcileTerminalStatusShortCircuits(t *testing.T) {
	store := newMemStore()
	seedIndividual(store)
	gw := &fakeGateway{statuses: []string{types.ORDER_EXPIRED}}
	var notified int32
	rec := testReconciler(store, gw, &notified)

	_, err := rec.Reconcile(context.Background(), "order_abc")
	var notPaid *NotPaidError
	assert.ErrorAs(t, err, &notPaid)
	assert.Equal(t, types.ORDER_EXPIRED, notPaid.Status)
	assert.Equal(t, 1, gw.calls)
}

func TestReconcilePaidOnLaterPollAttempt(t *testing.T) {
	store := newMemStore()
	seedIndividual(store)
	gw := &fakeGateway{statuses: []string{types.ORDER_ACTIVE, types.ORDER_ACTIVE, types.ORDER_PAID}}
	var notified int32
	rec := testReconciler(store, gw, &notified)

	result, err := rec.Reconcile(context.Background(), "order_abc")
	assert.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, 3, gw.calls)
}

func TestReconcileGatewayFailureIsHard(t *testing.T) {
	store := newMemStore()
	seedIndividual(store)
	gw := &fakeGateway{err: errors.New("order status fetch failed with status 503")}
	var notified int32
	rec := testReconciler(store, gw, &notified)

	_, err := rec.Reconcile(context.Background(), "order_abc")
	var gatewayErr *GatewayError
	assert.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, 1, gw.calls)
	assert.Empty(t, store.passes)
}

func TestReconcileOrphanOrder(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{statuses: []string{types.ORDER_PAID}}
	var notified int32
	rec := testReconciler(store, gw, &notified)

	_, err := rec.Reconcile(context.Background(), "order_ghost")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
	assert.Equal(t, int32(3), atomic.LoadInt32(&store.paymentReads))
	assert.Empty(t, store.passes)
	assert.Zero(t, atomic.LoadInt32(&notified))
}

func TestReconcileMissingTeamFallsBackToIndividualPayload(t *testing.T) {
	store := newMemStore()
	seedGroup(store)
	delete(store.teams, 7)
	gw := &fakeGateway{statuses: []string{types.ORDER_PAID}}
	var notified int32
	rec := testReconciler(store, gw, &notified)

	result, err := rec.Reconcile(context.Background(), "order_team_1")
	assert.NoError(t, err)
	assert.True(t, result.Created)

	pass := store.passes["order_team_1"]
	assert.Nil(t, pass.TeamSnapshot)

	var payload types.QRPayload
	assert.NoError(t, utils.DecryptPayload(bytes.Repeat([]byte{0xAB}, 32), result.QRCode, &payload))
	assert.Equal(t, types.QR_INDIVIDUAL, payload.Kind)
	assert.Equal(t, "Grace", payload.Individual.Name)
}
