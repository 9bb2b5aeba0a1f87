package db

import (
	"context"
	"errors"

	"frs/src/common"
	"frs/src/models"
	"frs/src/types"

	"gorm.io/gorm"
)

// Store adapts a gorm handle to the reconciler's document-store
// contract. Transactions run at the database's serializable-enough
// default; the unique index on pass order ids backs the race where two
// transactions both pass the existence check.
type Store struct {
	db *gorm.DB
}

func NewStore(d *gorm.DB) *Store {
	return &Store{db: d}
}

func GetStore() *Store {
	return NewStore(GetDb())
}

func (s *Store) RunTransaction(ctx context.Context, fn func(tx common.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&storeTx{tx: tx})
	})
}

func (s *Store) PaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, bool, error) {
	return paymentByOrderID(s.db.WithContext(ctx), orderID)
}

func (s *Store) EventsByIDs(ctx context.Context, ids []uint) ([]models.Event, error) {
	var events []models.Event
	if len(ids) == 0 {
		return events, nil
	}
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id IN (?)", ids).
		Find(&events).
		Error
	return events, err
}

func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(payment).Error
	})
}

func (s *Store) TeamByID(ctx context.Context, id uint) (*models.Team, bool, error) {
	return teamByID(s.db.WithContext(ctx), id)
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, bool, error) {
	return userByID(s.db.WithContext(ctx), id)
}

func (s *Store) PassesByUserID(ctx context.Context, userID uint) ([]models.Pass, error) {
	var passes []models.Pass
	err := s.db.WithContext(ctx).
		Model(&models.Pass{}).
		Where(&models.Pass{UserID: userID}).
		Order("created_at DESC").
		Find(&passes).
		Error
	return passes, err
}

func (s *Store) PassByID(ctx context.Context, id uint) (*models.Pass, bool, error) {
	var pass models.Pass
	err := s.db.WithContext(ctx).
		Model(&models.Pass{}).
		Where(&models.Pass{ID: id}).
		First(&pass).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &pass, true, nil
}

type storeTx struct {
	tx *gorm.DB
}

func (t *storeTx) PaymentByOrderID(orderID string) (*models.Payment, bool, error) {
	return paymentByOrderID(t.tx, orderID)
}

func (t *storeTx) MarkPaymentSuccess(paymentID uint) error {
	return t.tx.
		Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Update("status", types.PAYMENT_SUCCESS).
		Error
}

func (t *storeTx) PassByOrderID(orderID string) (*models.Pass, bool, error) {
	var pass models.Pass
	err := t.tx.
		Model(&models.Pass{}).
		Where(&models.Pass{OrderID: orderID}).
		First(&pass).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &pass, true, nil
}

func (t *storeTx) UserByID(id uint) (*models.User, bool, error) {
	return userByID(t.tx, id)
}

func (t *storeTx) TeamByID(id uint) (*models.Team, bool, error) {
	return teamByID(t.tx, id)
}

func (t *storeTx) CreatePass(pass *models.Pass) error {
	return t.tx.Create(pass).Error
}

func (t *storeTx) LinkTeamPass(teamID uint, passID uint) error {
	return t.tx.
		Model(&models.Team{}).
		Where("id = ?", teamID).
		Updates(&models.Team{PassID: &passID, PaymentStatus: types.PAYMENT_SUCCESS}).
		Error
}

func paymentByOrderID(tx *gorm.DB, orderID string) (*models.Payment, bool, error) {
	var payment models.Payment
	err := tx.
		Model(&models.Payment{}).
		Where(&models.Payment{OrderID: orderID}).
		First(&payment).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &payment, true, nil
}

func userByID(tx *gorm.DB, id uint) (*models.User, bool, error) {
	var user models.User
	err := tx.
		Model(&models.User{}).
		Where(&models.User{ID: id}).
		First(&user).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

func teamByID(tx *gorm.DB, id uint) (*models.Team, bool, error) {
	var team models.Team
	err := tx.
		Model(&models.Team{}).
		Where(&models.Team{ID: id}).
		Preload("Members").
		First(&team).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &team, true, nil
}
