// Package withdraw drives a withdrawal intent from request to completion.
//
//	pending -> taxPaid -> redirected   (confirm route, ledger untouched)
//	                   -> completed    (service route, ledger debited)
//	pending|taxPaid -> rejected | expired
package withdraw

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"task_wallet/internal/apperr"
	"task_wallet/internal/domain"
	"task_wallet/internal/ledger"
	"task_wallet/internal/notify"
	"task_wallet/internal/store"
	"task_wallet/internal/utils"
)

var schemeRe = regexp.MustCompile(`(?i)^https?://`)

// PIN rules for the verify and service steps.
const (
	verifyPinRule  = "required,number,len=4"
	servicePinRule = "required,number,len=5"
)

// Config holds the fee rates and intent lifetime.
type Config struct {
	TaxRate     decimal.Decimal
	ServiceRate decimal.Decimal
	IntentTTL   time.Duration // 0 disables expiry
	LockTTL     time.Duration
}

// DefaultConfig returns 5% tax, 30% service and a 72h intent lifetime.
func DefaultConfig() Config {
	return Config{
		TaxRate:     decimal.RequireFromString("0.05"),
		ServiceRate: decimal.RequireFromString("0.30"),
		IntentTTL:   72 * time.Hour,
		LockTTL:     10 * time.Second,
	}
}

// Service is the withdrawal state machine.
type Service struct {
	store  store.Store
	ledger *ledger.Service
	fanout *notify.Fanout
	locker *utils.Locker
	cfg    Config
	now    func() time.Time
}

// New wires the state machine.
func New(st store.Store, l *ledger.Service, fanout *notify.Fanout, locker *utils.Locker, cfg Config) *Service {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	return &Service{store: st, ledger: l, fanout: fanout, locker: locker, cfg: cfg, now: time.Now}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// RequestInput is what a worker submits to start a withdrawal.
type RequestInput struct {
	Amount  decimal.Decimal `json:"amount"`
	Crypto  string          `json:"crypto" binding:"required,oneof=BTC ETH XRP btc eth xrp"`
	Address string          `json:"address" binding:"required"`
}

// validate checks the binding rules again for callers that skip the HTTP
// layer, then normalises the currency. Decimal amounts have no tag rules.
func (in *RequestInput) validate() error {
	in.Crypto = strings.TrimSpace(in.Crypto)
	in.Address = strings.TrimSpace(in.Address)
	if err := utils.ValidateStruct(in); err != nil {
		return err
	}
	in.Crypto = strings.ToUpper(in.Crypto)
	switch {
	case !in.Amount.IsPositive():
		return apperr.InvalidInput("amount", "Amount must be positive")
	case !in.Amount.Equal(in.Amount.Round(2)):
		return apperr.InvalidInput("amount", "Amount must have at most 2 decimals")
	}
	return nil
}

// Request creates a pending intent after the balance and age gates pass.
// Requests of one user are serialized, and only one active intent may
// exist at a time.
func (s *Service) Request(ctx context.Context, userID uint, in RequestInput) (*domain.WithdrawalIntent, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	unlock, err := s.locker.TryLock(ctx, "withdraw:lock:"+strconv.FormatUint(uint64(userID), 10), s.cfg.LockTTL)
	if errors.Is(err, utils.ErrLocked) {
		return nil, apperr.ErrWithdrawalLocked
	} else if err != nil {
		return nil, apperr.Internal("acquire withdrawal lock", err)
	}
	defer unlock()

	user, err := s.loadUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.CheckWithdrawable(user, in.Amount, s.now()); err != nil {
		return nil, err
	}

	latest, err := s.store.Withdrawals().Latest(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("load latest withdrawal", err)
	}
	if latest != nil && latest.Status.Active() {
		return nil, apperr.ErrIntentActive.WithDetail("withdrawal_id", latest.ID)
	}

	tax, service := Fees(in.Amount, s.cfg.TaxRate, s.cfg.ServiceRate)
	intent := &domain.WithdrawalIntent{
		UserID:        userID,
		Amount:        in.Amount,
		Crypto:        in.Crypto,
		Address:       in.Address,
		TaxAmount:     tax,
		ServiceAmount: service,
		Status:        domain.StatusPending,
	}
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.Withdrawals().Create(ctx, intent); err != nil {
			return apperr.Internal("create withdrawal", err)
		}
		return appendEvent(ctx, tx, &domain.Event{
			ToUserID: userID,
			Kind:     domain.KindWithdrawRequested,
			Amount:   domain.Money(in.Amount),
		})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":       userID,
		"withdrawal_id": intent.ID,
		"amount":        in.Amount.StringFixed(2),
		"crypto":        in.Crypto,
		"status":        intent.Status,
	}).Info("Withdrawal requested")
	s.fanout.Admins(ctx, nil, "Withdrawal Requested",
		fmt.Sprintf("User %s requested $%s. Balance: $%s.", user.Email, in.Amount.StringFixed(2), user.WalletBalance.StringFixed(2)))

	return intent, nil
}

// VerifyView is shown before the 4 digit PIN step.
type VerifyView struct {
	WithdrawalID uint                    `json:"withdrawal_id"`
	Amount       decimal.Decimal         `json:"amount"`
	Crypto       string                  `json:"crypto"`
	Address      string                  `json:"address"`
	Balance      decimal.Decimal         `json:"balance"`
	Status       domain.WithdrawalStatus `json:"status"`
}

// VerifyDetails returns the latest intent with the current balance.
func (s *Service) VerifyDetails(ctx context.Context, userID uint) (*VerifyView, error) {
	w, err := s.latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	return &VerifyView{
		WithdrawalID: w.ID,
		Amount:       w.Amount,
		Crypto:       w.Crypto,
		Address:      w.Address,
		Balance:      user.WalletBalance,
		Status:       w.Status,
	}, nil
}

// Verify checks the 4 digit PIN and picks the next route: confirm when the
// admin configured at least one withdraw URL, service otherwise.
func (s *Service) Verify(ctx context.Context, userID uint, pin string) (string, error) {
	if err := utils.ValidateVar("pin", pin, verifyPinRule); err != nil {
		return "", err
	}
	w, err := s.latest(ctx, userID)
	if err != nil {
		return "", err
	}
	if !w.Status.CanTransition(domain.StatusTaxPaid) {
		return "", illegal(w, domain.StatusTaxPaid)
	}
	rec, err := s.pins(ctx, userID)
	if err != nil {
		return "", err
	}
	if rec == nil || !pinMatches(rec.VerifyPin, pin) {
		logrus.WithFields(logrus.Fields{"user_id": userID, "withdrawal_id": w.ID}).Warn("Invalid verify PIN")
		return "", apperr.ErrInvalidPin
	}

	route := domain.RouteService
	if rec.HasURLs() {
		route = domain.RouteConfirm
	}
	now := s.now()
	from := w.Status
	w.Status, w.Route, w.VerifiedAt = domain.StatusTaxPaid, route, &now
	if err := s.transition(ctx, s.store, w, from); err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":       userID,
		"withdrawal_id": w.ID,
		"status":        w.Status,
		"route":         route,
	}).Info("Withdrawal PIN verified")
	return route, nil
}

// Confirm hands out the first approved withdraw URL. It never touches the
// ledger; asking again after a redirect returns the same URL.
func (s *Service) Confirm(ctx context.Context, userID uint) (string, error) {
	w, err := s.latest(ctx, userID)
	if err != nil {
		return "", err
	}
	if w.Route != domain.RouteConfirm || !w.Status.CanTransition(domain.StatusRedirected) {
		return "", illegal(w, domain.StatusRedirected)
	}
	rec, err := s.pins(ctx, userID)
	if err != nil {
		return "", err
	}
	raw := firstURL(rec)
	if raw == "" {
		return "", apperr.ErrNoApprovedURL
	}
	if w.Status != domain.StatusRedirected {
		from := w.Status
		w.Status = domain.StatusRedirected
		if err := s.transition(ctx, s.store, w, from); err != nil {
			return "", err
		}
		logrus.WithFields(logrus.Fields{
			"user_id":       userID,
			"withdrawal_id": w.ID,
			"status":        w.Status,
		}).Info("Withdrawal redirected")
	}
	return normalizeURL(raw), nil
}

// ServiceView is shown before the 5 digit service PIN step.
type ServiceView struct {
	WithdrawalID  uint                    `json:"withdrawal_id"`
	Amount        decimal.Decimal         `json:"amount"`
	ServiceAmount decimal.Decimal         `json:"service_amount"`
	Status        domain.WithdrawalStatus `json:"status"`
}

// ServiceDetails returns the amount and service charge of the latest intent.
func (s *Service) ServiceDetails(ctx context.Context, userID uint) (*ServiceView, error) {
	w, err := s.latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ServiceView{WithdrawalID: w.ID, Amount: w.Amount, ServiceAmount: w.ServiceAmount, Status: w.Status}, nil
}

// Completion is the result of a finished service step.
type Completion struct {
	WithdrawalID uint            `json:"withdrawal_id"`
	Amount       decimal.Decimal `json:"amount"`
	Balance      decimal.Decimal `json:"balance"`
}

// Service checks the 5 digit PIN and completes the withdrawal. Marking the
// intent completed, consuming it, debiting the balance and logging the
// event happen in one transaction.
func (s *Service) Service(ctx context.Context, userID uint, pin string) (*Completion, error) {
	if err := utils.ValidateVar("pin", pin, servicePinRule); err != nil {
		return nil, err
	}
	w, err := s.latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w.Route != domain.RouteService || !w.Status.CanTransition(domain.StatusCompleted) {
		return nil, illegal(w, domain.StatusCompleted)
	}
	rec, err := s.pins(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil || !pinMatches(rec.ServicePin, pin) {
		logrus.WithFields(logrus.Fields{"user_id": userID, "withdrawal_id": w.ID}).Warn("Invalid service PIN")
		return nil, apperr.ErrInvalidServicePin
	}

	var (
		user    *domain.User
		balance decimal.Decimal
	)
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		now := s.now()
		from := w.Status
		w.Status, w.CompletedAt = domain.StatusCompleted, &now
		if err := s.transition(ctx, tx, w, from); err != nil {
			return err
		}
		if err := tx.Withdrawals().Delete(ctx, w.ID); err != nil {
			return apperr.Internal("consume withdrawal", err)
		}
		var err error
		ref := "withdrawal:" + strconv.FormatUint(uint64(w.ID), 10)
		if balance, err = s.ledger.Debit(ctx, tx, userID, w.Amount, ref); err != nil {
			return err
		}
		if user, err = s.loadUser(ctx, tx, userID); err != nil {
			return err
		}
		return appendEvent(ctx, tx, &domain.Event{
			ToUserID: userID,
			Kind:     domain.KindWithdrawCompleted,
			Amount:   domain.Money(w.Amount),
		})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":       userID,
		"withdrawal_id": w.ID,
		"amount":        w.Amount.StringFixed(2),
		"status":        w.Status,
	}).Info("Withdrawal completed")
	s.fanout.User(ctx, user, "Withdrawal Completed",
		fmt.Sprintf("Your withdrawal of $%s has been processed.", w.Amount.StringFixed(2)))

	return &Completion{WithdrawalID: w.ID, Amount: w.Amount, Balance: balance}, nil
}

// Reject is the admin path out of pending or taxPaid. The balance is left
// alone since nothing has been debited yet.
func (s *Service) Reject(ctx context.Context, withdrawalID uint, reason string) (*domain.WithdrawalIntent, error) {
	w, err := s.store.Withdrawals().Get(ctx, withdrawalID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrWithdrawalNotFound
	} else if err != nil {
		return nil, apperr.Internal("load withdrawal", err)
	}
	if !w.Status.CanTransition(domain.StatusRejected) {
		return nil, illegal(w, domain.StatusRejected)
	}

	reason = strings.TrimSpace(reason)
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		from := w.Status
		w.Status, w.RejectReason = domain.StatusRejected, reason
		if err := s.transition(ctx, tx, w, from); err != nil {
			return err
		}
		return appendEvent(ctx, tx, &domain.Event{
			ToUserID: w.UserID,
			Kind:     domain.KindWithdrawRejected,
			Amount:   domain.Money(w.Amount),
			Body:     reason,
		})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":       w.UserID,
		"withdrawal_id": w.ID,
		"status":        w.Status,
		"reason":        reason,
	}).Info("Withdrawal rejected")
	if user, err := s.store.Users().Get(ctx, w.UserID); err == nil {
		body := fmt.Sprintf("Your withdrawal of $%s was rejected.", w.Amount.StringFixed(2))
		if reason != "" {
			body += " Reason: " + reason
		}
		s.fanout.User(ctx, user, "Withdrawal Rejected", body)
	}
	return w, nil
}

// ExpireStale moves every active intent older than the configured lifetime
// to expired and returns how many it moved. Intents that change state
// concurrently are skipped.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	if s.cfg.IntentTTL <= 0 {
		return 0, nil
	}
	stale, err := s.store.Withdrawals().ListStale(ctx, s.now().Add(-s.cfg.IntentTTL))
	if err != nil {
		return 0, apperr.Internal("list stale withdrawals", err)
	}
	expired := 0
	for i := range stale {
		w := &stale[i]
		err := s.store.Transaction(ctx, func(tx store.Store) error {
			from := w.Status
			w.Status = domain.StatusExpired
			if err := s.transition(ctx, tx, w, from); err != nil {
				return err
			}
			return appendEvent(ctx, tx, &domain.Event{
				ToUserID: w.UserID,
				Kind:     domain.KindWithdrawExpired,
				Amount:   domain.Money(w.Amount),
			})
		})
		if errors.Is(err, apperr.ErrIllegalTransition) {
			continue
		} else if err != nil {
			return expired, err
		}
		expired++
		logrus.WithFields(logrus.Fields{
			"user_id":       w.UserID,
			"withdrawal_id": w.ID,
			"status":        w.Status,
		}).Info("Withdrawal expired")
	}
	return expired, nil
}

// latest resolves the intent a verification step applies to.
func (s *Service) latest(ctx context.Context, userID uint) (*domain.WithdrawalIntent, error) {
	w, err := s.store.Withdrawals().Latest(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrWithdrawalNotFound
	} else if err != nil {
		return nil, apperr.Internal("load withdrawal", err)
	}
	return w, nil
}

func (s *Service) loadUser(ctx context.Context, st store.Store, userID uint) (*domain.User, error) {
	u, err := st.Users().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	} else if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	return u, nil
}

// pins returns the user's pin record, or nil when none was configured.
func (s *Service) pins(ctx context.Context, userID uint) (*domain.PinRecord, error) {
	rec, err := s.store.Pins().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, apperr.Internal("load pins", err)
	}
	return rec, nil
}

// transition persists w, which already carries its next status, guarded on
// from. Losing the race to another request is an illegal transition.
func (s *Service) transition(ctx context.Context, st store.Store, w *domain.WithdrawalIntent, from domain.WithdrawalStatus) error {
	if !from.CanTransition(w.Status) {
		return illegal(&domain.WithdrawalIntent{ID: w.ID, Status: from}, w.Status)
	}
	err := st.Withdrawals().Transition(ctx, w, from)
	if errors.Is(err, store.ErrConditionFailed) {
		return apperr.ErrIllegalTransition.WithDetail("withdrawal_id", w.ID)
	} else if err != nil {
		return apperr.Internal("transition withdrawal", err)
	}
	return nil
}

func illegal(w *domain.WithdrawalIntent, next domain.WithdrawalStatus) error {
	return apperr.ErrIllegalTransition.
		WithDetail("withdrawal_id", w.ID).
		WithDetail("status", w.Status).
		WithDetail("next", next)
}

func appendEvent(ctx context.Context, tx store.Store, ev *domain.Event) error {
	if err := tx.Events().Append(ctx, ev); err != nil {
		return apperr.Internal("append "+string(ev.Kind), err)
	}
	return nil
}

func pinMatches(stored, given string) bool {
	return stored != "" && subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func firstURL(rec *domain.PinRecord) string {
	if rec == nil {
		return ""
	}
	for _, u := range rec.WithdrawURLs {
		if u = strings.TrimSpace(u); u != "" {
			return u
		}
	}
	return ""
}
