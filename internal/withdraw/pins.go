package withdraw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"task_wallet/internal/apperr"
	"task_wallet/internal/domain"
	"task_wallet/internal/store"
	"task_wallet/internal/utils"
)

// PinsInput sets either or both PINs of a user.
type PinsInput struct {
	Email string `json:"email" binding:"required,email"`
	Pin4  string `json:"pin4" binding:"omitempty,number,len=4"`
	Pin5  string `json:"pin5" binding:"omitempty,number,len=5"`
}

// SetPins activates the verify and/or service PIN for the user behind
// email. The user receives the new PINs in their inbox and by e-mail.
func (s *Service) SetPins(ctx context.Context, in PinsInput) ([]string, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Pin4, in.Pin5 = strings.TrimSpace(in.Pin4), strings.TrimSpace(in.Pin5)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.Pin4 == "" && in.Pin5 == "" {
		return nil, apperr.InvalidInput("pin4", "Provide pin4 or pin5")
	}

	user, err := s.userByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}

	var updates []string
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		rec, err := loadOrNewPins(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if in.Pin4 != "" {
			rec.VerifyPin = in.Pin4
			updates = append(updates, "verifyPin:"+in.Pin4)
		}
		if in.Pin5 != "" {
			rec.ServicePin = in.Pin5
			updates = append(updates, "servicePin:"+in.Pin5)
		}
		if err := tx.Pins().Save(ctx, rec); err != nil {
			return apperr.Internal("save pins", err)
		}
		return appendEvent(ctx, tx, &domain.Event{
			ToUserID: user.ID,
			Kind:     domain.KindPinsActivated,
			Body:     strings.Join(updates, ","),
		})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"verify_pin":  in.Pin4 != "",
		"service_pin": in.Pin5 != "",
	}).Info("Withdrawal PINs activated")

	lines := []string{fmt.Sprintf("Hello %s,", user.FullName()), "Your PINs have been updated:"}
	if in.Pin4 != "" {
		lines = append(lines, "Verify PIN: "+in.Pin4)
	}
	if in.Pin5 != "" {
		lines = append(lines, "Service PIN: "+in.Pin5)
	}
	s.fanout.User(ctx, user, "Your Withdrawal PINs Have Been Updated", strings.Join(lines, "\n"))

	return updates, nil
}

// URLs returns the user's withdraw URL slots, padded with blanks.
func (s *Service) URLs(ctx context.Context, email string) ([]string, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	rec, err := s.pins(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	slots := make([]string, domain.MaxWithdrawURLs)
	if rec != nil {
		copy(slots, rec.WithdrawURLs)
	}
	return slots, nil
}

// SetURLs replaces the user's withdraw URLs. Blank entries are dropped and
// at most MaxWithdrawURLs remain. An empty list routes future withdrawals
// through the service PIN.
func (s *Service) SetURLs(ctx context.Context, email string, urls []string) ([]string, error) {
	clean := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}
	if len(clean) > domain.MaxWithdrawURLs {
		return nil, apperr.InvalidInput("urls", fmt.Sprintf("At most %d URLs", domain.MaxWithdrawURLs))
	}

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		rec, err := loadOrNewPins(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		rec.WithdrawURLs = clean
		if err := tx.Pins().Save(ctx, rec); err != nil {
			return apperr.Internal("save withdraw urls", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "urls": len(clean)}).Info("Withdraw URLs updated")
	s.fanout.Admins(ctx, nil, "Withdraw URLs Updated",
		fmt.Sprintf("Withdraw URLs for %s have been set:\n\n%s", user.Email, strings.Join(clean, "\n")))
	return clean, nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperr.InvalidInput("email", "Email is required")
	}
	u, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	} else if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	return u, nil
}

func loadOrNewPins(ctx context.Context, tx store.Store, userID uint) (*domain.PinRecord, error) {
	rec, err := tx.Pins().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &domain.PinRecord{UserID: userID}, nil
	} else if err != nil {
		return nil, apperr.Internal("load pins", err)
	}
	return rec, nil
}
