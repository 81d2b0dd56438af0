package service

import (
	"context"
	"errors"
	"time"

	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/ctkuo2438/NUboard/internal/repository"
	"github.com/rs/zerolog"
)

// AccountService enables and disables user accounts.
type AccountService struct {
	uow    UnitOfWork
	access AccessInvalidator
	events Publisher
	log    zerolog.Logger
	now    func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(uow UnitOfWork, access AccessInvalidator, events Publisher, log zerolog.Logger) *AccountService {
	return &AccountService{
		uow:    uow,
		access: access,
		events: events,
		log:    log.With().Str("component", "account_service").Logger(),
		now:    time.Now,
	}
}

// SetEnabled sets the enabled flag of a user. An actor cannot disable their own
// account, and the last enabled administrator cannot be disabled.
func (s *AccountService) SetEnabled(ctx context.Context, userID int64, enabled *bool, actingUserID int64, actingUsername string) (model.UserStatusView, error) {
	if enabled == nil {
		return model.UserStatusView{}, newError(KindValidation, "enabled flag is required")
	}
	actingUsername, err := requireText(actingUsername, "acting username")
	if err != nil {
		return model.UserStatusView{}, err
	}
	want := *enabled

	var (
		view    model.UserStatusView
		changed bool
	)
	err = s.uow.WithinTx(ctx, func(st Stores) error {
		user, err := lockUser(ctx, st, userID)
		if err != nil {
			return err
		}
		if user.ID == actingUserID && !want {
			return newError(KindCannotDisableOwnAccount, "you cannot disable your own account")
		}

		if user.Enabled && !want {
			isAdmin, err := holdsAdmin(ctx, st, user.ID)
			if err != nil {
				return err
			}
			if isAdmin {
				if err := guardLastAdmin(ctx, st, user); err != nil {
					return err
				}
			}
		}

		if user.Enabled != want {
			if err := st.Users.SetEnabled(ctx, user.ID, want); err != nil {
				return userLookupError(err, user.ID)
			}
			changed = true
		}
		view = model.UserStatusView{ID: user.ID, Username: user.Username, Enabled: want}
		return nil
	})
	if err != nil {
		out := asServiceError(err)
		if KindOf(out) == KindDatabase {
			s.log.Error().Err(err).Int64("user_id", userID).Msg("Status change failed")
		}
		return model.UserStatusView{}, out
	}

	if !changed {
		return view, nil
	}

	evType := model.ActivityUserEnabled
	if !want {
		evType = model.ActivityUserDisabled
	}
	s.access.InvalidateUser(ctx, userID)
	s.events.Publish(ctx, model.ActivityEvent{
		Type:     evType,
		Actor:    actingUsername,
		UserID:   view.ID,
		Username: view.Username,
		At:       s.now().UTC(),
	})
	s.log.Info().
		Int64("user_id", userID).
		Bool("enabled", want).
		Str("by", actingUsername).
		Msg("User status changed")

	return view, nil
}

func holdsAdmin(ctx context.Context, st Stores, userID int64) (bool, error) {
	admin, err := st.Roles.FindByName(ctx, model.RoleAdmin)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return st.Assignments.Exists(ctx, model.AssignmentKey{UserID: userID, RoleID: admin.ID})
}
