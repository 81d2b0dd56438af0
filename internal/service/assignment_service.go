package service

import (
	"context"
	"errors"
	"time"

	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/ctkuo2438/NUboard/internal/repository"
	"github.com/rs/zerolog"
)

// AssignmentService assigns roles to users and removes them.
type AssignmentService struct {
	uow    UnitOfWork
	access AccessInvalidator
	events Publisher
	log    zerolog.Logger
	now    func() time.Time
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(uow UnitOfWork, access AccessInvalidator, events Publisher, log zerolog.Logger) *AssignmentService {
	return &AssignmentService{
		uow:    uow,
		access: access,
		events: events,
		log:    log.With().Str("component", "assignment_service").Logger(),
		now:    time.Now,
	}
}

// AssignRole gives the user the named role and returns the updated access view.
func (s *AssignmentService) AssignRole(ctx context.Context, userID int64, roleName, assignedBy string) (model.UserAccessView, error) {
	roleName, err := requireText(roleName, "role name")
	if err != nil {
		return model.UserAccessView{}, err
	}
	assignedBy, err = requireText(assignedBy, "assigned by")
	if err != nil {
		return model.UserAccessView{}, err
	}

	var view model.UserAccessView
	err = s.uow.WithinTx(ctx, func(st Stores) error {
		user, err := lockUser(ctx, st, userID)
		if err != nil {
			return err
		}
		role, err := findRole(ctx, st, roleName)
		if err != nil {
			return err
		}

		key := model.AssignmentKey{UserID: user.ID, RoleID: role.ID}
		held, err := st.Assignments.Exists(ctx, key)
		if err != nil {
			return err
		}
		if held {
			return newError(KindAlreadyHasRole, "user %s already has role %s", user.Username, role.Name)
		}

		err = st.Assignments.Insert(ctx, model.UserAssignment{
			UserID:     user.ID,
			RoleID:     role.ID,
			AssignedAt: s.now().UTC(),
			AssignedBy: &assignedBy,
		})
		if errors.Is(err, repository.ErrDuplicate) {
			return newError(KindAlreadyHasRole, "user %s already has role %s", user.Username, role.Name)
		}
		if err != nil {
			return err
		}

		view, err = loadAccessView(ctx, st, user.ID)
		return err
	})
	if err != nil {
		return model.UserAccessView{}, s.fail(err, "assign_role", userID, roleName)
	}

	s.access.InvalidateUser(ctx, userID)
	s.events.Publish(ctx, model.ActivityEvent{
		Type:     model.ActivityRoleAssigned,
		Actor:    assignedBy,
		UserID:   view.UserID,
		Username: view.Username,
		Role:     roleName,
		At:       s.now().UTC(),
	})
	s.log.Info().
		Int64("user_id", userID).
		Str("role", roleName).
		Str("by", assignedBy).
		Msg("Role assigned")

	return view, nil
}

// RemoveRole takes the named role from the user and returns the updated access
// view. Removing a role the user does not hold changes nothing. The last enabled
// administrator cannot lose ADMIN.
func (s *AssignmentService) RemoveRole(ctx context.Context, userID int64, roleName, removedBy string) (model.UserAccessView, error) {
	roleName, err := requireText(roleName, "role name")
	if err != nil {
		return model.UserAccessView{}, err
	}
	removedBy, err = requireText(removedBy, "removed by")
	if err != nil {
		return model.UserAccessView{}, err
	}

	var (
		view    model.UserAccessView
		removed bool
	)
	err = s.uow.WithinTx(ctx, func(st Stores) error {
		user, err := lockUser(ctx, st, userID)
		if err != nil {
			return err
		}
		role, err := findRole(ctx, st, roleName)
		if err != nil {
			return err
		}

		key := model.AssignmentKey{UserID: user.ID, RoleID: role.ID}
		held, err := st.Assignments.Exists(ctx, key)
		if err != nil {
			return err
		}

		if held {
			if role.Name == model.RoleAdmin {
				if err := guardLastAdmin(ctx, st, user); err != nil {
					return err
				}
			}
			if removed, err = st.Assignments.Delete(ctx, key); err != nil {
				return err
			}
		}

		view, err = loadAccessView(ctx, st, user.ID)
		return err
	})
	if err != nil {
		return model.UserAccessView{}, s.fail(err, "remove_role", userID, roleName)
	}

	if !removed {
		s.log.Debug().Int64("user_id", userID).Str("role", roleName).Msg("Role not held, nothing removed")
		return view, nil
	}

	s.access.InvalidateUser(ctx, userID)
	s.events.Publish(ctx, model.ActivityEvent{
		Type:     model.ActivityRoleRemoved,
		Actor:    removedBy,
		UserID:   view.UserID,
		Username: view.Username,
		Role:     roleName,
		At:       s.now().UTC(),
	})
	s.log.Info().
		Int64("user_id", userID).
		Str("role", roleName).
		Str("by", removedBy).
		Msg("Role removed")

	return view, nil
}

func (s *AssignmentService) fail(err error, op string, userID int64, roleName string) error {
	out := asServiceError(err)
	if KindOf(out) == KindDatabase {
		s.log.Error().Err(err).Str("op", op).Int64("user_id", userID).Str("role", roleName).Msg("Assignment failed")
	}
	return out
}
