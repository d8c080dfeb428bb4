package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/orbit-portal/internal/model"
	"github.com/mmeshcher/orbit-portal/internal/validation"
)

// ResolveActor сопоставляет подтверждённой личности сохранённый профиль.
// Пользователь без профиля не получает доступа.
func (s *Service) ResolveActor(ctx context.Context, id model.Identity) (model.Actor, error) {
	p, err := s.repo.GetProfile(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Actor{}, fmt.Errorf("%w: no profile for user %q", model.ErrForbidden, id.UserID)
		}
		return model.Actor{}, err
	}
	return model.NewActor(id, p), nil
}

// ListStaff возвращает профили сотрудников.
func (s *Service) ListStaff(ctx context.Context, actor model.Actor) ([]model.Profile, error) {
	if err := requireStaff(actor); err != nil {
		return nil, s.rejected("list staff", actor, err)
	}
	profiles, err := s.repo.ListStaffProfiles(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(profiles), nil
}

// ProfileInput содержит назначаемые администратором роль и привязку к клиенту.
type ProfileInput struct {
	Email      string     `json:"email" validate:"omitempty,email"`
	Role       model.Role `json:"role" validate:"oneof=admin staff customer"`
	CustomerID string     `json:"customerId" validate:"required_if=Role customer"`
	Name       string     `json:"name"`
}

// AssignProfile создаёт или обновляет профиль пользователя. Только для администраторов.
func (s *Service) AssignProfile(ctx context.Context, actor model.Actor, userID string, in ProfileInput) (model.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Profile{}, s.rejected("assign profile", actor, err)
	}
	userID = strings.TrimSpace(userID)
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	if userID == "" {
		return model.Profile{}, fmt.Errorf("%w: user id is required", model.ErrValidation)
	}
	if err := validation.Struct(in); err != nil {
		return model.Profile{}, s.rejected("assign profile", actor, err)
	}
	return s.repo.UpsertProfile(ctx, model.Profile{
		UserID:     userID,
		Email:      strings.TrimSpace(in.Email),
		Role:       in.Role,
		CustomerID: in.CustomerID,
		Name:       strings.TrimSpace(in.Name),
	})
}
