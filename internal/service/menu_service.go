package service

import (
	"context"
	"errors"
	"slices"

	"gorm.io/gorm"

	"mahjong-tally/internal/repository"
)

// MenuStart is the root menu; visiting it resets the history.
const MenuStart = "Start"

// MenuService keeps each player's breadcrumb trail through the bot menus.
type MenuService struct {
	users *repository.UserRepository
}

func NewMenuService(users *repository.UserRepository) *MenuService {
	return &MenuService{users: users}
}

// UpdateMenu records a visit to label.
func (s *MenuService) UpdateMenu(ctx context.Context, chatID int64, label string) error {
	user, err := s.users.FindByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnregisteredUser
		}
		return external("find user", err)
	}

	menus, changed := pushBreadcrumb(user.Menus, label)
	if !changed {
		return nil
	}
	if err := s.users.SetMenus(ctx, chatID, menus); err != nil {
		return external("save menus", err)
	}
	return nil
}

// PreviousMenu peeks skips+1 entries below the top of the trail. ok is false
// when there is no such entry or the player is unknown.
func (s *MenuService) PreviousMenu(ctx context.Context, chatID int64, skips int) (label string, ok bool, err error) {
	user, err := s.users.FindByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, external("find user", err)
	}
	label, ok = peekBreadcrumb(user.Menus, skips)
	return label, ok, nil
}

// pushBreadcrumb returns the trail after visiting label and whether it changed.
// Revisiting an earlier entry drops everything pushed after it.
func pushBreadcrumb(menus []string, label string) ([]string, bool) {
	if len(menus) == 0 || label == MenuStart {
		return []string{label}, true
	}
	i := slices.Index(menus, label)
	switch {
	case i < 0:
		return append(slices.Clone(menus), label), true
	case i == len(menus)-1:
		return menus, false
	default:
		return slices.Clone(menus[:i+1]), true
	}
}

func peekBreadcrumb(menus []string, skips int) (string, bool) {
	if len(menus) < 2 || skips < 0 {
		return "", false
	}
	i := len(menus) - 2 - skips
	if i < 0 {
		return "", false
	}
	return menus[i], true
}

// RecordMessage remembers a message the bot sent so it can be cleaned up later.
func (s *MenuService) RecordMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := s.users.AppendMessageID(ctx, chatID, messageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnregisteredUser
		}
		return external("record message", err)
	}
	return nil
}

// TakeMessageHistory returns and forgets the recorded message ids.
func (s *MenuService) TakeMessageHistory(ctx context.Context, chatID int64) ([]int, error) {
	ids, err := s.users.TakeMessageIDs(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, external("take message history", err)
	}
	return ids, nil
}
