package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mahjong-tally/internal/model"
)

// ErrNotApplied reports that a conditional update matched no row.
var ErrNotApplied = errors.New("update not applied")

// UserRepository handles CRUD for players.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert creates the user or refreshes their profile fields.
func (r *UserRepository) Upsert(ctx context.Context, chatID int64, name, username string) error {
	user := model.User{ChatID: chatID, Name: name, Username: username}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "username", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpsertSeated creates or updates the user and seats them at passcode with a zero tally.
func (r *UserRepository) UpsertSeated(ctx context.Context, chatID int64, name, username, passcode string) error {
	user := model.User{ChatID: chatID, Name: name, Username: username, Passcode: &passcode}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":       name,
			"username":   username,
			"passcode":   passcode,
			"tally":      0,
			"updated_at": time.Now(),
		}),
	}).Create(&user).Error
	if err != nil {
		return fmt.Errorf("seat user: %w", err)
	}
	return nil
}

// SeatIfRoom seats an existing user at passcode in a single statement, guarded
// by the user not already being there and fewer than capacity users holding it.
// It returns ErrNotApplied when the guard rejects the write.
func (r *UserRepository) SeatIfRoom(ctx context.Context, chatID int64, name, username, passcode string, capacity int) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("chat_id = ?", chatID).
		Where("(passcode IS NULL OR passcode <> ?)", passcode).
		Where("(SELECT COUNT(*) FROM users AS seated WHERE seated.passcode = ?) < ?", passcode, capacity).
		Updates(map[string]interface{}{
			"name":     name,
			"username": username,
			"passcode": passcode,
			"tally":    0,
		})
	if res.Error != nil {
		return fmt.Errorf("join room: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotApplied
	}
	return nil
}

// ClearPasscode unseats the user. Unknown users are ignored.
func (r *UserRepository) ClearPasscode(ctx context.Context, chatID int64) error {
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("chat_id = ?", chatID).
		Update("passcode", nil).Error
	if err != nil {
		return fmt.Errorf("clear passcode: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListByPasscode returns users seated at passcode in insertion order.
func (r *UserRepository) ListByPasscode(ctx context.Context, passcode string) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("passcode = ?", passcode).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return users, nil
}

func (r *UserRepository) CountByPasscode(ctx context.Context, passcode string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("passcode = ?", passcode).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return count, nil
}

// ApplyRound zeroes every tally at passcode and then adds deltas, in one transaction.
func (r *UserRepository) ApplyRound(ctx context.Context, passcode string, deltas map[int64]int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.User{}).Where("passcode = ?", passcode).Update("tally", 0).Error; err != nil {
			return fmt.Errorf("reset tallies: %w", err)
		}
		for chatID, delta := range deltas {
			if delta == 0 {
				continue
			}
			err := tx.Model(&model.User{}).
				Where("chat_id = ?", chatID).
				UpdateColumn("tally", gorm.Expr("tally + ?", delta)).Error
			if err != nil {
				return fmt.Errorf("increment tally: %w", err)
			}
		}
		return nil
	})
}

// SetMenus replaces the user's breadcrumb stack.
func (r *UserRepository) SetMenus(ctx context.Context, chatID int64, menus []string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("chat_id = ?", chatID).
		Select("menus").
		Updates(&model.User{Menus: menus})
	if res.Error != nil {
		return fmt.Errorf("set menus: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AppendMessageID adds a sent message to the user's history.
func (r *UserRepository) AppendMessageID(ctx context.Context, chatID int64, messageID int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Where("chat_id = ?", chatID).First(&user).Error; err != nil {
			return err
		}
		user.MessageIDHistory = append(user.MessageIDHistory, messageID)
		if err := tx.Model(&user).Select("message_id_history").Updates(&user).Error; err != nil {
			return fmt.Errorf("append message id: %w", err)
		}
		return nil
	})
}

// TakeMessageIDs returns the stored history and clears it.
func (r *UserRepository) TakeMessageIDs(ctx context.Context, chatID int64) ([]int, error) {
	var ids []int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Where("chat_id = ?", chatID).First(&user).Error; err != nil {
			return err
		}
		ids = user.MessageIDHistory
		if err := tx.Model(&user).Select("message_id_history").Updates(&model.User{}).Error; err != nil {
			return fmt.Errorf("clear message ids: %w", err)
		}
		return nil
	})
	return ids, err
}
