package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"mahjong-tally/internal/model"
)

// RoomRepository manages scoring rooms.
type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *model.Room) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (r *RoomRepository) FindByPasscode(ctx context.Context, passcode string) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).Where("passcode = ?", passcode).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// DeleteByHost removes every room hosted by hostID.
func (r *RoomRepository) DeleteByHost(ctx context.Context, hostID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("host_id = ?", hostID).Delete(&model.Room{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete room: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// SetIsShooter flips the dealer flag on rooms hosted by hostID.
func (r *RoomRepository) SetIsShooter(ctx context.Context, hostID int64, isShooter bool) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Room{}).
		Where("host_id = ?", hostID).
		Update("is_shooter", isShooter)
	if res.Error != nil {
		return 0, fmt.Errorf("update dealer flag: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteIdle removes rooms untouched since cutoff that no user references.
func (r *RoomRepository) DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM users WHERE users.passcode = rooms.passcode)").
		Delete(&model.Room{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete idle rooms: %w", res.Error)
	}
	return res.RowsAffected, nil
}
