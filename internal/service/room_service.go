package service

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"mahjong-tally/internal/model"
	"mahjong-tally/internal/repository"
)

// RoomCapacity is the most players a room seats.
const RoomCapacity = 4

// TokenSource hands out room passcodes that are already unique.
type TokenSource interface {
	Passcode(ctx context.Context) (string, error)
}

// RoomService runs the room lifecycle: registration, creation, joining and leaving.
type RoomService struct {
	users  *repository.UserRepository
	rooms  *repository.RoomRepository
	tokens TokenSource
}

func NewRoomService(users *repository.UserRepository, rooms *repository.RoomRepository, tokens TokenSource) *RoomService {
	return &RoomService{users: users, rooms: rooms, tokens: tokens}
}

// RegisterUser upserts the player; re-registering is not an error.
func (s *RoomService) RegisterUser(ctx context.Context, chatID int64, name, username string) error {
	if err := s.users.Upsert(ctx, chatID, name, username); err != nil {
		return external("register user", err)
	}
	return nil
}

// CreateRoom seats the caller in a new room they host and returns its passcode.
func (s *RoomService) CreateRoom(ctx context.Context, chatID int64, name, username string) (string, error) {
	code, err := s.tokens.Passcode(ctx)
	if err != nil {
		return "", external("generate passcode", err)
	}

	if err := s.users.UpsertSeated(ctx, chatID, name, username, code); err != nil {
		return "", external("seat host", err)
	}
	if err := s.rooms.Create(ctx, &model.Room{Passcode: code, HostID: chatID, IsShooter: true}); err != nil {
		return "", external("create room", err)
	}

	log.Printf("[info] room created passcode=%s host=%d", code, chatID)
	return code, nil
}

// JoinRoom seats the caller at passcode and returns the host's chat id.
func (s *RoomService) JoinRoom(ctx context.Context, chatID int64, name, username, passcode string) (int64, error) {
	user, err := s.users.FindByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUnregisteredUser
		}
		return 0, external("find user", err)
	}

	room, err := s.findRoom(ctx, passcode)
	if err != nil {
		return 0, err
	}

	count, err := s.users.CountByPasscode(ctx, passcode)
	if err != nil {
		return 0, external("count players", err)
	}
	if count >= RoomCapacity {
		return 0, ErrRoomFull
	}
	if user.Seated() && *user.Passcode == passcode {
		return 0, ErrAlreadyJoined
	}

	// The guarded write re-checks capacity so concurrent joins cannot overfill the room.
	if err := s.users.SeatIfRoom(ctx, chatID, name, username, passcode, RoomCapacity); err != nil {
		if errors.Is(err, repository.ErrNotApplied) {
			return 0, ErrRoomFull
		}
		return 0, external("join room", err)
	}

	log.Printf("[info] player joined passcode=%s player=%d", passcode, chatID)
	return room.HostID, nil
}

// LeaveRoom unseats the caller and deletes any room they host, even if others remain seated.
func (s *RoomService) LeaveRoom(ctx context.Context, chatID int64) error {
	if err := s.users.ClearPasscode(ctx, chatID); err != nil {
		return external("leave room", err)
	}
	deleted, err := s.rooms.DeleteByHost(ctx, chatID)
	if err != nil {
		return external("delete hosted room", err)
	}
	if deleted > 0 {
		log.Printf("[info] host left, rooms deleted host=%d count=%d", chatID, deleted)
	}
	return nil
}

// GetHostID resolves the host of the caller's room.
func (s *RoomService) GetHostID(ctx context.Context, chatID int64) (int64, error) {
	room, err := s.roomOf(ctx, chatID)
	if err != nil {
		return 0, err
	}
	return room.HostID, nil
}

// GetRoom resolves the caller's room record.
func (s *RoomService) GetRoom(ctx context.Context, chatID int64) (*model.Room, error) {
	return s.roomOf(ctx, chatID)
}

// GetRoomPlayers lists everyone sharing the caller's passcode, in join order.
func (s *RoomService) GetRoomPlayers(ctx context.Context, chatID int64) ([]model.User, error) {
	room, err := s.roomOf(ctx, chatID)
	if err != nil {
		return nil, err
	}
	players, err := s.users.ListByPasscode(ctx, room.Passcode)
	if err != nil {
		return nil, external("list players", err)
	}
	return players, nil
}

// UpdateIsShooter sets the dealer flag on the room hosted by hostID.
func (s *RoomService) UpdateIsShooter(ctx context.Context, hostID int64, isShooter bool) error {
	n, err := s.rooms.SetIsShooter(ctx, hostID, isShooter)
	if err != nil {
		return external("update dealer flag", err)
	}
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// SweepIdleRooms deletes rooms nobody has referenced since olderThan ago.
func (s *RoomService) SweepIdleRooms(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.rooms.DeleteIdle(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, external("sweep rooms", err)
	}
	return n, nil
}

func (s *RoomService) roomOf(ctx context.Context, chatID int64) (*model.Room, error) {
	user, err := s.users.FindByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnregisteredUser
		}
		return nil, external("find user", err)
	}
	if !user.Seated() {
		return nil, ErrNotSeated
	}
	return s.findRoom(ctx, *user.Passcode)
}

func (s *RoomService) findRoom(ctx context.Context, passcode string) (*model.Room, error) {
	room, err := s.rooms.FindByPasscode(ctx, passcode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, external("find room", err)
	}
	return room, nil
}
