package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mahjong-tally/internal/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(DBConfig{DSN: filepath.Join(t.TempDir(), "data", "test.db"), LogLevel: "silent"})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestLogLevel(t *testing.T) {
	cases := map[string]logger.LogLevel{
		"":       logger.Warn,
		"silent": logger.Silent,
		"Info":   logger.Info,
		"error":  logger.Error,
	}
	for name, want := range cases {
		got, err := LogLevel(name)
		if err != nil || got != want {
			t.Fatalf("%q: expected %v, got %v (%v)", name, want, got, err)
		}
	}
	if _, err := NewDB(DBConfig{DSN: filepath.Join(t.TempDir(), "x.db"), LogLevel: "loud"}); err == nil {
		t.Fatal("expected unknown level to fail")
	}
}

func TestUpsertKeepsSeat(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(openTestDB(t))

	if err := users.UpsertSeated(ctx, 1, "Ann", "ann", "abcdef"); err != nil {
		t.Fatalf("seat: %v", err)
	}
	if err := users.Upsert(ctx, 1, "Annie", "annie"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	user, err := users.FindByChatID(ctx, 1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if user.Name != "Annie" || user.Username != "annie" {
		t.Fatalf("profile not refreshed: %+v", user)
	}
	if !user.Seated() || *user.Passcode != "abcdef" {
		t.Fatalf("expected seat to survive re-registration, got %v", user.Passcode)
	}
}

func TestSeatIfRoomGuards(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(openTestDB(t))

	for id := int64(1); id <= 5; id++ {
		if err := users.Upsert(ctx, id, "p", "p"); err != nil {
			t.Fatalf("upsert %d: %v", id, err)
		}
	}
	for id := int64(1); id <= 4; id++ {
		if err := users.SeatIfRoom(ctx, id, "p", "p", "room01", 4); err != nil {
			t.Fatalf("seat %d: %v", id, err)
		}
	}
	if err := users.SeatIfRoom(ctx, 5, "p", "p", "room01", 4); !errors.Is(err, ErrNotApplied) {
		t.Fatalf("expected ErrNotApplied for fifth player, got %v", err)
	}
	if err := users.SeatIfRoom(ctx, 1, "p", "p", "room01", 8); !errors.Is(err, ErrNotApplied) {
		t.Fatalf("expected ErrNotApplied for seated player, got %v", err)
	}
	if err := users.SeatIfRoom(ctx, 99, "p", "p", "room02", 4); !errors.Is(err, ErrNotApplied) {
		t.Fatalf("expected ErrNotApplied for unknown player, got %v", err)
	}

	count, err := users.CountByPasscode(ctx, "room01")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 seated, got %d", count)
	}
}

func TestApplyRoundResetsThenAdds(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(openTestDB(t))

	for id := int64(1); id <= 3; id++ {
		if err := users.UpsertSeated(ctx, id, "p", "p", "room01"); err != nil {
			t.Fatalf("seat: %v", err)
		}
	}
	if err := users.ApplyRound(ctx, "room01", map[int64]int64{1: 5, 2: -5}); err != nil {
		t.Fatalf("first round: %v", err)
	}
	if err := users.ApplyRound(ctx, "room01", map[int64]int64{2: 3, 3: -3}); err != nil {
		t.Fatalf("second round: %v", err)
	}

	players, err := users.ListByPasscode(ctx, "room01")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []int64{0, 3, -3}
	for i, p := range players {
		if p.Tally != want[i] {
			t.Fatalf("player %d: expected tally %d, got %d", p.ChatID, want[i], p.Tally)
		}
	}
}

func TestMenusAndMessageHistory(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(openTestDB(t))

	if err := users.SetMenus(ctx, 7, []string{"Start"}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
	if err := users.Upsert(ctx, 7, "Bo", "bo"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := users.SetMenus(ctx, 7, []string{"Start", "Room"}); err != nil {
		t.Fatalf("set menus: %v", err)
	}
	for _, id := range []int{10, 11} {
		if err := users.AppendMessageID(ctx, 7, id); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	user, err := users.FindByChatID(ctx, 7)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(user.Menus) != 2 || user.Menus[1] != "Room" {
		t.Fatalf("unexpected menus %v", user.Menus)
	}

	ids, err := users.TakeMessageIDs(ctx, 7)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if len(ids) != 2 || ids[0] != 10 || ids[1] != 11 {
		t.Fatalf("unexpected ids %v", ids)
	}
	ids, err = users.TakeMessageIDs(ctx, 7)
	if err != nil {
		t.Fatalf("second take: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected history cleared, got %v", ids)
	}
}

func TestRoomRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	rooms := NewRoomRepository(db)
	users := NewUserRepository(db)

	if err := rooms.Create(ctx, &model.Room{Passcode: "aaaaaa", HostID: 1, IsShooter: true}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := rooms.Create(ctx, &model.Room{Passcode: "bbbbbb", HostID: 2}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if n, err := rooms.SetIsShooter(ctx, 1, false); err != nil || n != 1 {
		t.Fatalf("set dealer: n=%d err=%v", n, err)
	}
	room, err := rooms.FindByPasscode(ctx, "aaaaaa")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if room.IsShooter {
		t.Fatal("expected dealer flag cleared")
	}

	if err := users.UpsertSeated(ctx, 3, "p", "p", "bbbbbb"); err != nil {
		t.Fatalf("seat: %v", err)
	}
	n, err := rooms.DeleteIdle(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("delete idle: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected only the empty room swept, got %d", n)
	}
	if _, err := rooms.FindByPasscode(ctx, "bbbbbb"); err != nil {
		t.Fatalf("occupied room swept: %v", err)
	}

	if n, err := rooms.DeleteByHost(ctx, 2); err != nil || n != 1 {
		t.Fatalf("delete by host: n=%d err=%v", n, err)
	}
	if _, err := rooms.FindByPasscode(ctx, "bbbbbb"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected room gone, got %v", err)
	}
}
