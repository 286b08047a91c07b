package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mahjong-tally/internal/bot"
	"mahjong-tally/internal/config"
	"mahjong-tally/internal/passcode"
	"mahjong-tally/internal/repository"
	"mahjong-tally/internal/service"
	"mahjong-tally/internal/stakes"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	table, err := stakes.Preset(cfg.StakePreset)
	if err != nil {
		log.Fatalf("stakes: %v", err)
	}

	db, err := repository.NewDB(repository.DBConfig{
		DSN:           cfg.DatabaseURL,
		LogLevel:      cfg.DBLogLevel,
		SlowThreshold: cfg.DBSlowThreshold,
	})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	var tokens service.TokenSource = passcode.LocalSource{}
	if cfg.RandomOrgAPIKey != "" {
		tokens = passcode.NewRandomOrgSource(cfg.RandomOrgURL, cfg.RandomOrgAPIKey)
	} else {
		log.Println("[info] RANDOM_ORG_API_KEY not set, using local passcodes")
	}

	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)

	roomSvc := service.NewRoomService(userRepo, roomRepo, tokens)
	settlementSvc := service.NewSettlementService(userRepo, roomSvc, table)
	menuSvc := service.NewMenuService(userRepo)

	telegramBot, err := bot.New(&cfg, roomSvc, settlementSvc, menuSvc)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	if cfg.RoomSweepInterval > 0 {
		if _, err := scheduler.ScheduleRoomSweep(roomSvc, cfg.RoomSweepInterval, cfg.RoomIdleTTL); err != nil {
			log.Fatalf("schedule room sweep: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	log.Printf("[info] mahjong tally bot started, stakes=%s", table.Name)
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
