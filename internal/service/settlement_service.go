package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"

	"mahjong-tally/internal/model"
	"mahjong-tally/internal/repository"
	"mahjong-tally/internal/stakes"
)

// EventType names a round outcome.
type EventType string

const (
	EventOneTai          EventType = "1 Tai"
	EventTwoTai          EventType = "2 Tai"
	EventThreeTai        EventType = "3 Tai"
	EventFourTai         EventType = "4 Tai"
	EventFiveTai         EventType = "5 Tai"
	EventZimoOneTai      EventType = "Zimo 1 Tai"
	EventZimoTwoTai      EventType = "Zimo 2 Tai"
	EventZimoThreeTai    EventType = "Zimo 3 Tai"
	EventZimoFourTai     EventType = "Zimo 4 Tai"
	EventZimoFiveTai     EventType = "Zimo 5 Tai"
	EventBite            EventType = "Bite"
	EventDoubleBite      EventType = "Double Bite"
	EventKong            EventType = "Kong"
	EventZimoKong        EventType = "Zimo Kong"
	EventMatchingFlowers EventType = "Matching Flowers"
	EventHiddenFlowers   EventType = "Hidden Matching Flowers"
)

// EventTypes lists every outcome in menu order.
var EventTypes = []EventType{
	EventOneTai, EventTwoTai, EventThreeTai, EventFourTai, EventFiveTai,
	EventZimoOneTai, EventZimoTwoTai, EventZimoThreeTai, EventZimoFourTai, EventZimoFiveTai,
	EventBite, EventDoubleBite, EventKong, EventZimoKong,
	EventMatchingFlowers, EventHiddenFlowers,
}

type payoutKind int

const (
	// discard: shooter pays more, everyone else pays a share; dealer rooms load it all on the shooter.
	kindDiscard payoutKind = iota
	// selfDraw: every other seated player pays the same amount.
	kindSelfDraw
	// concealedKong: like discard, priced at base.
	kindConcealedKong
	// flower: only the shooter pays, winner receives a fixed amount.
	kindFlower
)

type rule struct {
	kind payoutKind
	tier stakes.Tier
	zimo bool
}

var rules = map[EventType]rule{
	EventOneTai:          {kind: kindDiscard, tier: stakes.OneTai},
	EventTwoTai:          {kind: kindDiscard, tier: stakes.TwoTai},
	EventThreeTai:        {kind: kindDiscard, tier: stakes.ThreeTai},
	EventFourTai:         {kind: kindDiscard, tier: stakes.FourTai},
	EventFiveTai:         {kind: kindDiscard, tier: stakes.FiveTai},
	EventZimoOneTai:      {kind: kindSelfDraw, tier: stakes.OneTai, zimo: true},
	EventZimoTwoTai:      {kind: kindSelfDraw, tier: stakes.TwoTai, zimo: true},
	EventZimoThreeTai:    {kind: kindSelfDraw, tier: stakes.ThreeTai, zimo: true},
	EventZimoFourTai:     {kind: kindSelfDraw, tier: stakes.FourTai, zimo: true},
	EventZimoFiveTai:     {kind: kindSelfDraw, tier: stakes.FiveTai, zimo: true},
	EventBite:            {kind: kindSelfDraw, tier: stakes.OneTai},
	EventDoubleBite:      {kind: kindSelfDraw, tier: stakes.OneTai, zimo: true},
	EventKong:            {kind: kindConcealedKong, tier: stakes.OneTai},
	EventZimoKong:        {kind: kindSelfDraw, tier: stakes.OneTai, zimo: true},
	EventMatchingFlowers: {kind: kindFlower, tier: stakes.OneTai},
	EventHiddenFlowers:   {kind: kindFlower, tier: stakes.OneTai, zimo: true},
}

// NeedsShooter reports whether the outcome names a paying shooter.
func (e EventType) NeedsShooter() bool {
	r, ok := rules[e]
	return ok && r.kind != kindSelfDraw
}

// Valid reports whether e is a known outcome.
func (e EventType) Valid() bool {
	_, ok := rules[e]
	return ok
}

// Payout is what each role moves for one outcome.
type Payout struct {
	Shooter int64
	Others  int64
	// Winner is fixed only for flower outcomes; otherwise the winner collects
	// whatever the payers lose.
	Winner      int64
	FixedWinner bool
}

// ResolvePayout prices an outcome against a stake table.
func ResolvePayout(table stakes.Table, event EventType, dealerRoom bool) (Payout, error) {
	r, ok := rules[event]
	if !ok {
		return Payout{}, fmt.Errorf("%w: %q", ErrUnknownEventType, event)
	}
	stake, ok := table.Stake(r.tier)
	if !ok {
		return Payout{}, fmt.Errorf("stake table %q has no tier %d", table.Name, r.tier)
	}
	b, z := stake.Base, stake.Zimo

	switch r.kind {
	case kindDiscard:
		if dealerRoom {
			return Payout{Shooter: 2*b + z}, nil
		}
		return Payout{Shooter: z, Others: b}, nil
	case kindSelfDraw:
		if r.zimo {
			return Payout{Others: z}, nil
		}
		return Payout{Others: b}, nil
	case kindConcealedKong:
		if dealerRoom {
			return Payout{Shooter: 3 * b}, nil
		}
		return Payout{Shooter: b, Others: b}, nil
	case kindFlower:
		amount := b
		if r.zimo {
			amount = z
		}
		return Payout{Shooter: amount, Winner: amount, FixedWinner: true}, nil
	default:
		return Payout{}, fmt.Errorf("%w: %q", ErrUnknownEventType, event)
	}
}

// Delta is one player's change for the settled round.
type Delta struct {
	ChatID int64
	Name   string
	Amount int64
}

// Distribute applies a payout over the seated players and returns one delta per player.
func Distribute(players []model.User, p Payout, shooterID, winnerID int64, shooterPays bool) []Delta {
	deltas := make([]Delta, 0, len(players))
	winner := -1
	var collected int64
	for _, player := range players {
		d := Delta{ChatID: player.ChatID, Name: player.Name}
		switch {
		case player.ChatID == winnerID:
			winner = len(deltas)
		case shooterPays && player.ChatID == shooterID:
			d.Amount = -p.Shooter
		default:
			d.Amount = -p.Others
		}
		collected -= d.Amount
		deltas = append(deltas, d)
	}
	if winner >= 0 {
		if p.FixedWinner {
			deltas[winner].Amount = p.Winner
		} else {
			deltas[winner].Amount = collected
		}
	}
	return deltas
}

// SettlementService turns round outcomes into tally changes for a room.
type SettlementService struct {
	users *repository.UserRepository
	rooms *RoomService
	table stakes.Table
}

func NewSettlementService(users *repository.UserRepository, rooms *RoomService, table stakes.Table) *SettlementService {
	return &SettlementService{users: users, rooms: rooms, table: table}
}

// Table returns the active stake table.
func (s *SettlementService) Table() stakes.Table {
	return s.table
}

// UpdateTally settles one round in the winner's room. Every seated tally is
// reset first, so tallies show only this round's deltas.
func (s *SettlementService) UpdateTally(ctx context.Context, event EventType, shooterID, winnerID int64) ([]Delta, error) {
	if !event.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, event)
	}

	room, err := s.rooms.GetRoom(ctx, winnerID)
	if errors.Is(err, ErrUnregisteredUser) {
		return nil, ErrNotSeated
	}
	if err != nil {
		return nil, err
	}
	payout, err := ResolvePayout(s.table, event, room.IsShooter)
	if err != nil {
		return nil, err
	}
	players, err := s.users.ListByPasscode(ctx, room.Passcode)
	if err != nil {
		return nil, external("list players", err)
	}
	if event.NeedsShooter() && !validShooter(players, shooterID, winnerID) {
		return nil, fmt.Errorf("%w: shooter %d", ErrNotSeated, shooterID)
	}

	deltas := Distribute(players, payout, shooterID, winnerID, event.NeedsShooter())
	byChat := make(map[int64]int64, len(deltas))
	for _, d := range deltas {
		byChat[d.ChatID] = d.Amount
	}
	if err := s.users.ApplyRound(ctx, room.Passcode, byChat); err != nil {
		return nil, external("apply round", err)
	}

	log.Printf("[info] round settled passcode=%s event=%q winner=%d shooter=%d dealer=%t", room.Passcode, event, winnerID, shooterID, room.IsShooter)
	return deltas, nil
}

// validShooter reports whether shooterID sits at the table and is not the winner.
func validShooter(players []model.User, shooterID, winnerID int64) bool {
	if shooterID == winnerID {
		return false
	}
	return slices.ContainsFunc(players, func(p model.User) bool { return p.ChatID == shooterID })
}
