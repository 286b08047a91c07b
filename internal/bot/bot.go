package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"mahjong-tally/internal/config"
	"mahjong-tally/internal/passcode"
	"mahjong-tally/internal/service"
)

const (
	menuStart   = service.MenuStart
	menuJoin    = "Join"
	menuRoom    = "Room"
	menuWin     = "Win"
	menuShooter = "Shooter"
)

const (
	cbMenu    = "menu:"
	cbCreate  = "create"
	cbJoin    = "join"
	cbLeave   = "leave"
	cbBack    = "back"
	cbDealer  = "dealer:"
	cbEvent   = "event:"
	cbShooter = "shooter:"
)

const (
	btnCreate    = "🀄 Create room"
	btnJoin      = "🚪 Join room"
	btnReportWin = "🏆 Report win"
	btnRefresh   = "🔄 Refresh"
	btnLeave     = "👋 Leave room"
	btnBack      = "⬅️ Back"
	btnDealerOn  = "🎲 Dealer: on"
	btnDealerOff = "🎲 Dealer: off"
)

// Bot aggregates Telegram API with services.
type Bot struct {
	api         *tgbotapi.BotAPI
	rooms       *service.RoomService
	settlements *service.SettlementService
	menus       *service.MenuService
	limits      *limiter
	awaiting    map[int64]bool
	pending     map[int64]service.EventType
	mu          sync.Mutex
}

func New(cfg *config.Config, rooms *service.RoomService, settlements *service.SettlementService, menus *service.MenuService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:         api,
		rooms:       rooms,
		settlements: settlements,
		menus:       menus,
		limits:      newLimiter(rate.Limit(cfg.CommandRate), cfg.CommandBurst),
		awaiting:    make(map[int64]bool),
		pending:     make(map[int64]service.EventType),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			cb := update.CallbackQuery
			if cb.From == nil || !b.limits.allow(cb.From.ID) {
				b.ack(cb.ID, "Slow down a little.")
				continue
			}
			if err := b.handleCallback(ctx, cb); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			msg := update.Message
			if msg.Chat == nil || !msg.Chat.IsPrivate() || msg.From == nil {
				continue
			}
			if !b.limits.allow(msg.From.ID) {
				continue
			}
			if err := b.handleMessage(ctx, msg); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if b.isAwaiting(msg.From.ID) {
		return b.joinWithPasscode(ctx, msg.From, msg.Text)
	}

	return b.sendText(ctx, msg.From.ID, "Send /start to open the menu.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	from := msg.From
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, from)
	case "create":
		return b.createRoom(ctx, from)
	case "join":
		if code := strings.TrimSpace(msg.CommandArguments()); code != "" {
			return b.joinWithPasscode(ctx, from, code)
		}
		return b.showMenu(ctx, from.ID, menuJoin)
	case "room":
		return b.showMenu(ctx, from.ID, menuRoom)
	case "leave":
		return b.leaveRoom(ctx, from.ID)
	case "back":
		return b.goBack(ctx, from.ID)
	case "help":
		return b.sendText(ctx, from.ID, helpText)
	default:
		return b.sendText(ctx, from.ID, "Unknown command. See /help.")
	}
}

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /start - main menu\n" +
	"• /create - open a new room\n" +
	"• /join &lt;passcode&gt; - join a room\n" +
	"• /room - room overview\n" +
	"• /leave - leave your room\n" +
	"• /back - previous menu"

func (b *Bot) handleStart(ctx context.Context, from *tgbotapi.User) error {
	if err := b.rooms.RegisterUser(ctx, from.ID, displayName(from), from.UserName); err != nil {
		return b.replyError(ctx, from.ID, err)
	}
	b.clearState(from.ID)

	ids, err := b.menus.TakeMessageHistory(ctx, from.ID)
	if err != nil {
		log.Printf("take message history %d: %v", from.ID, err)
	}
	for _, id := range ids {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(from.ID, id)); err != nil {
			log.Printf("delete message %d/%d: %v", from.ID, id, err)
		}
	}

	return b.showMenu(ctx, from.ID, menuStart)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	b.ack(cb.ID, "")
	from := cb.From
	data := cb.Data
	log.Printf("[info] callback user=%d data=%s", from.ID, data)

	switch {
	case data == cbCreate:
		return b.createRoom(ctx, from)
	case data == cbJoin:
		return b.showMenu(ctx, from.ID, menuJoin)
	case data == cbLeave:
		return b.leaveRoom(ctx, from.ID)
	case data == cbBack:
		return b.goBack(ctx, from.ID)
	case strings.HasPrefix(data, cbMenu):
		return b.showMenu(ctx, from.ID, strings.TrimPrefix(data, cbMenu))
	case strings.HasPrefix(data, cbDealer):
		return b.setDealer(ctx, from.ID, strings.TrimPrefix(data, cbDealer) == "on")
	case strings.HasPrefix(data, cbEvent):
		event, err := parseEvent(strings.TrimPrefix(data, cbEvent))
		if err != nil {
			return b.replyError(ctx, from.ID, err)
		}
		return b.chooseEvent(ctx, from.ID, event)
	case strings.HasPrefix(data, cbShooter):
		shooterID, err := strconv.ParseInt(strings.TrimPrefix(data, cbShooter), 10, 64)
		if err != nil {
			return nil
		}
		return b.chooseShooter(ctx, from.ID, shooterID)
	default:
		return nil
	}
}

func (b *Bot) createRoom(ctx context.Context, from *tgbotapi.User) error {
	code, err := b.rooms.CreateRoom(ctx, from.ID, displayName(from), from.UserName)
	if err != nil {
		return b.replyError(ctx, from.ID, err)
	}
	if err := b.sendText(ctx, from.ID, fmt.Sprintf("Room created. Share the passcode <code>%s</code> with the table.", code)); err != nil {
		return err
	}
	return b.showMenu(ctx, from.ID, menuRoom)
}

func (b *Bot) joinWithPasscode(ctx context.Context, from *tgbotapi.User, text string) error {
	code := strings.ToLower(strings.TrimSpace(text))
	if !passcode.Valid(code) {
		return b.sendText(ctx, from.ID, "A passcode is six letters, for example <code>qwerty</code>.")
	}
	b.setAwaiting(from.ID, false)

	hostID, err := b.rooms.JoinRoom(ctx, from.ID, displayName(from), from.UserName, code)
	if err != nil {
		return b.replyError(ctx, from.ID, err)
	}
	if hostID != from.ID {
		if err := b.sendText(ctx, hostID, fmt.Sprintf("%s joined your room.", escape(displayName(from)))); err != nil {
			log.Printf("notify host %d: %v", hostID, err)
		}
	}
	return b.showMenu(ctx, from.ID, menuRoom)
}

func (b *Bot) leaveRoom(ctx context.Context, chatID int64) error {
	players, err := b.rooms.GetRoomPlayers(ctx, chatID)
	if err != nil && !service.IsDomain(err) {
		log.Printf("list players before leave %d: %v", chatID, err)
	}
	hostID, err := b.rooms.GetHostID(ctx, chatID)
	if err != nil && !service.IsDomain(err) {
		log.Printf("find host before leave %d: %v", chatID, err)
	}

	if err := b.rooms.LeaveRoom(ctx, chatID); err != nil {
		return b.replyError(ctx, chatID, err)
	}
	b.clearState(chatID)

	if hostID == chatID {
		for _, p := range players {
			if p.ChatID == chatID {
				continue
			}
			if err := b.sendText(ctx, p.ChatID, "The host closed the room."); err != nil {
				log.Printf("notify player %d: %v", p.ChatID, err)
			}
		}
	}
	return b.showMenu(ctx, chatID, menuStart)
}

func (b *Bot) goBack(ctx context.Context, chatID int64) error {
	b.clearState(chatID)
	prev, ok, err := b.menus.PreviousMenu(ctx, chatID, 0)
	if err != nil {
		return b.replyError(ctx, chatID, err)
	}
	if !ok {
		prev = menuStart
	}
	return b.showMenu(ctx, chatID, prev)
}

func (b *Bot) setDealer(ctx context.Context, chatID int64, on bool) error {
	hostID, err := b.rooms.GetHostID(ctx, chatID)
	if err != nil {
		return b.replyError(ctx, chatID, err)
	}
	if hostID != chatID {
		return b.sendText(ctx, chatID, "Only the host can change the dealer flag.")
	}
	if err := b.rooms.UpdateIsShooter(ctx, hostID, on); err != nil {
		return b.replyError(ctx, chatID, err)
	}
	return b.showMenu(ctx, chatID, menuRoom)
}

func (b *Bot) chooseEvent(ctx context.Context, chatID int64, event service.EventType) error {
	if !event.NeedsShooter() {
		return b.settle(ctx, chatID, event, 0)
	}
	b.setPending(chatID, event)
	return b.showMenu(ctx, chatID, menuShooter)
}

func (b *Bot) chooseShooter(ctx context.Context, chatID, shooterID int64) error {
	event, ok := b.takePending(chatID)
	if !ok {
		return b.showMenu(ctx, chatID, menuWin)
	}
	return b.settle(ctx, chatID, event, shooterID)
}

func (b *Bot) settle(ctx context.Context, winnerID int64, event service.EventType, shooterID int64) error {
	deltas, err := b.settlements.UpdateTally(ctx, event, shooterID, winnerID)
	if err != nil {
		return b.replyError(ctx, winnerID, err)
	}

	winner := ""
	for _, d := range deltas {
		if d.ChatID == winnerID {
			winner = d.Name
		}
	}
	text := formatSettlement(winner, event, deltas)
	for _, d := range deltas {
		if d.ChatID == winnerID {
			continue
		}
		if err := b.sendText(ctx, d.ChatID, text); err != nil {
			log.Printf("announce round to %d: %v", d.ChatID, err)
		}
	}
	if err := b.sendText(ctx, winnerID, text); err != nil {
		return err
	}
	return b.showMenu(ctx, winnerID, menuRoom)
}

// showMenu records the visit and renders label.
func (b *Bot) showMenu(ctx context.Context, chatID int64, label string) error {
	if err := b.menus.UpdateMenu(ctx, chatID, label); err != nil {
		if errors.Is(err, service.ErrUnregisteredUser) {
			return b.sendText(ctx, chatID, "Send /start first.")
		}
		return b.replyError(ctx, chatID, err)
	}

	switch label {
	case menuStart:
		return b.sendMenu(ctx, chatID, "🀄 <b>Mahjong tally</b>\nOpen a room or join one with its passcode.", startKeyboard())
	case menuJoin:
		b.setAwaiting(chatID, true)
		return b.sendMenu(ctx, chatID, "Send the six-letter passcode of the room.", backKeyboard())
	case menuRoom:
		return b.renderRoom(ctx, chatID)
	case menuWin:
		return b.sendMenu(ctx, chatID, "🏆 How did you win?", eventKeyboard())
	case menuShooter:
		players, err := b.rooms.GetRoomPlayers(ctx, chatID)
		if err != nil {
			return b.replyError(ctx, chatID, err)
		}
		return b.sendMenu(ctx, chatID, "🎯 Who paid?", shooterKeyboard(players, chatID))
	default:
		return b.showMenu(ctx, chatID, menuStart)
	}
}

func (b *Bot) renderRoom(ctx context.Context, chatID int64) error {
	room, err := b.rooms.GetRoom(ctx, chatID)
	if err != nil {
		return b.replyError(ctx, chatID, err)
	}
	players, err := b.rooms.GetRoomPlayers(ctx, chatID)
	if err != nil {
		return b.replyError(ctx, chatID, err)
	}
	return b.sendMenu(ctx, chatID, formatRoom(room, players, b.settlements.Table().Name), roomKeyboard(room, chatID))
}

func (b *Bot) replyError(ctx context.Context, chatID int64, err error) error {
	if !service.IsDomain(err) {
		log.Printf("operation failed for %d: %v", chatID, err)
		return b.sendText(ctx, chatID, "Something went wrong, try again.")
	}

	var text string
	switch {
	case errors.Is(err, service.ErrUnregisteredUser):
		text = "Send /start first."
	case errors.Is(err, service.ErrRoomNotFound):
		text = "That room does not exist any more."
	case errors.Is(err, service.ErrRoomFull):
		text = "That room is full."
	case errors.Is(err, service.ErrAlreadyJoined):
		text = "You are already in that room."
	case errors.Is(err, service.ErrNotSeated):
		text = "You are not in a room."
	default:
		text = "Unknown outcome, pick one from the menu."
	}
	return b.sendText(ctx, chatID, text)
}

func (b *Bot) ack(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Printf("callback ack: %v", err)
	}
}

func (b *Bot) sendText(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return b.send(ctx, chatID, msg)
}

func (b *Bot) sendMenu(ctx context.Context, chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	return b.send(ctx, chatID, msg)
}

func (b *Bot) send(ctx context.Context, chatID int64, msg tgbotapi.MessageConfig) error {
	sent, err := b.api.Send(msg)
	if err != nil {
		return err
	}
	if err := b.menus.RecordMessage(ctx, chatID, sent.MessageID); err != nil && !errors.Is(err, service.ErrUnregisteredUser) {
		log.Printf("record message %d: %v", chatID, err)
	}
	return nil
}

func (b *Bot) isAwaiting(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.awaiting[userID]
}

func (b *Bot) setAwaiting(userID int64, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if on {
		b.awaiting[userID] = true
		return
	}
	delete(b.awaiting, userID)
}

func (b *Bot) setPending(userID int64, event service.EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[userID] = event
}

func (b *Bot) takePending(userID int64) (service.EventType, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	event, ok := b.pending[userID]
	delete(b.pending, userID)
	return event, ok
}

func (b *Bot) clearState(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.awaiting, userID)
	delete(b.pending, userID)
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	if name == "" {
		name = strconv.FormatInt(u.ID, 10)
	}
	return name
}

func escape(s string) string {
	return html.EscapeString(s)
}
