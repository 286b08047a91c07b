package bot

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mahjong-tally/internal/model"
	"mahjong-tally/internal/service"
)

func startKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnCreate, cbCreate),
			tgbotapi.NewInlineKeyboardButtonData(btnJoin, cbJoin),
		),
	)
}

func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, cbBack)),
	)
}

// roomKeyboard shows the dealer toggle to the host only.
func roomKeyboard(room *model.Room, viewer int64) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnReportWin, cbMenu+menuWin),
			tgbotapi.NewInlineKeyboardButtonData(btnRefresh, cbMenu+menuRoom),
		),
	}
	if room.HostID == viewer {
		toggle := tgbotapi.NewInlineKeyboardButtonData(btnDealerOff, cbDealer+"on")
		if room.IsShooter {
			toggle = tgbotapi.NewInlineKeyboardButtonData(btnDealerOn, cbDealer+"off")
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(toggle))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnLeave, cbLeave),
		tgbotapi.NewInlineKeyboardButtonData(btnBack, cbBack),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// eventKeyboard lays outcomes out in rows of three, indexed into service.EventTypes.
func eventKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, event := range service.EventTypes {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(string(event), cbEvent+strconv.Itoa(i)))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, cbBack)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func shooterKeyboard(players []model.User, winnerID int64) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range players {
		if p.ChatID == winnerID {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(p.Name, fmt.Sprintf("%s%d", cbShooter, p.ChatID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, cbBack)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func parseEvent(raw string) (service.EventType, error) {
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 || i >= len(service.EventTypes) {
		return "", fmt.Errorf("%w: %q", service.ErrUnknownEventType, raw)
	}
	return service.EventTypes[i], nil
}
