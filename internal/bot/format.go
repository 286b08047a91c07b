package bot

import (
	"fmt"
	"strings"

	"mahjong-tally/internal/model"
	"mahjong-tally/internal/service"
)

func formatRoom(room *model.Room, players []model.User, stakeName string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🀄 <b>Room</b> <code>%s</code>\n", room.Passcode))
	dealer := "off"
	if room.IsShooter {
		dealer = "on"
	}
	sb.WriteString(fmt.Sprintf("Stakes: %s · Dealer: %s\n\n", escape(stakeName), dealer))
	sb.WriteString(fmt.Sprintf("<b>Players (%d/%d)</b>\n", len(players), service.RoomCapacity))
	for _, p := range players {
		marker := "•"
		if p.ChatID == room.HostID {
			marker = "👑"
		}
		sb.WriteString(fmt.Sprintf("%s %s %s\n", marker, escape(p.Name), signed(p.Tally)))
	}
	return strings.TrimSpace(sb.String())
}

func formatSettlement(winner string, event service.EventType, deltas []service.Delta) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏆 <b>%s</b> won: %s\n", escape(winner), escape(string(event))))
	for _, d := range deltas {
		sb.WriteString(fmt.Sprintf("• %s %s\n", escape(d.Name), signed(d.Amount)))
	}
	return strings.TrimSpace(sb.String())
}

func signed(v int64) string {
	if v > 0 {
		return fmt.Sprintf("+%d", v)
	}
	return fmt.Sprintf("%d", v)
}
