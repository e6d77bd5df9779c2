package client

import (
	"fmt"
	"math"
)

// StatusLines 侧栏文字：连接状态、在线人数、本机信息与名单
func StatusLines(st State, conn ConnState) []string {
	lines := make([]string, 0, st.Len()+8)
	if conn == StateConnected {
		lines = append(lines, "Connected")
	} else {
		lines = append(lines, "Disconnected ("+conn.String()+")")
	}
	lines = append(lines, fmt.Sprintf("%d players online", st.Len()), "")

	if me := ResolveSelf(st); me.Found {
		lines = append(lines, "You: "+me.Player.Name, fmt.Sprintf("  (%s)", position(me.Player)))
	} else {
		lines = append(lines, "You: -")
	}
	lines = append(lines, "")

	for _, p := range st.Players() {
		label := p.Name
		if p.ID == st.SelfID() {
			label += " (you)"
		}
		lines = append(lines, label, "  "+position(p))
	}
	return lines
}

func position(p Player) string {
	return fmt.Sprintf("%d, %d", int(math.Round(p.X)), int(math.Round(p.Y)))
}
