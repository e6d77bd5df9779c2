package client

import "strings"

// PlayerID 表示玩家唯一标识（由服务端分配，连接期间不变）
type PlayerID string

// Direction 移动方向（客户端只发送意图，位置由服务端权威决定）
type Direction int

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

// Directions 固定的遍历顺序，保证每个 Tick 的发送顺序稳定
var Directions = [...]Direction{DirUp, DirDown, DirLeft, DirRight}

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return ""
	}
}

// ParseDirection 解析线上的方向字符串，未知值返回 DirNone
func ParseDirection(s string) Direction {
	switch strings.ToLower(s) {
	case "up":
		return DirUp
	case "down":
		return DirDown
	case "left":
		return DirLeft
	case "right":
		return DirRight
	default:
		return DirNone
	}
}

// Player 名单中的一行（服务端下发，客户端只读展示）
type Player struct {
	ID    PlayerID `json:"id" validate:"required"`
	Name  string   `json:"name"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Color string   `json:"color"`
}

// MaxNameLength 玩家名最大长度（字符数）
const MaxNameLength = 20
