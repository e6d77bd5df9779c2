package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// 线上事件名（与服务端的约定，不可更改）
const (
	EventGameState         = "game_state"
	EventPlayerJoined      = "player_joined"
	EventPlayerLeft        = "player_left"
	EventPlayerMoved       = "player_moved"
	EventPlayerNameChanged = "player_name_changed"

	EventMovePlayer       = "move_player"
	EventUpdatePlayerName = "update_player_name"
)

// Envelope 每个 WebSocket 文本帧的外层结构
// 示例：{"event":"move_player","data":{"direction":"up"}}
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WorldConfig 世界尺寸（随 game_state 可选下发）
type WorldConfig struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PlayerSize float64 `json:"playerSize"`
}

// DefaultWorld 服务端未下发配置时使用的默认世界
var DefaultWorld = WorldConfig{Width: 800, Height: 600, PlayerSize: 4}

// GameState 初始快照：完整名单 + 本机玩家 ID
type GameState struct {
	Players      []Player     `json:"players"`
	YourPlayerID PlayerID     `json:"yourPlayerId"`
	GameConfig   *WorldConfig `json:"gameConfig,omitempty"`
}

type PlayerLeft struct {
	PlayerID   PlayerID `json:"playerId"`
	PlayerName string   `json:"playerName,omitempty"`
}

// PlayerMoved 位置更新；Timestamp 为服务端毫秒时间戳，0 表示未携带
type PlayerMoved struct {
	PlayerID  PlayerID `json:"playerId"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

type PlayerNameChanged struct {
	PlayerID PlayerID `json:"playerId"`
	OldName  string   `json:"oldName,omitempty"`
	NewName  string   `json:"newName"`
}

// MovePlayer 出站移动意图
type MovePlayer struct {
	Direction string `json:"direction"`
}

// UpdatePlayerName 出站改名请求（已去除首尾空白）
type UpdatePlayerName struct {
	Name string `json:"name" validate:"required,max=20"`
}

var errEmptyFrame = errors.New("empty frame")

// Encode 将事件名与载荷编码为一帧
func Encode(event string, data any) ([]byte, error) {
	if event == "" {
		return nil, fmt.Errorf("encode: empty event name")
	}
	if data == nil {
		return nil, fmt.Errorf("encode %q: nil payload", event)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// DecodeEnvelope 解析外层结构，不解析载荷
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, errEmptyFrame
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, err
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("frame without event name")
	}
	return env, nil
}

// DecodePayload 将载荷解析为具体类型
func DecodePayload[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, fmt.Errorf("empty payload")
	}
	err := json.Unmarshal(raw, &out)
	return out, err
}
