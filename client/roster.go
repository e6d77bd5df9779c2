package client

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// State 名单的不可变快照。所有转移都返回新值，已发布的 State 不会再被修改。
type State struct {
	players    map[PlayerID]Player
	moveStamps map[PlayerID]int64
	self       PlayerID
	selfName   string
	world      WorldConfig
	synced     bool
}

// EmptyState 收到首个快照之前的状态
func EmptyState() State {
	return State{world: DefaultWorld}
}

// Synced 是否已收到过 game_state
func (s State) Synced() bool { return s.synced }

func (s State) Len() int { return len(s.players) }

// SelfID 本机玩家 ID；即使该玩家已离开名单也保持不变
func (s State) SelfID() PlayerID { return s.self }

// SelfName UI 使用的本机显示名缓存
func (s State) SelfName() string { return s.selfName }

func (s State) World() WorldConfig { return s.world }

func (s State) Player(id PlayerID) (Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

// Players 按 ID 排序返回名单副本
func (s State) Players() []Player {
	out := make([]Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Player) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out
}

// MarshalJSON 供状态接口输出
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Synced   bool        `json:"synced"`
		Self     PlayerID    `json:"self"`
		SelfName string      `json:"selfName"`
		World    WorldConfig `json:"world"`
		Players  []Player    `json:"players"`
	}{s.synced, s.self, s.selfName, s.world, s.Players()})
}

// WithSnapshot 用 game_state 整体替换名单并设置本机身份
func (s State) WithSnapshot(gs GameState) State {
	next := State{
		players:    make(map[PlayerID]Player, len(gs.Players)),
		moveStamps: make(map[PlayerID]int64),
		self:       gs.YourPlayerID,
		world:      DefaultWorld,
		synced:     true,
	}
	if gs.GameConfig != nil && gs.GameConfig.Width > 0 && gs.GameConfig.Height > 0 {
		next.world = *gs.GameConfig
		if next.world.PlayerSize <= 0 {
			next.world.PlayerSize = DefaultWorld.PlayerSize
		}
	}
	for _, p := range gs.Players {
		if validate.Struct(p) != nil {
			continue
		}
		next.players[p.ID] = p
	}
	if me, ok := next.players[gs.YourPlayerID]; ok {
		next.selfName = me.Name
	}
	return next
}

// WithJoin 插入玩家；ID 已存在时静默替换（重复投递幂等）
func (s State) WithJoin(p Player) (State, bool) {
	if !s.synced || validate.Struct(p) != nil {
		return s, false
	}
	next := s.clone()
	next.players[p.ID] = p
	delete(next.moveStamps, p.ID)
	return next, true
}

// WithLeave 按 ID 移除玩家；不存在时不变
func (s State) WithLeave(ev PlayerLeft) (State, bool) {
	if _, ok := s.players[ev.PlayerID]; !ok {
		return s, false
	}
	next := s.clone()
	delete(next.players, ev.PlayerID)
	delete(next.moveStamps, ev.PlayerID)
	return next, true
}

// WithMove 只更新被引用玩家的坐标；未知 ID 或时间戳过旧时不变
func (s State) WithMove(ev PlayerMoved) (State, MoveResult) {
	p, ok := s.players[ev.PlayerID]
	if !ok {
		return s, MoveUnknown
	}
	if ev.Timestamp > 0 && ev.Timestamp < s.moveStamps[ev.PlayerID] {
		return s, MoveStale
	}
	next := s.clone()
	p.X, p.Y = ev.X, ev.Y
	next.players[p.ID] = p
	if ev.Timestamp > 0 {
		next.moveStamps[p.ID] = ev.Timestamp
	}
	return next, MoveApplied
}

// WithRename 只更新被引用玩家的名字；引用本机时同步显示名缓存
func (s State) WithRename(ev PlayerNameChanged) (State, bool) {
	p, ok := s.players[ev.PlayerID]
	if !ok || ev.NewName == "" {
		return s, false
	}
	next := s.clone()
	p.Name = ev.NewName
	next.players[p.ID] = p
	if ev.PlayerID == s.self {
		next.selfName = ev.NewName
	}
	return next, true
}

func (s State) clone() State {
	next := s
	next.players = maps.Clone(s.players)
	next.moveStamps = maps.Clone(s.moveStamps)
	if next.players == nil {
		next.players = make(map[PlayerID]Player)
	}
	if next.moveStamps == nil {
		next.moveStamps = make(map[PlayerID]int64)
	}
	return next
}

// MoveResult 位置更新的处理结果
type MoveResult int

const (
	MoveApplied MoveResult = iota
	MoveUnknown
	MoveStale
)

// Roster 名单的唯一写入者：把入站事件折叠为新的 State 并通知订阅者
type Roster struct {
	mu      sync.Mutex // 串行化写入与通知
	current atomic.Pointer[State]
	metrics *Metrics

	subMu   sync.Mutex // 只保护订阅表，通知时不持有
	subs    map[int]func(State)
	nextSub int
}

func NewRoster(m *Metrics) *Roster {
	if m == nil {
		m = &Metrics{}
	}
	r := &Roster{subs: make(map[int]func(State)), metrics: m}
	st := EmptyState()
	r.current.Store(&st)
	return r
}

// Snapshot 当前名单（不可变，可跨协程读取）
func (r *Roster) Snapshot() State { return *r.current.Load() }

// Subscribe 注册状态变化回调；返回的函数用于取消订阅
func (r *Roster) Subscribe(fn func(State)) (unsubscribe func()) {
	r.subMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.subMu.Unlock()
	return func() {
		r.subMu.Lock()
		delete(r.subs, id)
		r.subMu.Unlock()
	}
}

// Bind 在传输会话上注册全部入站事件
func (r *Roster) Bind(s *Session) {
	s.On(EventGameState, r.handle(EventGameState))
	s.On(EventPlayerJoined, r.handle(EventPlayerJoined))
	s.On(EventPlayerLeft, r.handle(EventPlayerLeft))
	s.On(EventPlayerMoved, r.handle(EventPlayerMoved))
	s.On(EventPlayerNameChanged, r.handle(EventPlayerNameChanged))
}

func (r *Roster) handle(event string) Handler {
	return func(data json.RawMessage) { r.Apply(event, data) }
}

// Apply 解析并应用一个入站事件；载荷非法时视为无操作
func (r *Roster) Apply(event string, data json.RawMessage) {
	var err error
	switch event {
	case EventGameState:
		var gs GameState
		if gs, err = DecodePayload[GameState](data); err == nil {
			r.ApplySnapshot(gs)
		}
	case EventPlayerJoined:
		var p Player
		if p, err = DecodePayload[Player](data); err == nil {
			r.ApplyJoin(p)
		}
	case EventPlayerLeft:
		var ev PlayerLeft
		if ev, err = DecodePayload[PlayerLeft](data); err == nil {
			r.ApplyLeave(ev)
		}
	case EventPlayerMoved:
		var ev PlayerMoved
		if ev, err = DecodePayload[PlayerMoved](data); err == nil {
			r.ApplyMove(ev)
		}
	case EventPlayerNameChanged:
		var ev PlayerNameChanged
		if ev, err = DecodePayload[PlayerNameChanged](data); err == nil {
			r.ApplyRename(ev)
		}
	default:
		r.metrics.IncUnhandled()
		return
	}
	if err != nil {
		r.metrics.IncDecodeFailed()
		Log.Debugw("ignore malformed payload", "event", event, "error", err)
	}
}

func (r *Roster) ApplySnapshot(gs GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.Snapshot().WithSnapshot(gs)
	Log.Infow("roster snapshot", "players", next.Len(), "self", next.SelfID())
	r.publish(next)
}

func (r *Roster) ApplyJoin(p Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, ok := r.Snapshot().WithJoin(p)
	r.commit(next, ok, EventPlayerJoined, p.ID)
}

func (r *Roster) ApplyLeave(ev PlayerLeft) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, ok := r.Snapshot().WithLeave(ev)
	r.commit(next, ok, EventPlayerLeft, ev.PlayerID)
}

func (r *Roster) ApplyMove(ev PlayerMoved) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, res := r.Snapshot().WithMove(ev)
	if res == MoveStale {
		r.metrics.IncStaleMove()
		return
	}
	r.commit(next, res == MoveApplied, EventPlayerMoved, ev.PlayerID)
}

func (r *Roster) ApplyRename(ev PlayerNameChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, ok := r.Snapshot().WithRename(ev)
	r.commit(next, ok, EventPlayerNameChanged, ev.PlayerID)
}

// commit 调用方需持有 r.mu
func (r *Roster) commit(next State, ok bool, event string, id PlayerID) {
	if !ok {
		// 未知 ID 视为乱序到达的正常现象，不作为错误上报
		r.metrics.IncDeltaIgnored()
		Log.Debugw("ignore delta", "event", event, "player", id)
		return
	}
	r.publish(next)
}

// publish 调用方需持有 r.mu；回调中可以订阅或取消订阅，但不能再写入名单
func (r *Roster) publish(next State) {
	r.current.Store(&next)

	r.subMu.Lock()
	ids := slices.Sorted(maps.Keys(r.subs))
	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, r.subs[id])
	}
	r.subMu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}
