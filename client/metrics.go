package client

import (
	"sync/atomic"
)

// Metrics 记录客户端运行期的关键指标（用于监控与调试）
type Metrics struct {
	FramesReceived    int64 // 收到的帧数
	FramesSent        int64 // 写出的帧数
	DecodeFailed      int64 // 无法解析的帧
	Unhandled         int64 // 无订阅者的事件
	DroppedOffline    int64 // 未连接时被丢弃的发送
	ChanFullDiscarded int64 // 因发送队列满被丢弃的消息
	ReconnectAttempts int64 // 重连尝试次数
	DeltasIgnored     int64 // 引用未知 ID 或载荷不合法而被忽略的增量
	StaleMoves        int64 // 因时间戳过旧被忽略的移动
	TickCount         int64 // 移动发射器 Tick 次数
	IntentsSent       int64 // 发送的移动意图数
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
}

func (m *Metrics) IncReceived() { atomic.AddInt64(&m.FramesReceived, 1) }
func (m *Metrics) IncSent() { atomic.AddInt64(&m.FramesSent, 1) }
func (m *Metrics) IncDecodeFailed() { atomic.AddInt64(&m.DecodeFailed, 1) }
func (m *Metrics) IncUnhandled() { atomic.AddInt64(&m.Unhandled, 1) }
func (m *Metrics) IncDroppedOffline() { atomic.AddInt64(&m.DroppedOffline, 1) }
func (m *Metrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *Metrics) IncReconnect() { atomic.AddInt64(&m.ReconnectAttempts, 1) }
func (m *Metrics) IncDeltaIgnored() { atomic.AddInt64(&m.DeltasIgnored, 1) }
func (m *Metrics) IncStaleMove() { atomic.AddInt64(&m.StaleMoves, 1) }
func (m *Metrics) AddIntents(n int) { atomic.AddInt64(&m.IntentsSent, int64(n)) }
func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"frames_received":     atomic.LoadInt64(&m.FramesReceived),
		"frames_sent":         atomic.LoadInt64(&m.FramesSent),
		"decode_failed":       atomic.LoadInt64(&m.DecodeFailed),
		"unhandled":           atomic.LoadInt64(&m.Unhandled),
		"dropped_offline":     atomic.LoadInt64(&m.DroppedOffline),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"reconnect_attempts":  atomic.LoadInt64(&m.ReconnectAttempts),
		"deltas_ignored":      atomic.LoadInt64(&m.DeltasIgnored),
		"stale_moves":         atomic.LoadInt64(&m.StaleMoves),
		"tick_count":          tick,
		"intents_sent":        atomic.LoadInt64(&m.IntentsSent),
		"avg_tick_ms":         avgMs,
	}
}
