package client

import (
	"strings"
	"sync"
)

// 按键到方向的映射（仅这四个键被识别）
var keyDirections = map[string]Direction{
	"w": DirUp,
	"s": DirDown,
	"a": DirLeft,
	"d": DirRight,
}

// InputSampler 记录当前按住的移动键
// 只由按下/抬起的边沿事件修改，不缓存历史事件；读取为纯查询
type InputSampler struct {
	mu   sync.Mutex
	held map[Direction]struct{}
}

func NewInputSampler() *InputSampler {
	return &InputSampler{held: make(map[Direction]struct{}, len(Directions))}
}

// KeyDown 处理按下事件；返回 true 表示识别的键，调用方应屏蔽其默认处理
func (s *InputSampler) KeyDown(key string) bool {
	dir, ok := keyDirections[strings.ToLower(key)]
	if !ok {
		return false
	}
	s.mu.Lock()
	s.held[dir] = struct{}{}
	s.mu.Unlock()
	return true
}

// KeyUp 处理抬起事件
func (s *InputSampler) KeyUp(key string) bool {
	dir, ok := keyDirections[strings.ToLower(key)]
	if !ok {
		return false
	}
	s.mu.Lock()
	delete(s.held, dir)
	s.mu.Unlock()
	return true
}

// Held 返回当前按住的方向（按 Directions 顺序）
func (s *InputSampler) Held() []Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.held) == 0 {
		return nil
	}
	out := make([]Direction, 0, len(s.held))
	for _, d := range Directions {
		if _, ok := s.held[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Reset 清空按键状态（例如窗口失焦、进入改名输入时）
func (s *InputSampler) Reset() {
	s.mu.Lock()
	clear(s.held)
	s.mu.Unlock()
}
