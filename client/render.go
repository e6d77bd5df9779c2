package client

import (
	"fmt"
	"image/color"
)

// Surface 绘制目标的最小抽象（Ebiten 窗口、测试用记录器等）
type Surface interface {
	Fill(c color.Color)
	FillRect(x, y, w, h float64, c color.Color)
	StrokeRect(x, y, w, h, width float64, c color.Color)
	Line(x0, y0, x1, y1, width float64, c color.Color)
	// Text 以 (x, y) 为水平居中的基线位置绘制文字
	Text(s string, x, y float64, c color.Color)
}

// RenderOptions 绘制参数；世界尺寸来自 State.World()
type RenderOptions struct {
	ShowGrid     bool
	GridPitch    float64
	Background   color.Color
	GridColor    color.Color
	LabelColor   color.Color
	OutlineColor color.Color
	Fallback     color.Color // 玩家颜色无法解析时使用
}

var DefaultRenderOptions = RenderOptions{
	ShowGrid:     true,
	GridPitch:    20,
	Background:   color.RGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff},
	GridColor:    color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff},
	LabelColor:   color.White,
	OutlineColor: color.White,
	Fallback:     color.RGBA{R: 0x80, G: 0x00, B: 0x80, A: 0xff},
}

const (
	labelOffset  = 8
	outlinePad   = 2
	outlineWidth = 2
	gridWidth    = 0.5
)

// Renderer 名单到画面的纯函数渲染，除绘制目标外无副作用
type Renderer struct {
	opts RenderOptions
}

func NewRenderer(opts RenderOptions) *Renderer {
	if opts.GridPitch <= 0 {
		opts.GridPitch = DefaultRenderOptions.GridPitch
	}
	return &Renderer{opts: opts}
}

// Render 清屏 → 网格（可选）→ 每个玩家的方块、名字与本机描边
// 绘制顺序只影响叠放，不影响正确性
func (r *Renderer) Render(dst Surface, st State) {
	w := st.World()
	dst.Fill(r.opts.Background)

	if r.opts.ShowGrid {
		for x := 0.0; x <= w.Width; x += r.opts.GridPitch {
			dst.Line(x, 0, x, w.Height, gridWidth, r.opts.GridColor)
		}
		for y := 0.0; y <= w.Height; y += r.opts.GridPitch {
			dst.Line(0, y, w.Width, y, gridWidth, r.opts.GridColor)
		}
	}

	size := w.PlayerSize
	half := size / 2
	for _, p := range st.Players() {
		c, err := ParseHexColor(p.Color)
		if err != nil {
			c = r.opts.Fallback
		}
		dst.FillRect(p.X-half, p.Y-half, size, size, c)
		dst.Text(p.Name, p.X, p.Y-labelOffset, r.opts.LabelColor)
		if p.ID == st.SelfID() {
			dst.StrokeRect(p.X-half-outlinePad, p.Y-half-outlinePad, size+2*outlinePad, size+2*outlinePad, outlineWidth, r.opts.OutlineColor)
		}
	}
}

// ParseHexColor 将 "#RRGGBB" 或 "#RGB" 转为 color.Color
func ParseHexColor(s string) (color.Color, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	c := color.RGBA{A: 0xff}
	var err error
	switch len(s) {
	case 6:
		_, err = fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B)
	case 3:
		_, err = fmt.Sscanf(s, "%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R *= 17
		c.G *= 17
		c.B *= 17
	default:
		err = fmt.Errorf("invalid color %q: want #RRGGBB or #RGB", s)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
