package view

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// 调试字体的字形尺寸（ebitenutil.DebugPrint）
const (
	glyphWidth  = 6
	glyphHeight = 16
)

// surface 把 client.Surface 落到 Ebiten 图像上
type surface struct {
	img *ebiten.Image
}

func (s surface) Fill(c color.Color) { s.img.Fill(c) }

func (s surface) FillRect(x, y, w, h float64, c color.Color) {
	vector.DrawFilledRect(s.img, float32(x), float32(y), float32(w), float32(h), c, false)
}

func (s surface) StrokeRect(x, y, w, h, width float64, c color.Color) {
	vector.StrokeRect(s.img, float32(x), float32(y), float32(w), float32(h), float32(width), c, false)
}

func (s surface) Line(x0, y0, x1, y1, width float64, c color.Color) {
	vector.StrokeLine(s.img, float32(x0), float32(y0), float32(x1), float32(y1), float32(width), c, false)
}

// Text 调试字体只有白色，颜色参数被忽略
func (s surface) Text(str string, x, y float64, _ color.Color) {
	left := int(x) - len([]rune(str))*glyphWidth/2
	ebitenutil.DebugPrintAt(s.img, str, left, int(y)-glyphHeight)
}
