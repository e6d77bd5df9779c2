package view

import (
	"context"
	"errors"
	"image/color"
	"sync/atomic"
	"unicode"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"pixelarena/client"
)

const sidebarWidth = 220

var sidebarColor = color.RGBA{R: 0x20, G: 0x1a, B: 0x33, A: 0xff}

// Game Ebiten 窗口：键盘边沿事件喂给 InputSampler，名单变化时重绘画布
type Game struct {
	client   *client.Client
	renderer *client.Renderer

	canvas      *ebiten.Image
	dirty       atomic.Bool
	unsubscribe func()
	quit        <-chan struct{}

	keys    []ebiten.Key
	chars   []rune
	editing bool
	name    []rune
}

func NewGame(c *client.Client, r *client.Renderer) *Game {
	g := &Game{client: c, renderer: r}
	g.dirty.Store(true)
	g.unsubscribe = c.Roster().Subscribe(func(client.State) { g.dirty.Store(true) })
	return g
}

// Close 取消名单订阅
func (g *Game) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
}

func (g *Game) Update() error {
	select {
	case <-g.quit:
		return ebiten.Termination
	default:
	}
	input := g.client.Input()
	if !ebiten.IsFocused() {
		input.Reset()
		return nil
	}
	if g.editing {
		g.updateNameEntry()
		return nil
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		// 输入名字期间不采样移动键
		input.Reset()
		g.editing = true
		g.name = g.name[:0]
		return nil
	}

	g.keys = inpututil.AppendJustPressedKeys(g.keys[:0])
	for _, k := range g.keys {
		input.KeyDown(k.String())
	}
	g.keys = inpututil.AppendJustReleasedKeys(g.keys[:0])
	for _, k := range g.keys {
		input.KeyUp(k.String())
	}
	return nil
}

func (g *Game) updateNameEntry() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		g.editing = false
		return
	case inpututil.IsKeyJustPressed(ebiten.KeyEnter), inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter):
		// 非法输入在 SubmitName 中被静默丢弃
		_ = g.client.SubmitName(string(g.name))
		g.editing = false
		return
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		if len(g.name) > 0 {
			g.name = g.name[:len(g.name)-1]
		}
	}
	g.chars = ebiten.AppendInputChars(g.chars[:0])
	for _, r := range g.chars {
		if unicode.IsPrint(r) && len(g.name) < client.MaxNameLength {
			g.name = append(g.name, r)
		}
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	st := g.client.Roster().Snapshot()
	w := st.World()
	if g.canvas == nil || g.canvas.Bounds().Dx() != int(w.Width) || g.canvas.Bounds().Dy() != int(w.Height) {
		g.canvas = ebiten.NewImage(int(w.Width), int(w.Height))
		g.dirty.Store(true)
	}
	if g.dirty.Swap(false) {
		g.renderer.Render(surface{img: g.canvas}, st)
	}
	screen.Fill(sidebarColor)
	screen.DrawImage(g.canvas, nil)
	g.drawSidebar(screen, st, int(w.Width))
}

func (g *Game) drawSidebar(screen *ebiten.Image, st client.State, left int) {
	x := left + 10
	y := 10
	for _, line := range client.StatusLines(st, g.client.State()) {
		ebitenutil.DebugPrintAt(screen, line, x, y)
		y += glyphHeight
	}
	y += glyphHeight
	if g.editing {
		ebitenutil.DebugPrintAt(screen, "Name: "+string(g.name)+"_", x, y)
		ebitenutil.DebugPrintAt(screen, "Enter save, Esc cancel", x, y+glyphHeight)
		return
	}
	ebitenutil.DebugPrintAt(screen, "WASD move", x, y)
	ebitenutil.DebugPrintAt(screen, "Tab rename, Esc quit", x, y+glyphHeight)
}

func (g *Game) Layout(_, _ int) (int, int) {
	w := g.client.Roster().Snapshot().World()
	return int(w.Width) + sidebarWidth, int(w.Height)
}

// Run 打开窗口并阻塞到窗口关闭或 ctx 取消
func Run(ctx context.Context, g *Game, title string) error {
	g.quit = ctx.Done()
	w := g.client.Roster().Snapshot().World()
	ebiten.SetWindowSize(int(w.Width)+sidebarWidth, int(w.Height))
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	defer g.Close()
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
