package client

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type drawOp struct {
	kind       string
	x, y, w, h float64
	c          color.Color
	text       string
}

// recorder 记录绘制调用的 Surface
type recorder struct{ ops []drawOp }

func (r *recorder) Fill(c color.Color) { r.ops = append(r.ops, drawOp{kind: "fill", c: c}) }
func (r *recorder) FillRect(x, y, w, h float64, c color.Color) {
	r.ops = append(r.ops, drawOp{kind: "rect", x: x, y: y, w: w, h: h, c: c})
}
func (r *recorder) StrokeRect(x, y, w, h, _ float64, c color.Color) {
	r.ops = append(r.ops, drawOp{kind: "stroke", x: x, y: y, w: w, h: h, c: c})
}
func (r *recorder) Line(x0, y0, x1, y1, _ float64, c color.Color) {
	r.ops = append(r.ops, drawOp{kind: "line", x: x0, y: y0, w: x1, h: y1, c: c})
}
func (r *recorder) Text(s string, x, y float64, c color.Color) {
	r.ops = append(r.ops, drawOp{kind: "text", x: x, y: y, text: s, c: c})
}

func (r *recorder) count(kind string) int {
	n := 0
	for _, op := range r.ops {
		if op.kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) only(kind string) []drawOp {
	var out []drawOp
	for _, op := range r.ops {
		if op.kind == kind {
			out = append(out, op)
		}
	}
	return out
}

func TestRender_EmptyRoster(t *testing.T) {
	rec := &recorder{}
	NewRenderer(DefaultRenderOptions).Render(rec, EmptyState())

	require.NotEmpty(t, rec.ops)
	assert.Equal(t, "fill", rec.ops[0].kind)
	assert.Equal(t, DefaultRenderOptions.Background, rec.ops[0].c)
	// 800/20+1 条竖线，600/20+1 条横线
	assert.Equal(t, 41+31, rec.count("line"))
	assert.Zero(t, rec.count("rect"))
	assert.Zero(t, rec.count("text"))
	assert.Zero(t, rec.count("stroke"))
}

func TestRender_GridDisabled(t *testing.T) {
	opts := DefaultRenderOptions
	opts.ShowGrid = false
	rec := &recorder{}
	NewRenderer(opts).Render(rec, EmptyState())

	assert.Len(t, rec.ops, 1)
}

func TestRender_PlayersAndSelfOutline(t *testing.T) {
	opts := DefaultRenderOptions
	opts.ShowGrid = false
	st := seeded([]Player{
		{ID: "p1", Name: "A", X: 10, Y: 10, Color: "#f00"},
		{ID: "p2", Name: "B", X: 100, Y: 50, Color: "not-a-color"},
	}, "p1")

	rec := &recorder{}
	NewRenderer(opts).Render(rec, st)

	rects := rec.only("rect")
	require.Len(t, rects, 2)
	assert.Equal(t, drawOp{kind: "rect", x: 8, y: 8, w: 4, h: 4, c: color.RGBA{R: 0xff, A: 0xff}}, rects[0])
	assert.Equal(t, opts.Fallback, rects[1].c)

	texts := rec.only("text")
	require.Len(t, texts, 2)
	assert.Equal(t, "A", texts[0].text)
	assert.Equal(t, 10.0, texts[0].x)
	assert.Equal(t, 2.0, texts[0].y)

	strokes := rec.only("stroke")
	require.Len(t, strokes, 1, "only the local player is outlined")
	assert.Equal(t, drawOp{kind: "stroke", x: 6, y: 6, w: 8, h: 8, c: opts.OutlineColor}, strokes[0])
}

func TestRender_SelfNotInRoster(t *testing.T) {
	opts := DefaultRenderOptions
	opts.ShowGrid = false
	st := seeded([]Player{bob}, "p1")

	rec := &recorder{}
	NewRenderer(opts).Render(rec, st)

	assert.Equal(t, 1, rec.count("rect"))
	assert.Zero(t, rec.count("stroke"))
}

func TestRender_UsesWorldConfig(t *testing.T) {
	st := EmptyState().WithSnapshot(GameState{GameConfig: &WorldConfig{Width: 40, Height: 20, PlayerSize: 8}})
	rec := &recorder{}
	NewRenderer(DefaultRenderOptions).Render(rec, st)

	assert.Equal(t, 3+2, rec.count("line"))
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.Color
		wantErr bool
	}{
		{in: "#FF6B6B", want: color.RGBA{R: 0xff, G: 0x6b, B: 0x6b, A: 0xff}},
		{in: "#0f0", want: color.RGBA{G: 0xff, A: 0xff}},
		{in: "00ff00", want: color.RGBA{G: 0xff, A: 0xff}},
		{in: "", wantErr: true},
		{in: "#12345", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			assert.Nil(t, got)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
