// Package display is an optional SDL2-backed scrollback terminal for
// cmd/vm80run's -display flag. The core and the cpm harness never
// depend on it and run headlessly by default; this exists purely so a
// CP/M program's console output can be watched interactively instead of
// buffered to stdout.
//
// Grounded on vcs/vcs_main.go's sdl.Main/sdl.Do window setup, repurposed
// from a raw NTSC pixel surface (fastImage) to a fixed 80x25 glyph grid
// rendered with golang.org/x/image/font/basicfont, since the 8080 core
// defines no video device of its own — only a text console.
package display

import (
	"fmt"
	"image"
	"image/color"

	"github.com/veandco/go-sdl2/sdl"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// surfaceImage adapts an sdl.Surface to draw.Image, the same poke-
// directly-into-Pixels() idea as vcs_main.go's fastImage, generalized to
// also support Set (font.Drawer needs a full draw.Image, not just the
// write-only path fastImage specialized for raw video).
type surfaceImage struct {
	surface *sdl.Surface
}

func (s surfaceImage) ColorModel() color.Model { return s.surface.ColorModel() }
func (s surfaceImage) Bounds() image.Rectangle { return s.surface.Bounds() }
func (s surfaceImage) At(x, y int) color.Color { return s.surface.At(x, y) }

func (s surfaceImage) Set(x, y int, c color.Color) {
	r, g, b, a := c.RGBA()
	data := s.surface.Pixels()
	i := int32(y)*s.surface.Pitch + int32(x)*int32(s.surface.Format.BytesPerPixel)
	if i < 0 || int(i)+3 >= len(data) {
		return
	}
	data[i+0] = uint8(r >> 8)
	data[i+1] = uint8(g >> 8)
	data[i+2] = uint8(b >> 8)
	data[i+3] = uint8(a >> 8)
}

const (
	cols = 80
	rows = 25

	glyphW = 8
	glyphH = 13
)

// Terminal is an 80x25 character grid window. It implements io.Writer so
// it can be handed directly to io.NewConsole as the output sink.
type Terminal struct {
	window  *sdl.Window
	surface *sdl.Surface
	face    font.Face

	grid [rows][cols]byte
	col  int
	row  int
}

// Open creates and shows an SDL2 window sized for an 80x25 character
// grid scaled by factor. Must be called from inside sdl.Main, exactly as
// vcs_main.go requires for all SDL calls.
func Open(scale int) (*Terminal, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("display: sdl.Init: %w", err)
	}
	w := int32(cols * glyphW * scale)
	h := int32(rows * glyphH * scale)
	window, err := sdl.CreateWindow("vm80", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, w, h, sdl.WINDOW_SHOWN)
	if err != nil {
		return nil, fmt.Errorf("display: sdl.CreateWindow: %w", err)
	}
	surface, err := window.GetSurface()
	if err != nil {
		return nil, fmt.Errorf("display: window.GetSurface: %w", err)
	}
	t := &Terminal{window: window, surface: surface, face: basicfont.Face7x13}
	t.clear()
	return t, nil
}

// Close tears down the window.
func (t *Terminal) Close() {
	t.window.Destroy()
	sdl.Quit()
}

// Write implements io.Writer: each byte is appended to the grid as a
// glyph, scrolling the grid up a row on '\n' or when a row fills.
func (t *Terminal) Write(p []byte) (int, error) {
	for _, b := range p {
		t.putByte(b)
	}
	t.render()
	return len(p), nil
}

func (t *Terminal) putByte(b byte) {
	if b == '\n' || t.col >= cols {
		t.col = 0
		t.row++
		if t.row >= rows {
			t.scroll()
			t.row = rows - 1
		}
		if b == '\n' {
			return
		}
	}
	t.grid[t.row][t.col] = b
	t.col++
}

func (t *Terminal) scroll() {
	for r := 0; r < rows-1; r++ {
		t.grid[r] = t.grid[r+1]
	}
	t.grid[rows-1] = [cols]byte{}
}

func (t *Terminal) clear() {
	for r := range t.grid {
		t.grid[r] = [cols]byte{}
	}
}

// render draws the full grid to the window surface. Unlike
// vcs_main.go's fastImage, which pokes individual pixels directly into
// the surface buffer for speed on a per-scanline video signal, a text
// terminal redraws at most 25 lines per frame, so going through the
// ordinary image/draw-style font.Drawer API is plenty fast.
func (t *Terminal) render() {
	t.surface.FillRect(nil, 0)
	green := color.RGBA{R: 0, G: 255, B: 0, A: 255}
	img := surfaceImage{t.surface}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(green),
		Face: t.face,
	}
	for r := 0; r < rows; r++ {
		d.Dot = fixed.P(0, (r+1)*glyphH)
		line := t.grid[r][:]
		d.DrawBytes(line)
	}
	t.window.UpdateSurface()
}
