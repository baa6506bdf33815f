// Package ui provides the desktop integration of Proxy Tray.
// This file contains the tray icons.
package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/yllada/proxy-tray/common"
)

// IconState is the proxy state shown by the tray icon.
type IconState int

const (
	// IconDisabled means the proxy is switched off.
	IconDisabled IconState = iota
	// IconRunning means the client process is up.
	IconRunning
	// IconFault means the proxy is enabled but the client is not running.
	IconFault
)

// IconConfig defines the configuration for icon generation.
type IconConfig struct {
	Size        int
	FillColor   color.RGBA
	BorderColor color.RGBA
	SymbolColor color.RGBA
	State       IconState
}

// iconConfigFor returns the palette for state.
func iconConfigFor(state IconState) IconConfig {
	cfg := IconConfig{
		Size:        common.TrayIconSize,
		SymbolColor: color.RGBA{255, 255, 255, 255},
		State:       state,
	}
	switch state {
	case IconRunning:
		cfg.FillColor = color.RGBA{25, 118, 210, 255}   // Blue
		cfg.BorderColor = color.RGBA{66, 165, 245, 255} // Light blue
	case IconFault:
		cfg.FillColor = color.RGBA{230, 81, 0, 255}     // Dark orange
		cfg.BorderColor = color.RGBA{255, 152, 0, 255} // Orange
	default:
		cfg.FillColor = color.RGBA{117, 117, 117, 255}   // Dark gray
		cfg.BorderColor = color.RGBA{158, 158, 158, 255} // Gray
	}
	return cfg
}

// IconGenerator renders PNG tray icons.
type IconGenerator struct {
	config IconConfig
}

// NewIconGenerator creates a new icon generator with the given config.
func NewIconGenerator(config IconConfig) *IconGenerator {
	return &IconGenerator{config: config}
}

// Generate creates a PNG icon and returns the bytes.
func (g *IconGenerator) Generate() []byte {
	size := g.config.Size
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	g.drawDisc(img)

	switch g.config.State {
	case IconRunning:
		g.drawArrows(img)
	case IconFault:
		g.drawExclamation(img)
	default:
		g.drawBar(img)
	}

	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

// drawDisc draws a filled circle with a one pixel border.
func (g *IconGenerator) drawDisc(img *image.RGBA) {
	size := float64(g.config.Size)
	center := size / 2
	radius := size/2 - 1

	for y := 0; y < g.config.Size; y++ {
		for x := 0; x < g.config.Size; x++ {
			d := math.Hypot(float64(x)+0.5-center, float64(y)+0.5-center)
			switch {
			case d > radius:
			case d > radius-1.2:
				img.Set(x, y, g.config.BorderColor)
			default:
				img.Set(x, y, g.config.FillColor)
			}
		}
	}
}

// drawArrows draws two opposed horizontal arrows, the relay symbol.
func (g *IconGenerator) drawArrows(img *image.RGBA) {
	c := g.config.SymbolColor
	s := g.config.Size
	top, bottom := s/2-3, s/2+2

	for x := 6; x <= s-7; x++ {
		img.Set(x, top, c)
		img.Set(x, bottom, c)
	}
	for i := 1; i <= 2; i++ {
		// Right-pointing head on the upper arrow
		img.Set(s-7-i, top-i, c)
		img.Set(s-7-i, top+i, c)
		// Left-pointing head on the lower arrow
		img.Set(6+i, bottom-i, c)
		img.Set(6+i, bottom+i, c)
	}
}

// drawBar draws a horizontal bar, the "off" symbol.
func (g *IconGenerator) drawBar(img *image.RGBA) {
	c := g.config.SymbolColor
	s := g.config.Size
	for y := s/2 - 1; y <= s/2; y++ {
		for x := 6; x <= s-7; x++ {
			img.Set(x, y, c)
		}
	}
}

// drawExclamation draws an exclamation mark.
func (g *IconGenerator) drawExclamation(img *image.RGBA) {
	c := g.config.SymbolColor
	s := g.config.Size
	for y := 5; y <= s-10; y++ {
		img.Set(s/2-1, y, c)
		img.Set(s/2, y, c)
	}
	for y := s - 8; y <= s-7; y++ {
		img.Set(s/2-1, y, c)
		img.Set(s/2, y, c)
	}
}

// GenerateIcon renders the icon for state.
func GenerateIcon(state IconState) []byte {
	return NewIconGenerator(iconConfigFor(state)).Generate()
}
