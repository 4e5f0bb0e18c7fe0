package mapview

import (
	"math"
	"sort"
	"strings"
	"sync"
)

// cellsPerTile sets how many board cells one map tile spans at a zoom level.
const cellsPerTile = 4

// Board is an in-memory Widget that can plot its markers on a character grid.
type Board struct {
	mu      sync.RWMutex
	markers map[string]Marker
	center  LatLng
	zoom    int
}

func NewBoard() *Board {
	return &Board{
		markers: make(map[string]Marker),
		center:  DefaultCenter,
		zoom:    DefaultZoom,
	}
}

func (b *Board) AddMarker(m Marker) {
	b.mu.Lock()
	b.markers[m.Key] = m
	b.mu.Unlock()
}

func (b *Board) UpdateMarker(m Marker) {
	b.mu.Lock()
	b.markers[m.Key] = m
	b.mu.Unlock()
}

func (b *Board) RemoveMarker(key string) {
	b.mu.Lock()
	delete(b.markers, key)
	b.mu.Unlock()
}

func (b *Board) SetView(center LatLng, zoom int) {
	b.mu.Lock()
	b.center = center
	b.zoom = zoom
	b.mu.Unlock()
}

// View returns the current center and zoom.
func (b *Board) View() (LatLng, int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.center, b.zoom
}

// Markers returns the markers ordered by key.
func (b *Board) Markers() []Marker {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Marker, 0, len(b.markers))
	for _, m := range b.markers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Marker returns the marker for key, if any.
func (b *Board) Marker(key string) (Marker, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.markers[key]
	return m, ok
}

// Plot draws the board as rows of cols cells centered on the view. Each cell
// is two terminal columns wide so an emoji fits. Markers outside the grid are
// returned in offscreen. When two markers share a cell the first by key wins.
func (b *Board) Plot(cols, rows int) (lines []string, offscreen []Marker) {
	if cols <= 0 || rows <= 0 {
		return nil, b.Markers()
	}
	center, zoom := b.View()

	grid := make([][]string, rows)
	for i := range grid {
		grid[i] = make([]string, cols)
		for j := range grid[i] {
			grid[i][j] = "· "
		}
	}

	step := 360 / math.Exp2(float64(zoom)) / cellsPerTile
	for _, m := range b.Markers() {
		col := int(math.Floor((m.Position.Lng-center.Lng)/step)) + cols/2
		row := rows/2 - int(math.Floor((m.Position.Lat-center.Lat)/step)) - 1
		if col < 0 || col >= cols || row < 0 || row >= rows {
			offscreen = append(offscreen, m)
			continue
		}
		if grid[row][col] != "· " {
			continue
		}
		grid[row][col] = m.Icon.Emoji
	}

	lines = make([]string, rows)
	for i, row := range grid {
		lines[i] = strings.Join(row, "")
	}
	return lines, offscreen
}
