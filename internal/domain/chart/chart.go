// Package chart is the dental chart widget: a set of FDI tooth codes marked
// as having a noted problem.
package chart

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrInvalidTooth = errors.New("invalid tooth code")

// Arch is one row of the chart as drawn: upper-right to upper-left, then the
// lower arch from the patient's right.
type Arch struct {
	Name  string
	Teeth []int
}

// Arches lists the chart rows in display order. Permanent rows wrap the
// primary (deciduous) rows, as on the clinic's paper form.
var Arches = []Arch{
	{Name: "Superior permanente", Teeth: []int{18, 17, 16, 15, 14, 13, 12, 11, 21, 22, 23, 24, 25, 26, 27, 28}},
	{Name: "Superior decídua", Teeth: []int{55, 54, 53, 52, 51, 61, 62, 63, 64, 65}},
	{Name: "Inferior decídua", Teeth: []int{85, 84, 83, 82, 81, 71, 72, 73, 74, 75}},
	{Name: "Inferior permanente", Teeth: []int{48, 47, 46, 45, 44, 43, 42, 41, 31, 32, 33, 34, 35, 36, 37, 38}},
}

var validTeeth = func() map[int]bool {
	m := make(map[int]bool, 52)
	for _, a := range Arches {
		for _, t := range a.Teeth {
			m[t] = true
		}
	}
	return m
}()

// Valid reports whether code is an FDI code drawn on the chart.
func Valid(code int) bool {
	return validTeeth[code]
}

// Quadrant returns the FDI quadrant digit (1-8).
func Quadrant(code int) int {
	return code / 10
}

// Primary reports whether code names a deciduous tooth (quadrants 5-8).
func Primary(code int) bool {
	q := Quadrant(code)
	return q >= 5 && q <= 8
}

// Normalize filters codes down to valid teeth, deduplicated and sorted.
func Normalize(codes []int) []int {
	seen := make(map[int]bool, len(codes))
	out := make([]int, 0, len(codes))
	for _, c := range codes {
		if validTeeth[c] && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Ints(out)
	return out
}

// Chart holds the selection. onChange receives the full sorted selection
// after every toggle; a read-only chart never calls it.
type Chart struct {
	mu       sync.Mutex
	selected map[int]bool
	readOnly bool
	onChange func([]int)
}

func New(initial []int, onChange func([]int)) *Chart {
	c := &Chart{selected: make(map[int]bool), onChange: onChange}
	for _, t := range Normalize(initial) {
		c.selected[t] = true
	}
	return c
}

// NewReadOnly builds a chart for detail views and exports.
func NewReadOnly(initial []int) *Chart {
	c := New(initial, nil)
	c.readOnly = true
	return c
}

func (c *Chart) ReadOnly() bool {
	return c.readOnly
}

// Toggle flips membership of code and reports the new selection to the
// change callback.
func (c *Chart) Toggle(code int) error {
	if !validTeeth[code] {
		return fmt.Errorf("%w: %d", ErrInvalidTooth, code)
	}
	if c.readOnly {
		return nil
	}

	c.mu.Lock()
	if c.selected[code] {
		delete(c.selected, code)
	} else {
		c.selected[code] = true
	}
	sel := c.selectionLocked()
	cb := c.onChange
	c.mu.Unlock()

	if cb != nil {
		cb(sel)
	}
	return nil
}

func (c *Chart) Selected(code int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected[code]
}

// Selection returns the selected codes in ascending order.
func (c *Chart) Selection() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectionLocked()
}

func (c *Chart) selectionLocked() []int {
	out := make([]int, 0, len(c.selected))
	for t := range c.selected {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

// Cell is one tooth as rendered.
type Cell struct {
	Code     int
	Selected bool
}

// Row is one rendered arch.
type Row struct {
	Name  string
	Cells []Cell
}

// Render lays the selection out on the arch rows.
func (c *Chart) Render() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := make([]Row, 0, len(Arches))
	for _, a := range Arches {
		row := Row{Name: a.Name, Cells: make([]Cell, 0, len(a.Teeth))}
		for _, t := range a.Teeth {
			row.Cells = append(row.Cells, Cell{Code: t, Selected: c.selected[t]})
		}
		rows = append(rows, row)
	}
	return rows
}
