package render

import (
	"fmt"

	"github.com/ppiankov/darklens/internal/model"
)

// Cursor tracks the selected detection of a presented session. It lives
// outside the session and never modifies it.
type Cursor struct {
	detections []model.Detection
	selected   int // -1 when nothing is selected
}

// NewCursor creates a cursor over result with nothing selected
func NewCursor(result *model.AnalysisResult) *Cursor {
	c := &Cursor{selected: -1}
	if result != nil {
		c.detections = result.Detections
	}
	return c
}

// Select selects the detection with id
func (c *Cursor) Select(id string) error {
	for i, d := range c.detections {
		if d.ID == id {
			c.selected = i
			return nil
		}
	}
	return fmt.Errorf("no detection with id %q", id)
}

// SelectIndex selects the n-th detection, counting from 1
func (c *Cursor) SelectIndex(n int) error {
	if n < 1 || n > len(c.detections) {
		return fmt.Errorf("detection %d out of range (1-%d)", n, len(c.detections))
	}
	c.selected = n - 1
	return nil
}

// Clear deselects
func (c *Cursor) Clear() {
	c.selected = -1
}

// Next moves to the following detection, wrapping around
func (c *Cursor) Next() {
	if len(c.detections) == 0 {
		return
	}
	c.selected = (c.selected + 1) % len(c.detections)
}

// Prev moves to the preceding detection, wrapping around
func (c *Cursor) Prev() {
	if len(c.detections) == 0 {
		return
	}
	if c.selected <= 0 {
		c.selected = len(c.detections) - 1
		return
	}
	c.selected--
}

// Selected returns the selected detection
func (c *Cursor) Selected() (model.Detection, bool) {
	if c.selected < 0 || c.selected >= len(c.detections) {
		return model.Detection{}, false
	}
	return c.detections[c.selected], true
}

// SelectedID returns the selected detection id, or ""
func (c *Cursor) SelectedID() string {
	d, ok := c.Selected()
	if !ok {
		return ""
	}
	return d.ID
}
