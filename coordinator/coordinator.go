// Package coordinator keeps at most one dropdown open at a time. Instances
// share an injected Coordinator instead of module-level mutable state; the
// open/close policy lives in one place and is directly testable.
package coordinator

import "sync"

// Coordinator tracks which dropdown, if any, is currently open.
type Coordinator struct {
	mu       sync.Mutex
	open     string
	handlers []*handler
}

type handler struct {
	fn func(openID string)
}

// New creates a Coordinator with nothing open.
func New() *Coordinator {
	return &Coordinator{}
}

// Open marks the given dropdown open, closing whichever was open before.
func (c *Coordinator) Open(id string) {
	c.mu.Lock()
	changed := c.open != id
	c.open = id
	hs := append([]*handler(nil), c.handlers...)
	c.mu.Unlock()
	if changed {
		for _, h := range hs {
			h.fn(id)
		}
	}
}

// CloseAll closes any open dropdown.
func (c *Coordinator) CloseAll() {
	c.mu.Lock()
	changed := c.open != ""
	c.open = ""
	hs := append([]*handler(nil), c.handlers...)
	c.mu.Unlock()
	if changed {
		for _, h := range hs {
			h.fn("")
		}
	}
}

// IsOpen reports whether the given dropdown is the open one.
func (c *Coordinator) IsOpen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open == id
}

// Subscribe registers a handler receiving the open dropdown's id ("" when
// everything is closed) and returns its unsubscribe function.
func (c *Coordinator) Subscribe(fn func(openID string)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := &handler{fn: fn}
	c.handlers = append(c.handlers, h)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, cand := range c.handlers {
			if cand == h {
				c.handlers = append(c.handlers[:i:i], c.handlers[i+1:]...)
				return
			}
		}
	}
}
