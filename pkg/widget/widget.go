// Package widget holds the host-side handle on the embedded chat widget:
// its static options and its root element.
package widget

import (
	"sync"
)

// RootTag is the custom element the widget renders as its root.
const RootTag = "openai-chatkit"

// Widget owns a reference to its rendered root node. Root is nil until Mount
// and again after Unmount, which is how callers observe an absent node.
type Widget struct {
	options Options

	mu   sync.RWMutex
	root *Element
}

func New(options Options) *Widget {
	return &Widget{options: options}
}

func (w *Widget) Options() Options {
	return w.options
}

// Mount renders the root element. Mounting twice keeps the existing root.
func (w *Widget) Mount() *Element {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.root == nil {
		w.root = NewElement(RootTag)
	}
	return w.root
}

func (w *Widget) Unmount() {
	w.mu.Lock()
	w.root = nil
	w.mu.Unlock()
}

func (w *Widget) Root() *Element {
	if w == nil {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.root
}
