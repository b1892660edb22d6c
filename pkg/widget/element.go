package widget

import (
	"reflect"
	"sync"

	"github.com/go-go-golems/chatkit-host/pkg/actions"
)

// ActionEventName is the custom event the widget fires for in-chat actions.
const ActionEventName = "chatkit.action"

type CustomEvent struct {
	Name   string
	Detail *actions.Detail
}

// EventListener is identified by interface equality, so implementations
// should use pointer receivers.
type EventListener interface {
	HandleEvent(ev *CustomEvent)
}

// EventListenerFunc adapts a function for one-off dispatching. Function values
// are not comparable, so a listener registered this way cannot be removed.
type EventListenerFunc func(ev *CustomEvent)

func (f EventListenerFunc) HandleEvent(ev *CustomEvent) { f(ev) }

// Element is the widget's root node as seen by the host.
type Element struct {
	tag string

	mu        sync.RWMutex
	listeners map[string][]EventListener
}

func NewElement(tag string) *Element {
	return &Element{
		tag:       tag,
		listeners: map[string][]EventListener{},
	}
}

func (e *Element) Tag() string {
	if e == nil {
		return ""
	}
	return e.tag
}

func (e *Element) AddEventListener(name string, l EventListener) {
	if e == nil || l == nil {
		return
	}
	e.mu.Lock()
	e.listeners[name] = append(e.listeners[name], l)
	e.mu.Unlock()
}

// RemoveEventListener drops the most recent registration of l for name.
func (e *Element) RemoveEventListener(name string, l EventListener) {
	if e == nil || l == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ls := e.listeners[name]
	for i := len(ls) - 1; i >= 0; i-- {
		if sameListener(ls[i], l) {
			e.listeners[name] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(e.listeners[name]) == 0 {
		delete(e.listeners, name)
	}
}

// DispatchEvent calls the listeners registered at dispatch time, in order,
// and returns how many were called.
func (e *Element) DispatchEvent(ev *CustomEvent) int {
	if e == nil || ev == nil {
		return 0
	}
	e.mu.RLock()
	snapshot := append([]EventListener(nil), e.listeners[ev.Name]...)
	e.mu.RUnlock()
	for _, l := range snapshot {
		l.HandleEvent(ev)
	}
	return len(snapshot)
}

func (e *Element) ListenerCount(name string) int {
	if e == nil {
		return 0
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[name])
}

// sameListener never matches uncomparable dynamic types such as func adapters.
func sameListener(a, b EventListener) bool {
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}
