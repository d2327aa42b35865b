package instrument

import (
	"maps"
	"sync"
)

// subscription is one listener's enablement of one source.
type subscription struct {
	listener Listener
	options  map[string]string
}

// Hub is the in-process instrumentation system. It tracks every source
// created by the process, tells listeners about them, and routes events
// written by a source to the listeners that enabled it.
//
// The hub never calls into listeners or sources while holding its lock, so
// callbacks may safely call back into the hub.
type Hub struct {
	mu        sync.RWMutex
	sources   []Source
	byID      map[SourceID]Source
	listeners []Listener
	subs      map[SourceID][]subscription
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		byID: make(map[SourceID]Source),
		subs: make(map[SourceID][]subscription),
	}
}

// Register makes a source known to the hub and notifies current listeners.
func (h *Hub) Register(src Source) error {
	h.mu.Lock()
	if _, exists := h.byID[src.ID()]; exists {
		h.mu.Unlock()
		return ErrDuplicateSource
	}
	h.sources = append(h.sources, src)
	h.byID[src.ID()] = src
	listeners := make([]Listener, len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	for _, l := range listeners {
		l.OnSourceCreated(src)
	}
	return nil
}

// Sources returns the registered sources in registration order.
func (h *Hub) Sources() []Source {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Source, len(h.sources))
	copy(out, h.sources)
	return out
}

// AddListener registers a listener and replays every already registered
// source to its OnSourceCreated. Each source is reported exactly once, even
// when Register runs concurrently.
func (h *Hub) AddListener(l Listener) {
	h.mu.Lock()
	for _, existing := range h.listeners {
		if existing == l {
			h.mu.Unlock()
			return
		}
	}
	h.listeners = append(h.listeners, l)
	known := make([]Source, len(h.sources))
	copy(known, h.sources)
	h.mu.Unlock()

	for _, src := range known {
		l.OnSourceCreated(src)
	}
}

// RemoveListener unregisters a listener and disables every source it had
// enabled.
func (h *Hub) RemoveListener(l Listener) {
	h.mu.Lock()
	for i, existing := range h.listeners {
		if existing == l {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			break
		}
	}
	var commands []pendingCommand
	for id := range h.subs {
		if cmd, ok := h.unsubscribeLocked(l, id); ok {
			commands = append(commands, cmd)
		}
	}
	h.mu.Unlock()

	for _, c := range commands {
		c.send()
	}
}

// EnableEvents turns on event delivery from the source with the given ID to
// the listener. Calling it again replaces the listener's options.
func (h *Hub) EnableEvents(l Listener, id SourceID, options map[string]string) error {
	h.mu.Lock()
	if !h.hasListenerLocked(l) {
		h.mu.Unlock()
		return ErrListenerNotRegistered
	}
	src, ok := h.byID[id]
	if !ok {
		h.mu.Unlock()
		return ErrSourceNotFound
	}

	opts := maps.Clone(options)
	subs := h.subs[id]
	replaced := false
	for i := range subs {
		if subs[i].listener == l {
			subs[i].options = opts
			replaced = true
			break
		}
	}
	if !replaced {
		subs = append(subs, subscription{listener: l, options: opts})
	}
	h.subs[id] = subs
	h.mu.Unlock()

	if c, ok := src.(Controllable); ok {
		c.OnCommand(Command{Enable: true, Options: maps.Clone(opts)})
	}
	return nil
}

// DisableEvents turns off event delivery from the source to the listener.
// The source is told to stop once no listener has it enabled.
func (h *Hub) DisableEvents(l Listener, id SourceID) error {
	h.mu.Lock()
	if _, ok := h.byID[id]; !ok {
		h.mu.Unlock()
		return ErrSourceNotFound
	}
	cmd, ok := h.unsubscribeLocked(l, id)
	h.mu.Unlock()

	if ok {
		cmd.send()
	}
	return nil
}

// Enabled reports whether any listener has events enabled for the source.
func (h *Hub) Enabled(id SourceID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[id]) > 0
}

// Write delivers an event to every listener that enabled its source.
// Events from sources nobody enabled are dropped.
func (h *Hub) Write(ev Event) {
	if ev.Source == nil {
		return
	}

	h.mu.RLock()
	subs := h.subs[ev.Source.ID()]
	if len(subs) == 0 {
		h.mu.RUnlock()
		return
	}
	targets := make([]Listener, len(subs))
	for i, s := range subs {
		targets[i] = s.listener
	}
	h.mu.RUnlock()

	for _, l := range targets {
		l.OnEventWritten(ev)
	}
}

func (h *Hub) hasListenerLocked(l Listener) bool {
	for _, existing := range h.listeners {
		if existing == l {
			return true
		}
	}
	return false
}

// pendingCommand is a command to deliver once the hub lock is released.
type pendingCommand struct {
	target Controllable
	cmd    Command
}

func (p pendingCommand) send() {
	if p.target != nil {
		p.target.OnCommand(p.cmd)
	}
}

// unsubscribeLocked removes l from the source's subscriptions. It returns a
// command to send when the source ends up with no subscribers.
func (h *Hub) unsubscribeLocked(l Listener, id SourceID) (pendingCommand, bool) {
	subs := h.subs[id]
	idx := -1
	for i := range subs {
		if subs[i].listener == l {
			idx = i
			break
		}
	}
	if idx < 0 {
		return pendingCommand{}, false
	}

	subs = append(subs[:idx], subs[idx+1:]...)
	if len(subs) > 0 {
		h.subs[id] = subs
		return pendingCommand{}, false
	}
	delete(h.subs, id)

	c, ok := h.byID[id].(Controllable)
	if !ok {
		return pendingCommand{}, false
	}
	return pendingCommand{target: c, cmd: Command{Enable: false}}, true
}
