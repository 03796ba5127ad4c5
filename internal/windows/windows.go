// Package windows tracks open chat surfaces. Windows are ephemeral UI
// sessions keyed by id, optionally bound to a channel, server or
// friend; at most one window is active at a time.
package windows

import (
	"sync"

	"github.com/teris-io/shortid"
)

type Tab string

const (
	TabChat Tab = "chat"
	TabCall Tab = "call"
)

type Window struct {
	Id        string
	ServerId  string
	ChannelId string
	FriendId  string
	Tab       Tab
}

// Lookup selects a window by exactly one of its alternate keys.
type Lookup struct {
	Id        string
	ChannelId string
	FriendId  string
}

type Manager struct {
	mu         sync.RWMutex
	open       []Window
	active     string
	lastActive string

	generateId func() (string, error)
}

func NewManager() *Manager {
	return &Manager{generateId: shortid.Generate}
}

// CreateWindow opens a window, or re-activates the existing one when a
// window with the same id is already open. A missing id gets a
// generated one; the id of the opened window is returned.
func (m *Manager) CreateWindow(w Window) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w.Id == "" {
		id, err := m.generateId()
		if err != nil {
			return ""
		}
		w.Id = id
	}

	for i := range m.open {
		if m.open[i].Id == w.Id {
			m.active = w.Id
			return w.Id
		}
	}

	if w.Tab == "" {
		w.Tab = TabChat
	}
	m.open = append(m.open, w)
	m.active = w.Id
	return w.Id
}

func (m *Manager) CloseWindow(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
}

// CloseDeadWindow force-closes a window whose backing entity was
// removed server-side.
func (m *Manager) CloseDeadWindow(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
}

func (m *Manager) removeLocked(id string) {
	for i := range m.open {
		if m.open[i].Id == id {
			m.open = append(m.open[:i], m.open[i+1:]...)
			break
		}
	}
	if m.active == id {
		m.active = ""
	}
}

// SetActiveWindow moves focus, remembering the previous focus for a
// single-step restore.
func (m *Manager) SetActiveWindow(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != "" {
		m.lastActive = m.active
	}
	m.active = id
}

func (m *Manager) ReuseLastWindow() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = m.lastActive
}

func (m *Manager) GetActiveWindow() *Window {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLocked(Lookup{Id: m.active})
}

func (m *Manager) GetWindow(l Lookup) *Window {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLocked(l)
}

func (m *Manager) findLocked(l Lookup) *Window {
	for i := range m.open {
		w := &m.open[i]
		switch {
		case l.Id != "":
			if w.Id == l.Id {
				out := *w
				return &out
			}
		case l.ChannelId != "":
			if w.ChannelId == l.ChannelId {
				out := *w
				return &out
			}
		case l.FriendId != "":
			if w.FriendId == l.FriendId {
				out := *w
				return &out
			}
		}
	}
	return nil
}

func (m *Manager) OpenWindows() []Window {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Window(nil), m.open...)
}

// ToggleCallTab flips the identified window between its chat and call
// tabs.
func (m *Manager) ToggleCallTab(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.open {
		if m.open[i].Id != id {
			continue
		}
		if m.open[i].Tab == TabCall {
			m.open[i].Tab = TabChat
		} else {
			m.open[i].Tab = TabCall
		}
		return
	}
}

func (m *Manager) GoToChatTab(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.open {
		if m.open[i].Id == id {
			m.open[i].Tab = TabChat
			return
		}
	}
}

// ChannelWindowOpen implements the store's window-presence check.
func (m *Manager) ChannelWindowOpen(channelId string) bool {
	return m.GetWindow(Lookup{ChannelId: channelId}) != nil
}
