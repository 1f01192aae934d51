package common

import (
	"errors"
	"sync"
)

// ErrModulePaused is returned by Guard when the named module is halted.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the pause switches consulted before every mutating entry
// point.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard returns ErrModulePaused when the view reports the module as halted.
// A nil view or empty module name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Switches is an in-memory PauseView with mutable per-module flags.
type Switches struct {
	mu     sync.RWMutex
	paused map[string]bool
}

// NewSwitches constructs an empty switch set (nothing paused).
func NewSwitches() *Switches {
	return &Switches{paused: make(map[string]bool)}
}

// Set flips the pause flag for the named module.
func (s *Switches) Set(module string, paused bool) {
	if s == nil || module == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused[module] = paused
}

// IsPaused implements the PauseView interface.
func (s *Switches) IsPaused(module string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused[module]
}
