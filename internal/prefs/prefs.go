// Package prefs persists the page theme. An explicit light or dark
// choice is stored under Key; without one the page follows the system
// color scheme.
package prefs

import (
	"errors"
	"fmt"
	"sync"
)

// Theme is a stored or effective color scheme.
type Theme string

const (
	ThemeUnset Theme = ""
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Storage key and values, kept compatible with pages that already wrote
// them to localStorage.
const (
	Key           = "darkMode"
	ValueEnabled  = "enabled"
	ValueDisabled = "disabled"
)

// ErrUnknownTheme is returned by ParseTheme.
var ErrUnknownTheme = errors.New("unknown theme")

// ParseTheme accepts light, dark and system (or "") for unset.
func ParseTheme(s string) (Theme, error) {
	switch s {
	case "light", "off", ValueDisabled:
		return ThemeLight, nil
	case "dark", "on", ValueEnabled:
		return ThemeDark, nil
	case "", "system":
		return ThemeUnset, nil
	}
	return ThemeUnset, fmt.Errorf("%w: %q", ErrUnknownTheme, s)
}

// Store is a string key-value store.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// Preference resolves the effective theme from a Store and the system
// scheme. The store is read once, on first use.
type Preference struct {
	store Store

	mu         sync.Mutex
	loaded     bool
	stored     Theme
	systemDark bool
}

// NewPreference returns a preference backed by store. systemDark is the
// current system scheme.
func NewPreference(store Store, systemDark bool) *Preference {
	return &Preference{store: store, systemDark: systemDark}
}

func (p *Preference) load() error {
	if p.loaded {
		return nil
	}
	v, ok, err := p.store.Get(Key)
	if err != nil {
		return fmt.Errorf("read theme preference: %w", err)
	}
	p.loaded = true
	if !ok {
		return nil
	}
	switch v {
	case ValueEnabled:
		p.stored = ThemeDark
	case ValueDisabled:
		p.stored = ThemeLight
	}
	return nil
}

// Stored returns the explicit choice, or ThemeUnset.
func (p *Preference) Stored() (Theme, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.load(); err != nil {
		return ThemeUnset, err
	}
	return p.stored, nil
}

// Effective returns the theme to display.
func (p *Preference) Effective() (Theme, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.load(); err != nil {
		return ThemeUnset, err
	}
	return p.effective(), nil
}

func (p *Preference) effective() Theme {
	if p.stored != ThemeUnset {
		return p.stored
	}
	if p.systemDark {
		return ThemeDark
	}
	return ThemeLight
}

// SystemChanged records a new system scheme and returns the effective
// theme. An explicit choice is not affected.
func (p *Preference) SystemChanged(dark bool) Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.systemDark = dark
	return p.effective()
}

// SetDark stores an explicit choice.
func (p *Preference) SetDark(dark bool) error {
	v, t := ValueDisabled, ThemeLight
	if dark {
		v, t = ValueEnabled, ThemeDark
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Set(Key, v); err != nil {
		return fmt.Errorf("write theme preference: %w", err)
	}
	p.loaded = true
	p.stored = t
	return nil
}

// Toggle flips the effective theme and stores the result.
func (p *Preference) Toggle() (Theme, error) {
	eff, err := p.Effective()
	if err != nil {
		return ThemeUnset, err
	}
	dark := eff != ThemeDark
	if err := p.SetDark(dark); err != nil {
		return ThemeUnset, err
	}
	if dark {
		return ThemeDark, nil
	}
	return ThemeLight, nil
}

// Reset forgets the explicit choice so the system scheme applies again.
func (p *Preference) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Delete(Key); err != nil {
		return fmt.Errorf("clear theme preference: %w", err)
	}
	p.loaded = true
	p.stored = ThemeUnset
	return nil
}

// Apply sets the stored choice to t, resetting for ThemeUnset.
func (p *Preference) Apply(t Theme) error {
	switch t {
	case ThemeDark:
		return p.SetDark(true)
	case ThemeLight:
		return p.SetDark(false)
	}
	return p.Reset()
}
