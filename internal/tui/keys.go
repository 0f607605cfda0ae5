// SPDX-License-Identifier: MIT
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Pause   key.Binding
	Layout  key.Binding
	Color   key.Binding
	Restart key.Binding
	Back    key.Binding
	Forward key.Binding
	Quit    key.Binding
}

var visualizerKeys = keyMap{
	Pause:   key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "pause")),
	Layout:  key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "layout")),
	Color:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "colour")),
	Restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
	Back:    key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-5s")),
	Forward: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+5s")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Pause, k.Layout, k.Color, k.Restart, k.Back, k.Forward, k.Quit}
}

// helpLine renders "space pause  l layout ..." from the bindings.
func (k keyMap) helpLine() string {
	parts := make([]string, 0, 7)
	for _, b := range k.bindings() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}
