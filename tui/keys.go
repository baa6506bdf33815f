// Package tui implements the terminal window of Proxy Tray.
// This file contains the key bindings.
package tui

import "github.com/charmbracelet/bubbles/key"

// ListKeys are active while the configuration list is shown.
type ListKeys struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Clear    key.Binding
	Toggle   key.Binding
	Add      key.Binding
	Edit     key.Binding
	Delete   key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Copy     key.Binding
	Hide     key.Binding
	Quit     key.Binding
}

var listKeys = ListKeys{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("j/k", "navigate"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("j/k", "navigate"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "use"),
	),
	Clear: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "unselect"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "space"),
		key.WithHelp("Space", "enable/disable"),
	),
	Add: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "add"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit"),
	),
	Delete: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "delete"),
	),
	MoveUp: key.NewBinding(
		key.WithKeys("K"),
		key.WithHelp("K/J", "move"),
	),
	MoveDown: key.NewBinding(
		key.WithKeys("J"),
		key.WithHelp("K/J", "move"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy address"),
	),
	Hide: key.NewBinding(
		key.WithKeys("esc", "q"),
		key.WithHelp("Esc", "hide"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+q"),
		key.WithHelp("Ctrl+q", "quit"),
	),
}

// FormKeys are active while the configuration form is shown.
type FormKeys struct {
	Save   key.Binding
	Cancel key.Binding
	Next   key.Binding
	Prev   key.Binding
}

var formKeys = FormKeys{
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("Ctrl+s", "save"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "cancel"),
	),
	Next: key.NewBinding(
		key.WithKeys("tab", "down", "enter"),
		key.WithHelp("Tab", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
	),
}

// ConfirmKeys answer the delete confirmation.
type ConfirmKeys struct {
	Yes key.Binding
	No  key.Binding
}

var confirmKeys = ConfirmKeys{
	Yes: key.NewBinding(key.WithKeys("y", "Y")),
	No:  key.NewBinding(key.WithKeys("n", "N", "esc")),
}
