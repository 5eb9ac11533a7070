package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Focus    key.Binding
	Grab     key.Binding
	Drop     key.Binding
	Abandon  key.Binding
	Filter   key.Binding
	Edit     key.Binding
	Remove   key.Binding
	Collapse key.Binding
	Preview  key.Binding
	Submit   key.Binding
	Copy     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev bucket")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next bucket")),
		Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "pool/buckets")),
		Grab:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pick up")),
		Drop:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop")),
		Abandon:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel drag")),
		Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search pool")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit params")),
		Remove:   key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		Collapse: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "fold bucket")),
		Preview:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview")),
		Submit:   key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "submit")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy json")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp and FullHelp implement help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Focus, k.Grab, k.Drop, k.Abandon, k.Preview, k.Submit, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Focus},
		{k.Grab, k.Drop, k.Abandon, k.Filter},
		{k.Edit, k.Remove, k.Collapse},
		{k.Preview, k.Copy, k.Submit, k.Help, k.Quit},
	}
}

type modalKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Save   key.Binding
	Cancel key.Binding
}

func defaultModalKeyMap() modalKeyMap {
	return modalKeyMap{
		Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		Save:   key.NewBinding(key.WithKeys("enter", "ctrl+s"), key.WithHelp("enter", "save")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

func (k modalKeyMap) ShortHelp() []key.Binding { return []key.Binding{k.Next, k.Prev, k.Save, k.Cancel} }

func (k modalKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }
