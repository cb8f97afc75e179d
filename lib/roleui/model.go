// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roleui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/bureau-roles/lib/changeroles"
	"github.com/bureau-foundation/bureau-roles/lib/roster"
	"github.com/bureau-foundation/bureau-roles/lib/tui"
)

// Controller is the part of a changeroles.Coordinator the editor
// drives.
type Controller interface {
	State() changeroles.State
	Subscribe() (<-chan changeroles.State, func())
	Search(query string) *changeroles.Task
	ToggleSearchActive()
	ToggleSelection(member roster.Member)
	CanRemove(member roster.Member) bool
	Save() *changeroles.Task
	RequestExit()
	CancelExit()
	ClearError()
}

var _ Controller = (*changeroles.Coordinator)(nil)

// noticeDuration is how long a refusal notice stays in the status line.
const noticeDuration = 3 * time.Second

// stateMsg carries a coordinator snapshot into the update loop.
type stateMsg struct {
	state changeroles.State
}

type noticeFadeMsg struct {
	id int
}

// Model is the bubbletea model for the role editor.
type Model struct {
	controller  Controller
	theme       tui.Theme
	keys        KeyMap
	updates     <-chan changeroles.State
	unsubscribe func()

	state changeroles.State
	input textinput.Model
	query string // last query sent to the controller

	width  int
	height int
	ready  bool

	cursor       int
	scrollOffset int

	notice   string
	noticeID int
}

// NewModel subscribes to controller and returns a model showing its
// current state. Call Close when the program exits.
func NewModel(controller Controller) Model {
	updates, unsubscribe := controller.Subscribe()
	state := controller.State()

	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = "search members"
	input.SetValue(state.Query)
	if state.SearchActive {
		input.Focus()
	}

	return Model{
		controller:  controller,
		theme:       tui.DefaultTheme,
		keys:        DefaultKeyMap,
		updates:     updates,
		unsubscribe: unsubscribe,
		state:       state,
		input:       input,
		query:       state.Query,
	}
}

// Close ends the model's subscription.
func (model Model) Close() {
	model.unsubscribe()
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return listenForState(model.updates)
}

// listenForState blocks until the coordinator publishes a snapshot.
func listenForState(channel <-chan changeroles.State) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-channel
		if !ok {
			return nil
		}
		return stateMsg{state: state}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		return model.handleKey(message)

	case stateMsg:
		model.state = message.state
		focus := model.syncInput()
		model.clampCursor()
		if model.state.Exit.Is(changeroles.ActionSuccess) {
			return model, tea.Quit
		}
		return model, tea.Batch(listenForState(model.updates), focus)

	case noticeFadeMsg:
		if message.id == model.noticeID {
			model.notice = ""
		}

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.input.Width = max(message.Width-4, 1)
		model.clampCursor()
	}
	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(message, model.keys.ForceQuit) {
		return model, tea.Quit
	}

	switch {
	case model.state.Save.Is(changeroles.ActionFailure):
		// Any key acknowledges the failure.
		model.controller.ClearError()
		return model.refresh(nil)

	case model.state.Exit.Is(changeroles.ActionConfirming):
		switch {
		case key.Matches(message, model.keys.Confirm):
			model.controller.RequestExit()
		case key.Matches(message, model.keys.Cancel):
			model.controller.CancelExit()
		}
		return model.refresh(nil)

	case model.state.Save.Is(changeroles.ActionLoading), model.state.Save.Is(changeroles.ActionSuccess):
		return model, nil
	}

	if model.state.SearchActive {
		return model.handleSearchKey(message)
	}
	return model.handleListKey(message)
}

func (model Model) handleSearchKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.SearchClose):
		model.controller.ToggleSearchActive()
		return model.refresh(nil)
	case message.Type == tea.KeyUp:
		model.moveCursor(-1)
		return model, nil
	case message.Type == tea.KeyDown:
		model.moveCursor(1)
		return model, nil
	}

	var cmd tea.Cmd
	model.input, cmd = model.input.Update(message)
	if query := model.input.Value(); query != model.query {
		model.query = query
		model.controller.Search(query)
		model.cursor, model.scrollOffset = 0, 0
	}
	return model.refresh(cmd)
}

func (model Model) handleListKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Up):
		model.moveCursor(-1)
	case key.Matches(message, model.keys.Down):
		model.moveCursor(1)
	case key.Matches(message, model.keys.PageUp):
		model.moveCursor(-model.visibleHeight())
	case key.Matches(message, model.keys.PageDown):
		model.moveCursor(model.visibleHeight())

	case key.Matches(message, model.keys.Toggle):
		return model.toggleCursor()

	case key.Matches(message, model.keys.SearchActivate):
		model.controller.ToggleSearchActive()
		return model.refresh(nil)

	case key.Matches(message, model.keys.Save):
		if !model.state.Loaded {
			return model.flash("Members are not loaded yet")
		}
		if !model.state.HasPendingChanges {
			return model.flash("Nothing to save")
		}
		model.controller.Save()
		return model.refresh(nil)

	case key.Matches(message, model.keys.Exit):
		model.controller.RequestExit()
		return model.refresh(nil)
	}
	return model, nil
}

func (model Model) toggleCursor() (tea.Model, tea.Cmd) {
	if !model.state.Loaded {
		return model.flash("Members are not loaded yet")
	}
	members := model.state.Search.Members
	if model.cursor < 0 || model.cursor >= len(members) {
		return model, nil
	}
	member := members[model.cursor]
	if !model.controller.CanRemove(member) {
		return model.flash(fmt.Sprintf("%s is an admin; only they can change their own role", member.Name()))
	}
	model.controller.ToggleSelection(member)
	return model.refresh(nil)
}

// refresh re-reads the coordinator after an action and quits once the
// exit action has succeeded.
func (model Model) refresh(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	model.state = model.controller.State()
	if focus := model.syncInput(); focus != nil {
		cmd = tea.Batch(cmd, focus)
	}
	model.clampCursor()
	if model.state.Exit.Is(changeroles.ActionSuccess) {
		return model, tea.Quit
	}
	return model, cmd
}

// syncInput matches the text field's focus to the state. The field's
// value is only ever written by keystrokes; a snapshot still in flight
// may carry an older query.
func (model *Model) syncInput() tea.Cmd {
	switch {
	case model.state.SearchActive && !model.input.Focused():
		return model.input.Focus()
	case !model.state.SearchActive && model.input.Focused():
		model.input.Blur()
	}
	return nil
}

func (model Model) flash(notice string) (tea.Model, tea.Cmd) {
	model.noticeID++
	model.notice = notice
	id := model.noticeID
	return model, tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return noticeFadeMsg{id: id}
	})
}

func (model *Model) moveCursor(delta int) {
	model.cursor += delta
	model.clampCursor()
}

// clampCursor keeps the cursor on a row and the row on screen.
func (model *Model) clampCursor() {
	count := len(model.state.Search.Members)
	model.cursor = max(min(model.cursor, count-1), 0)

	visible := model.visibleHeight()
	if model.cursor < model.scrollOffset {
		model.scrollOffset = model.cursor
	}
	if visible > 0 && model.cursor >= model.scrollOffset+visible {
		model.scrollOffset = model.cursor - visible + 1
	}
	model.scrollOffset = max(min(model.scrollOffset, count-visible), 0)
}

// chromeHeight is the header, search line, separator, and status line.
const chromeHeight = 4

func (model Model) visibleHeight() int {
	return max(model.height-chromeHeight, 1)
}

// State returns the snapshot the model is rendering.
func (model Model) State() changeroles.State {
	return model.state
}
