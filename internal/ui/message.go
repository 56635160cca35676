package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunedeck/internal/jobs"
)

// MsgKind enumerates all message types in the watch view.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data jobs.Update
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgJobUpdate MsgKind = iota
	MsgWatchDone
)

// jobUpdateMsg is the constructor for [MsgJobUpdate]
func jobUpdateMsg(update jobs.Update) Msg {
	return Msg{kind: MsgJobUpdate, data: update}
}

// watchDoneMsg is the constructor for [MsgWatchDone]; update is the final observation, if any.
func watchDoneMsg(update jobs.Update) Msg {
	return Msg{kind: MsgWatchDone, data: update}
}
