// Package ui implements the interactive job watcher using bubbletea's Elm architecture.
//
// [WatchModel] consumes the update channel from [jobs.Poller.Watch] one message at a time
// (waitForUpdate re-arms itself after every update), showing a spinner, the current status
// badge and the list of status transitions. Quitting cancels the watch; the job keeps running
// on the backend.
//
// Colors come from a small lipgloss [Palette] that the CLI also uses for status badges.
package ui
