package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunedeck/internal/jobs"
	"github.com/desertthunder/tunedeck/internal/models"
	"github.com/desertthunder/tunedeck/internal/shared"
)

// Watcher starts a background poll. [jobs.Poller] satisfies it.
type Watcher interface {
	Watch(ctx context.Context, id int64, opts jobs.PollOptions) <-chan jobs.Update
}

type transition struct {
	status models.JobStatus
	at     time.Time
}

// WatchModel follows a single job until it settles or the user quits.
type WatchModel struct {
	ctx         context.Context
	cancel      context.CancelFunc
	watcher     Watcher
	jobID       int64
	opts        jobs.PollOptions
	updates     <-chan jobs.Update
	job         *models.Job
	transitions []transition
	err         error
	done        bool
	stopped     bool
	showDetails bool
	started     time.Time
	now         func() time.Time
	spinner     spinner.Model
	help        help.Model
	keys        keyMap
}

// NewWatchModel creates a model that watches id once started.
func NewWatchModel(ctx context.Context, w Watcher, id int64, opts jobs.PollOptions) *WatchModel {
	ctx, cancel := context.WithCancel(ctx)
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title.UnsetMarginBottom()

	return &WatchModel{
		ctx:     ctx,
		cancel:  cancel,
		watcher: w,
		jobID:   id,
		opts:    opts,
		now:     time.Now,
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the watch and the spinner.
func (m *WatchModel) Init() tea.Cmd {
	m.start()
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

// Update handles incoming messages and updates the model state.
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.stopped = true
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.details):
			m.showDetails = !m.showDetails
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgJobUpdate:
			m.observe(msg.data.Job)
			return m, m.waitForUpdate()
		case MsgWatchDone:
			m.observe(msg.data.Job)
			m.err = msg.data.Err
			m.done = true
			m.cancel()
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the current job state.
func (m *WatchModel) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render(fmt.Sprintf("Job #%d", m.jobID)))
	b.WriteString("\n")

	if m.job == nil {
		if m.done && m.err != nil {
			b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
			return b.String()
		}
		fmt.Fprintf(&b, "%s Waiting for first status...\n", m.spinner.View())
		return b.String()
	}

	status := Badge(m.job.Status)
	if !m.done {
		status = m.spinner.View() + " " + status
	}
	fmt.Fprintf(&b, "%s  %s  attempt %d/%d  %s\n", status, m.job.Type, m.job.Attempts, m.job.MaxAttempts,
		shared.FormatDuration(int(m.now().Sub(m.started).Seconds())))

	for _, t := range m.transitions {
		fmt.Fprintf(&b, "  %s %s\n", styles.help.Render(t.at.Format(time.TimeOnly)), t.status)
	}

	if m.showDetails {
		if len(m.job.Payload) > 0 {
			fmt.Fprintf(&b, "\nPayload: %s\n", m.job.Payload)
		}
		if len(m.job.Result) > 0 && string(m.job.Result) != "null" {
			fmt.Fprintf(&b, "Result: %s\n", m.job.Result)
		}
	}

	switch {
	case m.done && m.err == nil:
		b.WriteString("\n" + styles.ok.Render("✓ Job finished") + "\n")
	case m.done && jobs.IsTimeout(m.err):
		b.WriteString("\n" + styles.warn.Render(fmt.Sprintf("Stopped waiting: %v (the job is still running)", m.err)) + "\n")
	case m.done:
		b.WriteString("\n" + styles.err.Render(fmt.Sprintf("✗ %v", m.err)) + "\n")
	default:
		b.WriteString("\n" + m.help.View(m.keys) + "\n")
	}

	return b.String()
}

// Result returns the last observed job and the error the watch ended with.
// A user who quit early gets [context.Canceled].
func (m *WatchModel) Result() (*models.Job, error) {
	if m.stopped && !m.done {
		return m.job, context.Canceled
	}
	return m.job, m.err
}

func (m *WatchModel) start() {
	if m.updates != nil {
		return
	}
	m.started = m.now()
	m.updates = m.watcher.Watch(m.ctx, m.jobID, m.opts)
}

func (m *WatchModel) observe(job *models.Job) {
	if job == nil {
		return
	}
	if len(m.transitions) == 0 || m.transitions[len(m.transitions)-1].status != job.Status {
		m.transitions = append(m.transitions, transition{status: job.Status, at: m.now()})
	}
	m.job = job
}

// waitForUpdate blocks on the next update; the channel closing ends the watch.
func (m *WatchModel) waitForUpdate() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return watchDoneMsg(jobs.Update{Err: context.Canceled, Done: true})
		}
		if update.Done {
			return watchDoneMsg(update)
		}
		return jobUpdateMsg(update)
	}
}
