package cli

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/echoctl/echoctl/internal/alexa"
)

// runWatch drives the live status view until the user quits.
func runWatch(ctx context.Context, account *alexa.Account, deviceKey string, interval time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	model := watchModel{
		ctx:       ctx,
		account:   account,
		deviceKey: deviceKey,
		interval:  interval,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	_, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	return err
}

type statusMsg struct {
	statuses []deviceStatus
	err      error
}

type refreshMsg struct{}

type watchModel struct {
	ctx       context.Context
	account   *alexa.Account
	deviceKey string
	interval  time.Duration

	spinner  spinner.Model
	statuses []deviceStatus
	err      error
	loaded   bool
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch)
}

func (m watchModel) fetch() tea.Msg {
	statuses, err := collectStatus(m.ctx, m.account, m.deviceKey)
	return statusMsg{statuses: statuses, err: err}
}

func (m watchModel) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.fetch
		}

	case statusMsg:
		m.loaded = true
		m.statuses = msg.statuses
		m.err = msg.err
		return m, m.scheduleRefresh()

	case refreshMsg:
		return m, m.fetch

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("echoctl status"))
	b.WriteString("\n\n")

	if !m.loaded {
		b.WriteString(m.spinner.View())
		b.WriteString(" loading devices...\n")
		return b.String()
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
		return b.String()
	}

	renderStatusTable(&b, m.statuses)
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("r refresh · q quit"))
	b.WriteString("\n")
	return b.String()
}
