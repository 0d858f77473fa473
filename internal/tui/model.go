// model.go defines the watch dashboard model. The model is strictly
// read-only: both state documents are re-read on every tick, and nothing
// is ever written back to the coordination data.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/GoCodeAlone/capstan/config"
	"github.com/GoCodeAlone/capstan/store"
)

// maxDashboardWidth is the maximum width for the dashboard box.
const maxDashboardWidth = 100

// tickMsg drives the periodic document refresh.
type tickMsg time.Time

// Model renders the agent state and task graph documents.
type Model struct {
	cfg    *config.Config
	store  *store.Store
	spin   spinner.Model
	agents *store.AgentDoc
	tasks  *store.TaskDoc
	now    time.Time
	width  int
	err    error
}

// NewModel creates the dashboard model and performs the initial load.
func NewModel(cfg *config.Config) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = TitleStyle

	m := Model{cfg: cfg, spin: sp, now: time.Now().UTC()}
	m.reload()
	return m
}

func (m *Model) reload() {
	if m.store == nil {
		st, err := store.Open(m.cfg.StateDir())
		if err != nil {
			m.err = err
			return
		}
		m.store = st
	}
	m.err = nil
	m.agents = m.store.LoadAgents()
	m.tasks = m.store.LoadTasks()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the spinner and the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, tick())
}

// Update handles key, resize, tick, and spinner messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", KeyCtrlC, KeyEsc:
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		m.now = time.Time(msg).UTC()
		m.reload()
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Capstan"))
	b.WriteString("  " + m.spin.View())
	b.WriteString(DimStyle.Render(" watching " + m.cfg.DataDir))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(ErrorStyle.Render(m.err.Error()))
		b.WriteString("\n")
		return BoxStyle.Render(b.String())
	}

	b.WriteString(m.agentsPane())
	b.WriteString("\n")
	b.WriteString(m.tasksPane())
	b.WriteString("\n")
	b.WriteString(DimStyle.Render("q: quit"))

	boxWidth := maxDashboardWidth
	if m.width > 0 && m.width-4 < boxWidth {
		boxWidth = m.width - 4
	}
	return BoxStyle.Width(boxWidth).Render(b.String())
}

func (m Model) agentsPane() string {
	var b strings.Builder
	b.WriteString(HeadingStyle.Render(fmt.Sprintf("Agents (%d)", len(m.agents.Agents))))
	b.WriteString("\n")

	names := make([]string, 0, len(m.agents.Agents))
	for name := range m.agents.Agents {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		b.WriteString(DimStyle.Render("  none discovered yet"))
		b.WriteString("\n")
		return b.String()
	}
	for _, name := range names {
		info := m.agents.Agents[name]
		line := fmt.Sprintf("  %s %-14s %-6s", agentIcon(info.Status), name, string(info.Status))
		if info.TaskID != "" {
			line += "  on " + info.TaskID
		}
		line += DimStyle.Render("  hb " + age(info.Heartbeat, m.now))
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) tasksPane() string {
	var b strings.Builder
	b.WriteString(HeadingStyle.Render(fmt.Sprintf("Tasks (%d)", len(m.tasks.Tasks))))
	b.WriteString("\n")

	ids := make([]string, 0, len(m.tasks.Tasks))
	for id := range m.tasks.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		b.WriteString(DimStyle.Render("  no tasks"))
		b.WriteString("\n")
		return b.String()
	}
	for _, id := range ids {
		t := m.tasks.Tasks[id]
		line := fmt.Sprintf("  %s %-14s %-12s", taskIcon(t), id, t.Status)
		if t.Owner != "" {
			line += "  " + t.Owner
		}
		if t.LeaseExpiry != nil {
			line += DimStyle.Render("  lease " + remaining(*t.LeaseExpiry, m.now))
		}
		if t.Blocked {
			line += "  " + ErrorStyle.Render("[blocked]")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func agentIcon(s store.AgentState) string {
	switch s {
	case store.AgentActive:
		return iconActive
	case store.AgentBusy:
		return iconBusy
	default:
		return iconIdle
	}
}

func taskIcon(t *store.Task) string {
	switch {
	case t.Blocked:
		return iconBlocked
	case store.IsTerminal(t.Status):
		return iconDone
	case t.Status == store.StatusInProgress:
		return iconRunning
	default:
		return iconPending
	}
}

func age(ts, now time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	d := now.Sub(ts).Round(time.Second)
	if d < 0 {
		d = 0
	}
	return d.String()
}

func remaining(expiry, now time.Time) string {
	d := expiry.Sub(now).Round(time.Second)
	if d <= 0 {
		return "expired"
	}
	return d.String()
}
