package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"lingsync/internal/engine"
	"lingsync/internal/netmon"
	"lingsync/internal/progress"
	"lingsync/internal/ui"
)

// watchModel is the live sync dashboard: best-known snapshot, derived level
// values, queue depth and connectivity, refreshed on a short tick.
type watchModel struct {
	ctx context.Context
	svc *engine.Service
	mon *netmon.Monitor

	levelUps <-chan engine.LevelUpEvent

	snap      progress.Snapshot
	pending   int
	syncing   bool
	reachable bool

	lastLog string
}

type tickMsg time.Time

type syncedMsg struct{ err error }

type levelUpMsg engine.LevelUpEvent

func newWatchModel(ctx context.Context, svc *engine.Service, mon *netmon.Monitor) watchModel {
	return watchModel{
		ctx:      ctx,
		svc:      svc,
		mon:      mon,
		levelUps: svc.LevelUps(),
		lastLog:  "Watching.",
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.waitLevelUp())
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m watchModel) waitLevelUp() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.levelUps
		if !ok {
			return nil
		}
		return levelUpMsg(ev)
	}
}

func (m watchModel) syncCmd() tea.Cmd {
	return func() tea.Msg {
		return syncedMsg{err: m.svc.Sync(m.ctx)}
	}
}

func (m watchModel) refresh() watchModel {
	m.snap = m.svc.CurrentSnapshot()
	m.pending = m.svc.PendingSyncCount()
	m.syncing = m.svc.IsSyncing()
	if m.mon != nil {
		m.reachable = m.mon.Reachable()
	}
	return m
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m.refresh(), tickCmd()
	case syncedMsg:
		if msg.err != nil {
			m.lastLog = "Sync failed: " + msg.err.Error()
		} else {
			m.lastLog = fmt.Sprintf("Synced at %s.", time.Now().Format("15:04:05"))
		}
		return m.refresh(), nil
	case levelUpMsg:
		m.lastLog = fmt.Sprintf("%s level %d → %d", ui.BadgeLevelUp, msg.From, msg.To)
		return m.refresh(), m.waitLevelUp()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "s":
			m.lastLog = "Syncing…"
			return m, m.syncCmd()
		case "r":
			return m.refresh(), nil
		}
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(ui.Heading(ui.IconBook, "Lingsync") + "\n\n")

	lvl := progress.Level(m.snap.XPTotal)
	b.WriteString(ui.LabelValue("Level", lvl) + "\n")
	b.WriteString(ui.LabelValue("XP", fmt.Sprintf("%d (%d to next)", m.snap.XPTotal, progress.XPToNext(m.snap.XPTotal))) + "\n")
	b.WriteString("  " + ui.LevelBar(progress.FractionToNext(m.snap.XPTotal), 30) + "\n")
	b.WriteString(ui.LabelValue("Streak", fmt.Sprintf("%s %d", ui.IconFlame, m.snap.Streak)) + "\n")
	b.WriteString(ui.LabelValue("Lessons", m.snap.Lessons) + "\n")
	if !m.snap.LastLessonAt.IsZero() {
		b.WriteString(ui.LabelValue("Last lesson", m.snap.LastLessonAt.Local().Format("2006-01-02 15:04")) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(ui.LabelValue("Sync", ui.SyncStatus(m.reachable, m.pending, m.syncing)) + "\n")
	if !m.snap.ServerConfirmed {
		b.WriteString(ui.Muted.Render("  local state, awaiting server confirmation") + "\n")
	}
	b.WriteString("\n")
	b.WriteString(ui.Muted.Render(m.lastLog) + "\n")
	b.WriteString(ui.Muted.Render("q quit · s sync now · r refresh") + "\n")
	return ui.Panel.Render(b.String()) + "\n"
}

// Run starts the dashboard and blocks until the user quits.
func Run(ctx context.Context, svc *engine.Service, mon *netmon.Monitor) error {
	p := tea.NewProgram(newWatchModel(ctx, svc, mon))
	_, err := p.Run()
	return err
}
