package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"cffi/internal/pipeline"
)

// header is one row of the check view.
type header struct {
	path       string
	stage      pipeline.Stage
	status     pipeline.Status
	decls      int
	unresolved int
	elapsed    time.Duration
	problem    string
}

func (h header) finished() bool {
	return h.status == pipeline.StatusDone || h.status == pipeline.StatusError
}

// weight is the share of a header's work already behind it.
func (h header) weight() float64 {
	if h.finished() {
		return 1
	}
	if h.status != pipeline.StatusWorking {
		return 0
	}
	switch h.stage {
	case pipeline.StageParse:
		return 0.2
	case pipeline.StageLayout:
		return 0.6
	case pipeline.StageResolve:
		return 0.8
	}
	return 0
}

// label is the text of the status column.
func (h header) label() string {
	switch h.status {
	case pipeline.StatusDone:
		return "ok"
	case pipeline.StatusError:
		return "failed"
	case pipeline.StatusWorking:
		switch h.stage {
		case pipeline.StageParse:
			return "parsing"
		case pipeline.StageLayout:
			return "layout"
		case pipeline.StageResolve:
			return "resolving"
		}
	}
	return "queued"
}

// detail summarizes a finished header: what it declared or why it failed.
func (h header) detail() string {
	if h.status == pipeline.StatusError {
		return h.problem
	}
	if h.status != pipeline.StatusDone {
		return ""
	}
	parts := []string{plural(h.decls, "decl")}
	if h.unresolved > 0 {
		parts = append(parts, fmt.Sprintf("%d unresolved", h.unresolved))
	}
	if h.elapsed > 0 {
		parts = append(parts, h.elapsed.Round(10*time.Microsecond).String())
	}
	return strings.Join(parts, ", ")
}

type checkStyles struct {
	title, ok, failed, busy, idle, dim lipgloss.Style
}

func newCheckStyles() checkStyles {
	return checkStyles{
		title:  lipgloss.NewStyle().Bold(true),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		failed: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		busy:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		idle:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (s checkStyles) status(h header) lipgloss.Style {
	switch h.status {
	case pipeline.StatusDone:
		return s.ok
	case pipeline.StatusError:
		return s.failed
	case pipeline.StatusWorking:
		return s.busy
	}
	return s.idle
}

type checkModel struct {
	title   string
	events  <-chan pipeline.Event
	spinner spinner.Model
	bar     progress.Model
	styles  checkStyles
	rows    []header
	byPath  map[string]int
	width   int
	done    bool
}

type eventMsg pipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that follows a header check
// fed by events. It quits when the channel is closed. Files first seen in
// events are appended to the initial list.
func NewProgressModel(title string, files []string, events <-chan pipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	m := &checkModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		styles:  newCheckStyles(),
		byPath:  make(map[string]int, len(files)),
		width:   80,
	}
	m.bar.Width = m.width - 12
	for _, f := range files {
		m.row(f)
	}
	return m
}

func (m *checkModel) row(path string) *header {
	idx, ok := m.byPath[path]
	if !ok {
		idx = len(m.rows)
		m.rows = append(m.rows, header{path: path, stage: pipeline.StageParse, status: pipeline.StatusQueued})
		m.byPath[path] = idx
	}
	return &m.rows[idx]
}

func (m *checkModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *checkModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *checkModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(pipeline.Event(msg)), m.next())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = max(msg.Width-12, 10)
		}
	case spinner.TickMsg:
		if !m.done {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	case progress.FrameMsg:
		bm, cmd := m.bar.Update(msg)
		m.bar = bm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// apply folds one event into the rows. Events without a file carry no
// per-header state and are ignored.
func (m *checkModel) apply(ev pipeline.Event) tea.Cmd {
	if ev.File == "" {
		return nil
	}
	h := m.row(ev.File)
	// поздние события не откатывают завершённый файл
	if h.finished() && ev.Status == pipeline.StatusQueued {
		return nil
	}
	h.stage, h.status = ev.Stage, ev.Status
	if h.finished() {
		h.decls, h.unresolved, h.elapsed = ev.Decls, ev.Unresolved, ev.Elapsed
		if ev.Err != nil {
			h.problem = ev.Err.Error()
		}
	}
	return m.bar.SetPercent(m.fraction())
}

func (m *checkModel) fraction() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	var sum float64
	for _, h := range m.rows {
		sum += h.weight()
	}
	return sum / float64(len(m.rows))
}

type totals struct {
	finished, failed, decls, unresolved int
}

func (m *checkModel) totals() totals {
	var t totals
	for _, h := range m.rows {
		if !h.finished() {
			continue
		}
		t.finished++
		if h.status == pipeline.StatusError {
			t.failed++
		}
		t.decls += h.decls
		t.unresolved += h.unresolved
	}
	return t
}

func (m *checkModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	st := m.styles
	t := m.totals()

	var b strings.Builder
	lead := m.spinner.View()
	if m.done {
		lead = st.ok.Render("✓")
		if t.failed > 0 {
			lead = st.failed.Render("✗")
		}
	}
	fmt.Fprintf(&b, "%s %s %s\n\n", lead, st.title.Render(m.title),
		st.dim.Render(fmt.Sprintf("%d/%d", t.finished, len(m.rows))))

	nameWidth := 0
	for _, h := range m.rows {
		nameWidth = max(nameWidth, runewidth.StringWidth(h.path))
	}
	nameWidth = min(nameWidth, max(m.width/2, 16))
	for _, h := range m.rows {
		name := truncate(h.path, nameWidth)
		name += strings.Repeat(" ", nameWidth-runewidth.StringWidth(name))
		line := fmt.Sprintf("  %s %s", st.status(h).Render(fmt.Sprintf("%-9s", h.label())), name)
		room := m.width - lipgloss.Width(line) - 2
		if d := h.detail(); d != "" && room > 3 {
			line += "  " + st.dim.Render(truncate(d, room))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	if m.done {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	summary := fmt.Sprintf("%s, %s", plural(t.decls, "decl"), plural(t.failed, "failed header"))
	if t.unresolved > 0 {
		summary += fmt.Sprintf(", %d unresolved", t.unresolved)
	}
	fmt.Fprintf(&b, "\n  %s\n", st.dim.Render(summary))
	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// truncate shortens value to width terminal cells, marking the cut with
// "..." when there is room for it.
func truncate(value string, width int) string {
	switch {
	case width <= 0 || runewidth.StringWidth(value) <= width:
		return value
	case width <= 3:
		return runewidth.Truncate(value, width, "")
	default:
		return runewidth.Truncate(value, width, "...")
	}
}
