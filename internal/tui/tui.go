// Package tui is the interactive terminal front end.
//
// The Bubble Tea model owns a single session.State and changes it only
// through session.Transition. Loading a photo, generating roasts and
// exporting a card run as commands off the event loop and report back as
// messages; roast results carry the sequence number they were started with
// so a reset or a newer upload always wins.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/menta2k/roast-cam/internal/utils"
	"github.com/menta2k/roast-cam/pkg/session"
	"github.com/menta2k/roast-cam/pkg/types"
)

// Engine does the work behind the screen. *roastcam.RoastCam implements it.
type Engine interface {
	Load(ctx context.Context, source string) (*types.ImageHandle, error)
	Roast(ctx context.Context, h *types.ImageHandle) (*types.Roasts, error)
	ShareState(ctx context.Context, st session.State) (string, error)
}

// ── Styles ───────────────────────────────────────────────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Italic(true).
			Foreground(lipgloss.Color("#ec4899"))

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f4f4f5"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	loadingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#f9a8d4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#52525b")).
			Padding(1, 2)

	tabStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("#a1a1aa"))
)

// ── Messages ─────────────────────────────────────────────────────

type loadedMsg struct {
	handle *types.ImageHandle
	err    error
}

type roastMsg struct {
	seq    uint64
	roasts *types.Roasts
	err    error
}

type sharedMsg struct {
	path string
	size int64 // 0 when unknown
	err  error
}

type loadingTickMsg struct {
	seq uint64
}

// ── Model ────────────────────────────────────────────────────────

// Model is the Bubble Tea model
type Model struct {
	ctx     context.Context
	engine  Engine
	state   session.State
	input   textinput.Model
	spinner spinner.Model
	cancel  context.CancelFunc

	loading   bool // reading a file or URL
	sharing   bool
	tick      int
	notice    string
	alert     string
	width     int
	poweredBy string
}

// New creates the model. poweredBy names the backend on the loading screen.
func New(ctx context.Context, engine Engine, poweredBy string) Model {
	ti := textinput.New()
	ti.Prompt = "photo> "
	ti.Placeholder = "path or URL of a photo"
	ti.PromptStyle = secondaryStyle
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = loadingStyle

	return Model{
		ctx:       ctx,
		engine:    engine,
		input:     ti,
		spinner:   sp,
		poweredBy: poweredBy,
	}
}

// State returns the current view state
func (m Model) State() session.State {
	return m.state
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > 10 {
			m.input.Width = msg.Width - 10
		}
		return m, nil

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.alert = "Couldn't read that photo: " + msg.err.Error()
			return m, nil
		}
		return m.selectFile(msg.handle)

	case roastMsg:
		if m.state.Stale(msg.seq) {
			return m, nil
		}
		m.stopInference()
		if msg.err != nil {
			m.state = session.Transition(m.state, session.InferenceFailed{Seq: msg.seq, Err: msg.err})
		} else {
			m.state = session.Transition(m.state, session.InferenceSucceeded{Seq: msg.seq, Roasts: *msg.roasts})
		}
		m.input.Blur()
		return m, nil

	case sharedMsg:
		m.sharing = false
		if msg.err != nil {
			m.alert = session.MsgExportFailed
			m.notice = ""
			return m, nil
		}
		m.alert = ""
		m.notice = "Saved " + msg.path
		if msg.size > 0 {
			m.notice += " (" + utils.FormatFileSize(msg.size) + ")"
		}
		return m, nil

	case loadingTickMsg:
		if m.state.Stale(msg.seq) {
			return m, nil
		}
		m.tick++
		return m, loadingTick(msg.seq)

	case spinner.TickMsg:
		if m.state.Status != session.Analyzing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.state.Status == session.Idle {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.stopInference()
		return m, tea.Quit
	}

	switch m.state.Status {
	case session.Idle:
		switch msg.Type {
		case tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			source := utils.CleanPathInput(m.input.Value())
			if source == "" || m.loading {
				return m, nil
			}
			m.input.Reset()
			m.loading = true
			m.alert, m.notice = "", ""
			return m, loadCmd(m.ctx, m.engine, source)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case session.Analyzing:
		if msg.Type == tea.KeyEsc {
			return m.reset()
		}

	case session.Result:
		switch msg.String() {
		case "left", "h", "shift+tab":
			m.state = session.Transition(m.state, session.StyleSelected{Style: m.state.Style.Prev()})
		case "right", "l", "tab":
			m.state = session.Transition(m.state, session.StyleSelected{Style: m.state.Style.Next()})
		case "1", "2", "3":
			style := types.Style(msg.String()[0] - '1')
			m.state = session.Transition(m.state, session.StyleSelected{Style: style})
		case "s", "enter":
			if m.sharing {
				return m, nil
			}
			m.sharing = true
			m.alert, m.notice = "", ""
			return m, shareCmd(m.ctx, m.engine, m.state)
		case "r", "esc":
			return m.reset()
		case "q":
			return m, tea.Quit
		}

	case session.Error:
		switch msg.String() {
		case "enter", "r", "esc":
			return m.reset()
		case "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

// selectFile feeds a loaded handle to the state machine and starts the
// roast when it was accepted
func (m Model) selectFile(h *types.ImageHandle) (tea.Model, tea.Cmd) {
	prev := m.state.Seq
	m.state = session.Transition(m.state, session.FileSelected{Handle: h})
	if m.state.Status != session.Analyzing || m.state.Seq == prev {
		return m, nil
	}

	m.stopInference()
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.tick = 0
	m.alert, m.notice = "", ""
	m.input.Blur()

	seq := m.state.Seq
	return m, tea.Batch(
		roastCmd(ctx, m.engine, h, seq),
		loadingTick(seq),
		m.spinner.Tick,
	)
}

func (m Model) reset() (tea.Model, tea.Cmd) {
	m.stopInference()
	m.state = session.Transition(m.state, session.Reset{})
	m.alert, m.notice = "", ""
	m.sharing = false
	m.input.Reset()
	return m, m.input.Focus()
}

// stopInference cancels the in-flight request, if any. Correctness does not
// depend on it; stale results are dropped by sequence number anyway.
func (m *Model) stopInference() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// ── Commands ─────────────────────────────────────────────────────

func loadCmd(ctx context.Context, e Engine, source string) tea.Cmd {
	return func() tea.Msg {
		h, err := e.Load(ctx, source)
		return loadedMsg{handle: h, err: err}
	}
}

func roastCmd(ctx context.Context, e Engine, h *types.ImageHandle, seq uint64) tea.Cmd {
	return func() tea.Msg {
		r, err := e.Roast(ctx, h)
		return roastMsg{seq: seq, roasts: r, err: err}
	}
}

func shareCmd(ctx context.Context, e Engine, st session.State) tea.Cmd {
	return func() tea.Msg {
		path, err := e.ShareState(ctx, st)
		msg := sharedMsg{path: path, err: err}
		if err == nil {
			if info, statErr := os.Stat(path); statErr == nil {
				msg.size = info.Size()
			}
		}
		return msg
	}
}

func loadingTick(seq uint64) tea.Cmd {
	return tea.Tick(session.LoadingInterval, func(time.Time) tea.Msg {
		return loadingTickMsg{seq: seq}
	})
}

// ── View ─────────────────────────────────────────────────────────

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Roast Cam 📸"))
	b.WriteString("\n\n")

	switch m.state.Status {
	case session.Idle:
		b.WriteString(primaryStyle.Render("Ready to get roasted?"))
		b.WriteByte('\n')
		b.WriteString(secondaryStyle.Render("Drop in a photo or selfie. The AI will judge your choices in 3 unique styles."))
		b.WriteString("\n\n")
		b.WriteString(m.input.View())
		b.WriteByte('\n')
		if m.loading {
			b.WriteString(secondaryStyle.Render("Reading photo..."))
			b.WriteByte('\n')
		}
		if m.state.ErrMsg != "" {
			b.WriteString(errorStyle.Render(m.state.ErrMsg))
			b.WriteByte('\n')
		}
		b.WriteString("\n")
		b.WriteString(secondaryStyle.Render("By uploading, you agree to have your feelings hurt. Do not upload sensitive content."))
		b.WriteString("\n")
		b.WriteString(secondaryStyle.Render("enter: roast • esc: quit"))

	case session.Analyzing:
		b.WriteString(m.spinner.View())
		b.WriteString(loadingStyle.Render(session.LoadingMessage(m.tick)))
		b.WriteString("\n\n")
		if m.poweredBy != "" {
			b.WriteString(secondaryStyle.Render("Powered by " + m.poweredBy))
			b.WriteByte('\n')
		}
		b.WriteString(secondaryStyle.Render("esc: cancel"))

	case session.Result:
		b.WriteString(m.renderTabs())
		b.WriteString("\n")
		caption, _ := m.state.Caption()
		width := 60
		if m.width > 8 && m.width-8 < width {
			width = m.width - 8
		}
		label := secondaryStyle.Render(m.state.Style.Label() + " Mode")
		b.WriteString(cardStyle.Width(width).Render(label + "\n\n" + primaryStyle.Bold(true).Render(fmt.Sprintf("%q", caption))))
		b.WriteString("\n")
		if m.sharing {
			b.WriteString(secondaryStyle.Render("Cooking your card..."))
			b.WriteByte('\n')
		}
		b.WriteString(secondaryStyle.Render("←/→ style • s: save card • r: try again • q: quit"))

	case session.Error:
		b.WriteString(errorStyle.Bold(true).Render("Oof. Error."))
		b.WriteString("\n")
		b.WriteString(primaryStyle.Render(m.state.ErrMsg))
		b.WriteString("\n\n")
		b.WriteString(secondaryStyle.Render("enter: try again • q: quit"))
	}

	if m.alert != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.alert))
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(m.notice))
	}
	b.WriteByte('\n')
	return b.String()
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, 3)
	for _, s := range types.AllStyles() {
		st := tabStyle
		if s == m.state.Style {
			st = st.Bold(true).
				Foreground(lipgloss.Color("#ffffff")).
				Background(lipgloss.Color(s.Info().Accent))
		}
		tabs = append(tabs, st.Render(s.Label()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// Run starts the interactive program and blocks until the user quits
func Run(ctx context.Context, engine Engine, poweredBy string) error {
	p := tea.NewProgram(New(ctx, engine, poweredBy), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
