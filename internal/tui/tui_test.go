package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/roast-cam/pkg/session"
	"github.com/menta2k/roast-cam/pkg/types"
)

type fakeEngine struct {
	handle   *types.ImageHandle
	loadErr  error
	roasts   *types.Roasts
	roastErr error
	path     string
	shareErr error
	shared   []session.State
}

func (f *fakeEngine) Load(ctx context.Context, source string) (*types.ImageHandle, error) {
	return f.handle, f.loadErr
}

func (f *fakeEngine) Roast(ctx context.Context, h *types.ImageHandle) (*types.Roasts, error) {
	return f.roasts, f.roastErr
}

func (f *fakeEngine) ShareState(ctx context.Context, st session.State) (string, error) {
	f.shared = append(f.shared, st)
	return f.path, f.shareErr
}

func photo() *types.ImageHandle {
	return &types.ImageHandle{Data: []byte{0x89, 'P', 'N', 'G'}, MediaType: "image/png", Source: "me.png"}
}

func roasts() *types.Roasts {
	return &types.Roasts{Savage: "S", Friendly: "F", Compliment: "C"}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// analyzing returns a model that has accepted a photo
func analyzing(t *testing.T, e *fakeEngine) Model {
	t.Helper()
	m := New(context.Background(), e, "test")
	m, cmd := update(t, m, loadedMsg{handle: photo()})
	require.NotNil(t, cmd)
	require.Equal(t, session.Analyzing, m.State().Status)
	return m
}

func TestLoadedNonImageStaysIdle(t *testing.T) {
	m := New(context.Background(), &fakeEngine{}, "")
	m, cmd := update(t, m, loadedMsg{handle: &types.ImageHandle{Data: []byte("x"), MediaType: "text/plain"}})

	assert.Nil(t, cmd)
	assert.Equal(t, session.Idle, m.State().Status)
	assert.Equal(t, session.MsgInvalidImage, m.State().ErrMsg)
	assert.Contains(t, m.View(), session.MsgInvalidImage)
}

func TestLoadErrorShowsAlert(t *testing.T) {
	m := New(context.Background(), &fakeEngine{}, "")
	m, _ = update(t, m, loadedMsg{err: errors.New("no such file")})

	assert.Equal(t, session.Idle, m.State().Status)
	assert.Contains(t, m.View(), "no such file")
}

func TestEnterLoadsSource(t *testing.T) {
	e := &fakeEngine{handle: photo()}
	m := New(context.Background(), e, "")
	m.input.SetValue("'/tmp/me.png'")

	m, cmd := update(t, m, key("enter"))
	require.NotNil(t, cmd)
	assert.True(t, m.loading)

	msg := cmd()
	loaded, ok := msg.(loadedMsg)
	require.True(t, ok)
	assert.Same(t, e.handle, loaded.handle)
}

func TestEnterWithEmptyInputDoesNothing(t *testing.T) {
	m := New(context.Background(), &fakeEngine{}, "")
	m, cmd := update(t, m, key("enter"))
	assert.Nil(t, cmd)
	assert.False(t, m.loading)
}

func TestRoastResultShowsSavageFirst(t *testing.T) {
	m := analyzing(t, &fakeEngine{})
	seq := m.State().Seq

	m, _ = update(t, m, roastMsg{seq: seq, roasts: roasts()})

	st := m.State()
	assert.Equal(t, session.Result, st.Status)
	assert.Equal(t, types.Savage, st.Style)
	caption, ok := st.Caption()
	assert.True(t, ok)
	assert.Equal(t, "S", caption)
	assert.NoError(t, session.Validate(st))
}

func TestStaleRoastIgnoredAfterReset(t *testing.T) {
	m := analyzing(t, &fakeEngine{})
	seq := m.State().Seq

	m, _ = update(t, m, key("esc"))
	require.Equal(t, session.Idle, m.State().Status)

	m, cmd := update(t, m, roastMsg{seq: seq, roasts: roasts()})
	assert.Nil(t, cmd)
	assert.Equal(t, session.Idle, m.State().Status)
	assert.Nil(t, m.State().Roasts)
}

func TestStaleRoastIgnoredAfterNewUpload(t *testing.T) {
	m := analyzing(t, &fakeEngine{})
	first := m.State().Seq

	m, _ = update(t, m, key("esc"))
	m, _ = update(t, m, loadedMsg{handle: photo()})
	second := m.State().Seq
	require.Greater(t, second, first)

	m, _ = update(t, m, roastMsg{seq: first, roasts: &types.Roasts{Savage: "old", Friendly: "old", Compliment: "old"}})
	assert.Equal(t, session.Analyzing, m.State().Status)

	m, _ = update(t, m, roastMsg{seq: second, roasts: roasts()})
	caption, _ := m.State().Caption()
	assert.Equal(t, "S", caption)
}

func TestInferenceFailureShowsFixedMessage(t *testing.T) {
	m := analyzing(t, &fakeEngine{})
	m, _ = update(t, m, roastMsg{seq: m.State().Seq, err: errors.New("quota exceeded")})

	assert.Equal(t, session.Error, m.State().Status)
	view := m.View()
	assert.Contains(t, view, session.MsgInferenceFailed)
	assert.NotContains(t, view, "quota")

	m, _ = update(t, m, key("enter"))
	assert.Equal(t, session.Idle, m.State().Status)
}

func TestStyleSwitching(t *testing.T) {
	m := analyzing(t, &fakeEngine{})
	m, _ = update(t, m, roastMsg{seq: m.State().Seq, roasts: roasts()})

	m, _ = update(t, m, key("right"))
	assert.Equal(t, types.Friendly, m.State().Style)

	m, _ = update(t, m, key("3"))
	assert.Equal(t, types.Compliment, m.State().Style)
	assert.Contains(t, m.View(), "Compliment Mode")

	m, _ = update(t, m, key("right"))
	assert.Equal(t, types.Savage, m.State().Style)

	m, _ = update(t, m, key("left"))
	assert.Equal(t, types.Compliment, m.State().Style)
}

func TestShareSuccessAndFailure(t *testing.T) {
	e := &fakeEngine{path: "roasts/ai-roast-friendly-1.png"}
	m := analyzing(t, e)
	m, _ = update(t, m, roastMsg{seq: m.State().Seq, roasts: roasts()})
	m, _ = update(t, m, key("2"))

	m, cmd := update(t, m, key("s"))
	require.NotNil(t, cmd)
	assert.True(t, m.sharing)

	_, again := update(t, m, key("s"))
	assert.Nil(t, again, "no second export while one is running")

	m, _ = update(t, m, cmd())
	require.Len(t, e.shared, 1)
	assert.Equal(t, types.Friendly, e.shared[0].Style)
	assert.Contains(t, m.View(), e.path)

	e.shareErr = errors.New("disk full")
	m, cmd = update(t, m, key("s"))
	m, _ = update(t, m, cmd())

	assert.Equal(t, session.Result, m.State().Status, "export failure keeps the result")
	view := m.View()
	assert.Contains(t, view, session.MsgExportFailed)
	assert.NotContains(t, view, "disk full")
}

func TestLoadingTickAdvancesMessage(t *testing.T) {
	m := analyzing(t, &fakeEngine{})
	seq := m.State().Seq
	assert.Contains(t, m.View(), session.LoadingMessage(0))

	m, cmd := update(t, m, loadingTickMsg{seq: seq})
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, m.tick)
	assert.Contains(t, m.View(), session.LoadingMessage(1))

	m, _ = update(t, m, key("esc"))
	m, cmd = update(t, m, loadingTickMsg{seq: seq})
	assert.Nil(t, cmd, "ticker stops once the request is stale")
	assert.Equal(t, 1, m.tick)
}

func TestSavedNoticeShowsSize(t *testing.T) {
	m := New(context.Background(), &fakeEngine{}, "")
	m, _ = update(t, m, sharedMsg{path: "roasts/card.png", size: 1536})
	assert.Contains(t, m.View(), "Saved roasts/card.png (1.5 KB)")
}

func TestCtrlCQuitsFromAnyState(t *testing.T) {
	m := analyzing(t, &fakeEngine{})
	_, cmd := update(t, m, key("ctrl+c"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
