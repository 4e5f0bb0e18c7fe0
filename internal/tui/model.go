// Package tui is the terminal view shell: name prompt, home, map, friend list
// and settings tabs. It holds no synchronization logic of its own.
package tui

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/enjoysite/friendmap/internal/client"
	"github.com/enjoysite/friendmap/internal/client/geo"
	"github.com/enjoysite/friendmap/internal/identity"
	"github.com/enjoysite/friendmap/internal/mapview"
	"github.com/enjoysite/friendmap/internal/presence/domain"
)

// errorDisplay is how long a transient error stays on screen.
const errorDisplay = 2 * time.Second

// reconnectInterval spaces sign-in retries for an identity restored offline.
const reconnectInterval = 5 * time.Second

const (
	msgNameRejected   = "등록된 멤버가 아닙니다. 이름을 다시 확인해주세요."
	msgLoginFailed    = "로그인 중 오류가 발생했습니다."
	msgLocationFailed = "위치 정보를 가져올 수 없습니다. 위치 권한을 확인해주세요."
	msgFeedDown       = "실시간 연결이 끊겼습니다. 다시 연결하는 중..."
	msgPublishFailed  = "위치 공유에 실패했습니다."
	msgOffline        = "서버에 연결할 수 없습니다. 다시 시도하는 중..."
)

type tab int

const (
	tabHome tab = iota
	tabMap
	tabFriends
	tabSettings
)

var tabNames = []string{"홈", "지도", "친구", "설정"}

type Session interface {
	Login(ctx context.Context, name string) error
	Restore(ctx context.Context) (bool, error)
	Reconnect(ctx context.Context) error
	Logout() error
	Current() (client.Identity, bool)
	SetEmoji(emoji string) error
}

type Publisher interface {
	Publish(ctx context.Context) (*domain.Record, error)
	SetStatus(status string)
	Status() string
	Loading() bool
}

type Feed interface {
	Start(ctx context.Context) error
	Stop()
	Reset()
	OnChange(handler domain.SnapshotHandler)
	Err() error
}

// Deps wires the shell to the client core.
type Deps struct {
	Session   Session
	Publisher Publisher
	Feed      Feed
	Board     *mapview.Board
	Renderer  *mapview.Renderer
	Logger    *zap.Logger
}

type restoredMsg struct {
	ok  bool
	err error
}

type publishedMsg struct {
	rec *domain.Record
	err error
}

type loginMsg struct{ err error }

type snapshotMsg struct {
	src     <-chan []domain.Record
	records []domain.Record
}

type feedStartedMsg struct{ err error }

type clearErrorMsg struct{ seq int }

type reconnectMsg struct{ gen int }

type reconnectedMsg struct {
	gen int
	err error
}

// snapshotRelay hands the newest feed list to the bubbletea loop. Every login
// opens a fresh channel and logout closes it, so exactly one waiter consumes
// snapshots at a time.
type snapshotRelay struct {
	mu sync.Mutex
	ch chan []domain.Record
}

func (r *snapshotRelay) open() <-chan []domain.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
	r.ch = make(chan []domain.Record, 1)
	return r.ch
}

func (r *snapshotRelay) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *snapshotRelay) closeLocked() {
	if r.ch != nil {
		close(r.ch)
		r.ch = nil
	}
}

// push replaces any pending list. Only push sends, under the lock, so the
// send after draining never blocks.
func (r *snapshotRelay) push(records []domain.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch == nil {
		return
	}
	select {
	case <-r.ch:
	default:
	}
	r.ch <- records
}

type Model struct {
	deps      Deps
	ctx       context.Context
	relay     *snapshotRelay
	snapshots <-chan []domain.Record
	gen       int

	verified  bool
	online    bool
	restoring bool
	quitting  bool

	nameInput     textinput.Model
	statusInput   textinput.Model
	editingStatus bool

	tab      tab
	emojiIdx int

	errMsg string
	errSeq int
	alert  string

	records     []domain.Record
	lastPublish *domain.Record
	publishing  bool

	width  int
	height int
}

// New builds the shell. The feed's handler is replaced so snapshots reach the
// bubbletea loop.
func New(ctx context.Context, deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	name := textinput.New()
	name.Placeholder = "이름을 입력하세요"
	name.CharLimit = 32
	name.Width = 30
	name.Focus()

	status := textinput.New()
	status.Placeholder = "친구들에게 남길 말..."
	status.CharLimit = domain.MaxStatusLength
	status.Width = 50

	relay := &snapshotRelay{}
	deps.Feed.OnChange(relay.push)

	return Model{
		deps:        deps,
		ctx:         ctx,
		relay:       relay,
		restoring:   true,
		nameInput:   name,
		statusInput: status,
		width:       80,
		height:      24,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.restore())
}

func (m Model) restore() tea.Cmd {
	return func() tea.Msg {
		ok, err := m.deps.Session.Restore(m.ctx)
		return restoredMsg{ok: ok, err: err}
	}
}

func (m Model) login(name string) tea.Cmd {
	return func() tea.Msg {
		return loginMsg{err: m.deps.Session.Login(m.ctx, name)}
	}
}

func (m Model) publish() tea.Cmd {
	return func() tea.Msg {
		rec, err := m.deps.Publisher.Publish(m.ctx)
		return publishedMsg{rec: rec, err: err}
	}
}

func (m Model) reconnectLater() tea.Cmd {
	gen := m.gen
	return tea.Tick(reconnectInterval, func(time.Time) tea.Msg { return reconnectMsg{gen: gen} })
}

func (m Model) reconnect() tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		return reconnectedMsg{gen: gen, err: m.deps.Session.Reconnect(m.ctx)}
	}
}

// startFeed opens this login's snapshot channel and subscribes.
func (m Model) startFeed() (Model, tea.Cmd) {
	m.online = true
	m.snapshots = m.relay.open()
	return m, tea.Batch(
		func() tea.Msg { return feedStartedMsg{err: m.deps.Feed.Start(m.ctx)} },
		waitForSnapshot(m.ctx, m.snapshots),
	)
}

func waitForSnapshot(ctx context.Context, src <-chan []domain.Record) tea.Cmd {
	return func() tea.Msg {
		select {
		case records, ok := <-src:
			if !ok {
				return nil
			}
			return snapshotMsg{src: src, records: records}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) showError(text string) (Model, tea.Cmd) {
	m.errMsg = text
	m.errSeq++
	seq := m.errSeq
	return m, tea.Tick(errorDisplay, func(time.Time) tea.Msg { return clearErrorMsg{seq: seq} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case restoredMsg:
		m.restoring = false
		if !msg.ok {
			if msg.err != nil {
				m.deps.Logger.Warn("failed to read local state", zap.Error(msg.err))
			}
			return m, nil
		}
		m.verified = true
		m.nameInput.Blur()
		m.syncEmoji()
		if msg.err != nil {
			m.deps.Logger.Warn("silent sign-in failed", zap.Error(msg.err))
			var show tea.Cmd
			m, show = m.showError(msgOffline)
			return m, tea.Batch(show, m.reconnectLater())
		}
		return m.startFeed()

	case reconnectMsg:
		if msg.gen != m.gen || !m.verified || m.online {
			return m, nil
		}
		return m, m.reconnect()

	case reconnectedMsg:
		if msg.gen != m.gen || !m.verified || m.online {
			return m, nil
		}
		if msg.err != nil {
			m.deps.Logger.Warn("sign-in retry failed", zap.Error(msg.err))
			return m, m.reconnectLater()
		}
		m.errMsg = ""
		m.syncEmoji()
		return m.startFeed()

	case loginMsg:
		if msg.err != nil {
			if errors.Is(msg.err, identity.ErrNameRejected) {
				return m.showError(msgNameRejected)
			}
			m.deps.Logger.Error("login failed", zap.Error(msg.err))
			return m.showError(msgLoginFailed)
		}
		m.verified = true
		m.errMsg = ""
		m.nameInput.Reset()
		m.nameInput.Blur()
		m.syncEmoji()
		return m.startFeed()

	case clearErrorMsg:
		if msg.seq == m.errSeq {
			m.errMsg = ""
		}
		return m, nil

	case feedStartedMsg:
		if msg.err != nil && !errors.Is(msg.err, client.ErrNoSession) {
			m.deps.Logger.Warn("feed did not start", zap.Error(msg.err))
		}
		return m, nil

	case snapshotMsg:
		if !m.verified || msg.src != m.snapshots {
			return m, nil
		}
		m.applySnapshot(msg.records)
		return m, waitForSnapshot(m.ctx, m.snapshots)

	case publishedMsg:
		m.publishing = false
		switch {
		case msg.err == nil:
			m.lastPublish = msg.rec
		case errors.Is(msg.err, geo.ErrLocationUnavailable):
			m.alert = msgLocationFailed
		case errors.Is(msg.err, client.ErrNoSession):
			return m.showError(msgOffline)
		default:
			m.deps.Logger.Warn("publish failed", zap.Error(msg.err))
			return m.showError(msgPublishFailed)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if !m.verified {
			return m.updatePrompt(msg)
		}
		return m.updateMain(msg)
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.deps.Feed.Stop()
	return m, tea.Quit
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.restoring {
		return m, nil
	}
	if msg.Type == tea.KeyEnter {
		return m, m.login(m.nameInput.Value())
	}
	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editingStatus {
		switch msg.Type {
		case tea.KeyEnter:
			m.deps.Publisher.SetStatus(m.statusInput.Value())
			m.editingStatus = false
			m.statusInput.Blur()
			return m, nil
		case tea.KeyEsc:
			m.editingStatus = false
			m.statusInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.statusInput, cmd = m.statusInput.Update(msg)
		return m, cmd
	}

	m.alert = ""

	switch msg.String() {
	case "q":
		return m.quit()
	case "tab":
		m.tab = (m.tab + 1) % tab(len(tabNames))
	case "shift+tab":
		m.tab = (m.tab + tab(len(tabNames)) - 1) % tab(len(tabNames))
	case "1", "2", "3", "4":
		m.tab = tab(msg.String()[0] - '1')
	case "p":
		return m.startPublish()
	case "s":
		m.editingStatus = true
		m.statusInput.SetValue(m.deps.Publisher.Status())
		m.statusInput.Focus()
		return m, textinput.Blink
	}

	if m.tab == tabSettings {
		return m.updateSettings(msg)
	}
	return m, nil
}

func (m Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		m.emojiIdx = (m.emojiIdx + len(domain.Palette) - 1) % len(domain.Palette)
	case "right", "l":
		m.emojiIdx = (m.emojiIdx + 1) % len(domain.Palette)
	case "enter":
		if err := m.deps.Session.SetEmoji(domain.Palette[m.emojiIdx]); err != nil {
			m.deps.Logger.Warn("failed to save emoji", zap.Error(err))
		}
		return m.startPublish()
	case "x":
		return m.logout()
	}
	return m, nil
}

func (m Model) startPublish() (tea.Model, tea.Cmd) {
	if m.publishing {
		return m, nil
	}
	m.publishing = true
	return m, m.publish()
}

func (m Model) logout() (tea.Model, tea.Cmd) {
	m.deps.Feed.Stop()
	m.deps.Feed.Reset()
	m.relay.close()
	m.snapshots = nil
	m.gen++
	if err := m.deps.Session.Logout(); err != nil {
		m.deps.Logger.Warn("failed to clear local state", zap.Error(err))
	}

	m.verified = false
	m.online = false
	m.errMsg = ""
	m.records = nil
	m.lastPublish = nil
	m.tab = tabHome
	m.emojiIdx = 0
	if m.deps.Renderer != nil {
		m.deps.Renderer.Render(nil)
	}
	m.nameInput.Reset()
	m.nameInput.Focus()
	return m, textinput.Blink
}

func (m *Model) applySnapshot(records []domain.Record) {
	m.records = records
	if m.deps.Renderer == nil {
		return
	}
	m.deps.Renderer.Render(records)
	if ident, ok := m.deps.Session.Current(); ok {
		if pos, ok := mapview.OwnPosition(records, ident.UID); ok {
			m.deps.Renderer.Recenter(pos)
		}
	}
}

func (m *Model) syncEmoji() {
	ident, ok := m.deps.Session.Current()
	if !ok {
		return
	}
	for i, e := range domain.Palette {
		if e == ident.Emoji {
			m.emojiIdx = i
			return
		}
	}
}
