package tui

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"querylite/internal/posts"
	"querylite/internal/query"
	"querylite/pkg/types"
)

type view int

const (
	viewList view = iota
	viewPost
)

// Options configures the browser.
type Options struct {
	Client *query.Client
	// Query options applied to every attachment.
	Query query.Options
}

// stateMsg carries an observer notification for attachment seq.
type stateMsg struct {
	seq uint64
	st  query.State
}

// attachedMsg reports the outcome of an attach command.
type attachedMsg struct {
	seq    uint64
	st     query.State
	detach func()
	err    error
}

// outbox forwards messages into the running program. It is shared by every
// copy of the Model.
type outbox struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (o *outbox) set(send func(tea.Msg)) {
	o.mu.Lock()
	o.send = send
	o.mu.Unlock()
}

func (o *outbox) post(msg tea.Msg) {
	o.mu.Lock()
	send := o.send
	o.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

// Model is the root application state for Bubble Tea.
type Model struct {
	client *query.Client
	opts   query.Options
	out    *outbox

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	styles  styles

	view   view
	cursor int
	postID int

	// current attachment
	seq       uint64
	key       query.Key
	state     query.State
	notified  bool
	attachErr error
	detach    func()
}

// New creates the browser model. Notifications are dropped until the model
// is bound to a program (see Run).
func New(opts Options) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		client:  opts.Client,
		opts:    opts.Query,
		out:     &outbox{},
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		styles:  defaultStyles(),
		view:    viewList,
		seq:     1,
		key:     posts.PostsKey(),
		state:   query.State{Status: query.StatusLoading, IsFetching: true},
	}
}

// Run starts the browser and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	if opts.Client == nil {
		return errors.New("tui requires a query client")
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	m.out.set(p.Send)
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.release()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model. It attaches to the post list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.attachCmd(m.seq, m.key))
}

// show switches to v and attaches to key. The previous attachment is
// released synchronously; attaching runs as a command because it may notify.
func (m Model) show(v view, key query.Key) (Model, tea.Cmd) {
	m.release()
	m.view = v
	m.seq++
	m.key = key
	m.state = query.State{Status: query.StatusLoading, IsFetching: true}
	m.notified = false
	m.attachErr = nil
	return m, m.attachCmd(m.seq, key)
}

func (m *Model) release() {
	if m.detach != nil {
		m.detach()
		m.detach = nil
	}
}

func (m Model) attachCmd(seq uint64, key query.Key) tea.Cmd {
	client, opts, out := m.client, m.opts, m.out
	return func() tea.Msg {
		st, detach, err := client.Attach(key, nil, opts, func(st query.State) {
			out.post(stateMsg{seq: seq, st: st})
		})
		return attachedMsg{seq: seq, st: st, detach: detach, err: err}
	}
}

func (m Model) refetchCmd() tea.Cmd {
	client, key := m.client, m.key
	return func() tea.Msg {
		// Errors surface through the next notification or not at all.
		_, _ = client.Fetch(key)
		return nil
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case attachedMsg:
		if msg.seq != m.seq {
			// Superseded while attaching.
			if msg.detach != nil {
				msg.detach()
			}
			return m, nil
		}
		m.detach = msg.detach
		m.attachErr = msg.err
		// Notifications seen meanwhile are newer than the attach snapshot.
		if msg.err == nil && !m.notified {
			m.state = msg.st
		}
		return m, nil

	case stateMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.state = msg.st
		m.notified = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.release()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Refetch):
		if m.attachErr != nil {
			return m.show(m.view, m.key)
		}
		return m, m.refetchCmd()
	}

	switch m.view {
	case viewList:
		list := postsOf(m.state)
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(list)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Open):
			if m.cursor < len(list) {
				m.postID = list[m.cursor].ID
				return m.show(viewPost, posts.PostKey(m.postID))
			}
		}
	case viewPost:
		if key.Matches(msg, m.keys.Back) {
			return m.show(viewList, posts.PostsKey())
		}
	}
	return m, nil
}

func postsOf(st query.State) []types.Post {
	list, _ := st.Data.([]types.Post)
	return list
}
