package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/wricardo/rpsls/game/engine"
	"github.com/wricardo/rpsls/game/protocol"
	"github.com/wricardo/rpsls/game/service"
)

// How long a single play request may wait on the game loop
const playTimeout = 5 * time.Second

// Keys maps key presses to plays
var Keys = map[string]protocol.Play{
	"r": protocol.Rock,
	"p": protocol.Paper,
	"s": protocol.Scissors,
	"l": protocol.Lizard,
	"k": protocol.Spock,
}

type stateMsg engine.State

type endedMsg struct{}

type playResultMsg struct {
	play     protocol.Play
	accepted bool
	err      error
}

// Model is the bubbletea model of a running game
type Model struct {
	ctx     context.Context
	svc     service.GameService
	updates <-chan engine.State
	cancel  func()

	state  engine.State
	info   service.SessionInfo
	notice string
	ended  bool
}

// New subscribes to svc and returns the model. The subscription ends when
// the game does.
func New(ctx context.Context, svc service.GameService) *Model {
	updates, cancel := svc.Subscribe()
	state, _ := svc.State(ctx)
	return &Model{
		ctx:     ctx,
		svc:     svc,
		updates: updates,
		cancel:  cancel,
		state:   state,
		info:    svc.Info(),
	}
}

// Run shows the game until the user quits or ctx is cancelled
func Run(ctx context.Context, svc service.GameService, opts ...tea.ProgramOption) error {
	m := New(ctx, svc)
	defer m.cancel()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) Init() tea.Cmd {
	return m.waitForState()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = engine.State(msg)
		m.info = m.svc.Info()
		return m, m.waitForState()

	case endedMsg:
		m.ended = true
		m.info = m.svc.Info()
		if m.info.Status == service.StatusLost {
			m.notice = "Connection lost. No further updates will arrive."
		} else {
			m.notice = "The server ended the game."
		}
		return m, nil

	case playResultMsg:
		switch {
		case errors.Is(msg.err, service.ErrNoSession):
			m.notice = "Still waiting for the server to start the game."
		case msg.err != nil:
			m.notice = fmt.Sprintf("Could not play: %v", msg.err)
		case !msg.accepted:
			m.notice = "Already played. Waiting for the server..."
		default:
			m.notice = fmt.Sprintf("You played %s.", msg.play)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}

		if play, ok := Keys[msg.String()]; ok && !m.ended {
			return m, m.submit(play)
		}
	}
	return m, nil
}

func (m *Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		st, ok := <-m.updates
		if !ok {
			return endedMsg{}
		}
		return stateMsg(st)
	}
}

func (m *Model) submit(play protocol.Play) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, playTimeout)
		defer cancel()
		accepted, err := m.svc.Play(ctx, play)
		return playResultMsg{play: play, accepted: accepted, err: err}
	}
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString("===== Rock Paper Scissors Lizard Spock =====\n\n")

	if m.info.ShareLink != "" && m.state.GameID != "" {
		b.WriteString(fmt.Sprintf("Share: %s\n", m.info.ShareLink))
	} else {
		b.WriteString("Share: waiting for a game id...\n")
	}
	b.WriteString(fmt.Sprintf("Round: %d\n\n", m.state.Round))

	b.WriteString(fmt.Sprintf("You %d  :  %d Them\n", m.state.YourScore, m.state.TheirScore))
	b.WriteString(fmt.Sprintf("Your play:  %s\n", orBlank(m.state.YourPlay)))
	b.WriteString(fmt.Sprintf("Their play: %s\n\n", orBlank(m.state.TheirPlay)))

	if status := m.state.Status(); status != "" {
		b.WriteString(status + "\n")
	}
	if m.state.JustWon {
		b.WriteString("You won!\n")
	}
	if m.state.Locked {
		b.WriteString("Waiting for the server...\n")
	}

	if m.notice != "" {
		b.WriteString("\n" + m.notice + "\n")
	}

	b.WriteString("\n[R]ock  [P]aper  [S]cissors  [L]izard  Spoc[K]   [Q]uit\n")
	return b.String()
}

func orBlank(p protocol.Play) string {
	if p == "" {
		return "..."
	}
	return p.String()
}
