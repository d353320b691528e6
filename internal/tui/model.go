// Package tui is the terminal front-end: a queue panel, a player bar and
// a catalog search box, all fed by playback events.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/hifi/internal/catalog"
	"github.com/llehouerou/hifi/internal/playback"
	"github.com/llehouerou/hifi/internal/queue"
)

const seekStep = 5 * time.Second

// Messages

// eventMsg wraps one playback event.
type eventMsg struct {
	event playback.Event
}

// eventsClosedMsg means the subscription ended; the app should quit.
type eventsClosedMsg struct{}

// searchResultMsg carries catalog search results.
type searchResultMsg struct {
	results *catalog.SearchResults
}

type searchErrMsg struct {
	err error
}

// Model is the bubbletea model for the whole TUI.
type Model struct {
	svc playback.Service
	cat catalog.Client
	sub *playback.Subscription

	state  playback.State
	tracks []queue.Track

	cursor   int
	width    int
	height   int
	message  string
	msgLevel playback.MessageLevel

	searching bool
	searchBox textinput.Model
	results   []catalog.Track
	resultSel int
}

func New(svc playback.Service, cat catalog.Client) Model {
	box := textinput.New()
	box.Placeholder = "search the catalog"
	box.CharLimit = 120

	return Model{
		svc:       svc,
		cat:       cat,
		sub:       svc.Subscribe(),
		state:     svc.State(),
		tracks:    svc.QueueTracks(),
		cursor:    maxInt(svc.QueueIndex(), 0),
		searchBox: box,
	}
}

// Run starts the program and blocks until quit.
func Run(svc playback.Service, cat catalog.Client) error {
	p := tea.NewProgram(New(svc, cat), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return watchEvents(m.sub)
}

// watchEvents waits for the next playback event. Re-armed after every
// delivery so events keep flowing into Update.
func watchEvents(sub *playback.Subscription) tea.Cmd {
	return func() tea.Msg {
		select {
		case e, ok := <-sub.Events:
			if !ok {
				return eventsClosedMsg{}
			}
			return eventMsg{event: e}
		case <-sub.Done:
			return eventsClosedMsg{}
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		m = m.applyEvent(msg.event)
		return m, watchEvents(m.sub)

	case eventsClosedMsg:
		return m, tea.Quit

	case searchResultMsg:
		m.results = msg.results.Tracks
		m.resultSel = 0
		if len(m.results) == 0 {
			m.message = "No results"
			m.msgLevel = playback.LevelInfo
		}
		return m, nil

	case searchErrMsg:
		m.message = msg.err.Error()
		m.msgLevel = playback.LevelError
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateQueue(msg)
	}
	return m, nil
}

// applyEvent folds a playback event into the view state.
func (m Model) applyEvent(e playback.Event) Model {
	switch ev := e.(type) {
	case playback.StatusChange:
		m.state.Status = ev.Current
	case playback.TrackChange:
		m.state.Track = ev.Current
		m.state.Index = ev.Index
		if ev.Current != nil {
			m.state.Duration = ev.Current.Duration
			m.state.Position = 0
		}
	case playback.QueueChange:
		m.tracks = ev.Tracks
		m.state.Index = ev.Index
		if m.cursor >= len(m.tracks) {
			m.cursor = len(m.tracks) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
	case playback.ModeChange:
		m.state.Repeat = ev.Repeat
		m.state.Shuffle = ev.Shuffle
	case playback.PositionChange:
		m.state.Position = ev.Position
		m.state.Duration = ev.Duration
	case playback.VolumeChange:
		m.state.Volume = ev.Level
		m.state.Muted = ev.Muted
	case playback.Message:
		m.message = ev.Text
		m.msgLevel = ev.Level
	}
	return m
}

func (m Model) updateQueue(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.svc.Unsubscribe(m.sub)
		return m, tea.Quit

	case " ":
		m.reportErr(m.svc.Toggle())
	case "s":
		m.reportErr(m.svc.Stop())
	case "n", "pgdown":
		m.reportErr(m.svc.Next())
	case "b", "pgup":
		m.reportErr(m.svc.Previous())
	case "left":
		m.reportErr(m.svc.Seek(-seekStep))
	case "right":
		m.reportErr(m.svc.Seek(seekStep))
	case "+", "=":
		m.reportErr(m.svc.SetVolume(m.svc.Volume() + 0.05))
	case "-":
		m.reportErr(m.svc.SetVolume(m.svc.Volume() - 0.05))
	case "m":
		m.reportErr(m.svc.ToggleMute())
	case "R":
		m.svc.CycleRepeat()
	case "S":
		m.svc.ToggleShuffle()

	case "j", "down":
		if m.cursor < len(m.tracks)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g":
		m.cursor = 0
	case "G":
		m.cursor = maxInt(len(m.tracks)-1, 0)
	case "enter":
		if len(m.tracks) > 0 {
			m.reportErr(m.svc.JumpTo(m.cursor))
		}
	case "x", "delete":
		if len(m.tracks) > 0 {
			m.reportErr(m.svc.Remove(m.cursor))
		}
	case "shift+j":
		if m.cursor < len(m.tracks)-1 {
			m.reportErr(m.svc.Move(m.cursor, m.cursor+1))
			m.cursor++
		}
	case "shift+k":
		if m.cursor > 0 {
			m.reportErr(m.svc.Move(m.cursor, m.cursor-1))
			m.cursor--
		}
	case "c":
		m.reportErr(m.svc.Clear())

	case "/":
		m.searching = true
		m.results = nil
		m.searchBox.SetValue("")
		return m, m.searchBox.Focus()
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchBox.Blur()
		return m, nil

	case "enter":
		if len(m.results) > 0 {
			t := m.results[m.resultSel]
			m.searching = false
			m.searchBox.Blur()
			m.reportErr(m.svc.PlayTracks([]queue.Track{queue.FromCatalog(t)}))
			return m, nil
		}
		if q := m.searchBox.Value(); q != "" {
			return m, m.runSearch(q)
		}
		return m, nil

	case "ctrl+a":
		// Append the selection instead of replacing the queue.
		if len(m.results) > 0 {
			m.reportErr(m.svc.Append(queue.FromCatalog(m.results[m.resultSel])))
		}
		return m, nil

	case "down", "ctrl+n":
		if m.resultSel < len(m.results)-1 {
			m.resultSel++
		}
		return m, nil
	case "up", "ctrl+p":
		if m.resultSel > 0 {
			m.resultSel--
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.searchBox, cmd = m.searchBox.Update(msg)
	return m, cmd
}

func (m Model) runSearch(query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		results, err := m.cat.Search(ctx, query)
		if err != nil {
			return searchErrMsg{err: err}
		}
		return searchResultMsg{results: results}
	}
}

// reportErr surfaces a command failure in the message line. The playback
// service publishes its own messages for shared-state errors; this covers
// purely local ones like out-of-range seeks.
func (m *Model) reportErr(err error) {
	if err == nil {
		return
	}
	m.message = err.Error()
	m.msgLevel = playback.LevelWarning
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
