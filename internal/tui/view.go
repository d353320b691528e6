package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/llehouerou/hifi/internal/playback"
	"github.com/llehouerou/hifi/internal/queue"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	currentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575"))

	cursorStyle = lipgloss.NewStyle().
			Reverse(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	messageStyles = map[playback.MessageLevel]lipgloss.Style{
		playback.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		playback.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		playback.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		playback.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("hifi"))
	b.WriteString("\n\n")

	if m.searching {
		b.WriteString(m.viewSearch())
	} else {
		b.WriteString(m.viewQueue())
	}

	b.WriteString("\n")
	b.WriteString(m.viewPlayerBar())
	b.WriteString("\n")
	b.WriteString(m.viewStatusLine())
	return b.String()
}

func (m Model) viewQueue() string {
	if len(m.tracks) == 0 {
		return dimStyle.Render("  queue is empty; press / to search") + "\n"
	}

	var b strings.Builder
	for i, t := range m.tracks {
		line := fmt.Sprintf("%3d  %s", i+1, trackLine(t))
		switch {
		case i == m.cursor && i == m.state.Index:
			line = cursorStyle.Render(currentStyle.Render(line))
		case i == m.cursor:
			line = cursorStyle.Render(line)
		case i == m.state.Index:
			line = currentStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewSearch() string {
	var b strings.Builder
	b.WriteString("  " + m.searchBox.View() + "\n\n")
	for i, t := range m.results {
		line := fmt.Sprintf("  %s - %s", t.Artist, t.Title)
		if i == m.resultSel {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(m.results) > 0 {
		b.WriteString(dimStyle.Render("\n  enter: play  ctrl+a: add to queue  esc: back") + "\n")
	}
	return b.String()
}

func (m Model) viewPlayerBar() string {
	st := m.state
	var title string
	if st.Track != nil {
		title = fmt.Sprintf("%s - %s", st.Track.Artist, st.Track.Title)
	} else {
		title = dimStyle.Render("nothing loaded")
	}

	width := m.width - 4
	if width < 20 {
		width = 40
	}

	bar := renderProgress(st.Position, st.Duration, width-16)
	times := fmt.Sprintf("%s/%s", formatDuration(st.Position), formatDuration(st.Duration))

	return fmt.Sprintf("  %s\n  %s %s", title, bar, dimStyle.Render(times))
}

func (m Model) viewStatusLine() string {
	st := m.state

	var parts []string
	parts = append(parts, statusLabel(st.Status))
	if st.Status == playback.StatusBuffering {
		parts = append(parts, humanize.IBytes(uint64(max(m.svc.Buffered(), 0)))+" spooled")
	}
	if st.Muted {
		parts = append(parts, "muted")
	} else {
		parts = append(parts, fmt.Sprintf("vol %d%%", int(st.Volume*100)))
	}
	if st.Shuffle {
		parts = append(parts, "shuffle")
	}
	if st.Repeat != queue.RepeatOff {
		parts = append(parts, "repeat "+st.Repeat.String())
	}

	line := "  " + dimStyle.Render(strings.Join(parts, "  "))
	if m.message != "" {
		style, ok := messageStyles[m.msgLevel]
		if !ok {
			style = dimStyle
		}
		line += "\n  " + style.Render(m.message)
	}
	return line
}

func statusLabel(s playback.Status) string {
	switch s {
	case playback.StatusPlaying:
		return "▶ playing"
	case playback.StatusPaused:
		return "⏸ paused"
	case playback.StatusLoading:
		return "… loading"
	case playback.StatusBuffering:
		return "… buffering"
	case playback.StatusErrored:
		return "✗ error"
	default:
		return "■ stopped"
	}
}

func trackLine(t queue.Track) string {
	return fmt.Sprintf("%-30.30s %-24.24s %s", t.Title, t.Artist, formatDuration(t.Duration))
}

// renderProgress draws a fixed-width bar of filled and empty cells.
func renderProgress(pos, dur time.Duration, width int) string {
	if width < 4 {
		width = 4
	}
	filled := 0
	if dur > 0 {
		filled = int(float64(width) * float64(pos) / float64(dur))
		filled = min(max(filled, 0), width)
	}
	return strings.Repeat("▓", filled) + strings.Repeat("░", width-filled)
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
