package tui

// Binding describes a single key binding for documentation.
type Binding struct {
	Keys        []string
	Description string
	Context     string // "global", "playback", "queue", "search"
}

// AllBindings contains every key binding for help generation.
var AllBindings = []Binding{
	// Global
	{[]string{"q", "ctrl+c"}, "Quit", "global"},
	{[]string{"/"}, "Search catalog", "global"},

	// Playback
	{[]string{"space"}, "Play/pause", "playback"},
	{[]string{"s"}, "Stop", "playback"},
	{[]string{"n", "pgdown"}, "Next track", "playback"},
	{[]string{"b", "pgup"}, "Previous track", "playback"},
	{[]string{"left"}, "Seek -5s", "playback"},
	{[]string{"right"}, "Seek +5s", "playback"},
	{[]string{"+", "="}, "Volume up", "playback"},
	{[]string{"-"}, "Volume down", "playback"},
	{[]string{"m"}, "Toggle mute", "playback"},
	{[]string{"R"}, "Cycle repeat mode", "playback"},
	{[]string{"S"}, "Toggle shuffle", "playback"},

	// Queue
	{[]string{"j", "down"}, "Move down", "queue"},
	{[]string{"k", "up"}, "Move up", "queue"},
	{[]string{"g"}, "First track", "queue"},
	{[]string{"G"}, "Last track", "queue"},
	{[]string{"enter"}, "Play track", "queue"},
	{[]string{"x", "delete"}, "Remove track", "queue"},
	{[]string{"shift+j"}, "Move track down", "queue"},
	{[]string{"shift+k"}, "Move track up", "queue"},
	{[]string{"c"}, "Clear queue", "queue"},

	// Search
	{[]string{"enter"}, "Run search / play selection", "search"},
	{[]string{"ctrl+a"}, "Add selection to queue", "search"},
	{[]string{"esc"}, "Back to queue", "search"},
}
