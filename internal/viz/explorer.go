package viz

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/phaseplane/internal/analysis"
	"github.com/san-kum/phaseplane/internal/dynamo"
	"github.com/san-kum/phaseplane/internal/export"
	"github.com/san-kum/phaseplane/internal/phase"
)

const (
	panelWidth = 50
	minCanvasW = 20
	minCanvasH = 8
	// cursorSteps is how many key presses cross the window.
	cursorSteps = 40
)

type (
	trajectoryMsg struct {
		pair *dynamo.Pair
		err  error
	}
	rebuildMsg struct {
		what string
		err  error
	}
	nullclineMsg struct{ err error }
	fixedMsg     struct {
		fps []analysis.FixedPoint
		err error
	}
	savedMsg struct {
		id  string
		err error
	}
)

// Explorer is the interactive phase-plane view. It owns no state beyond
// presentation; every computation goes through the phase model.
type Explorer struct {
	model         *phase.Model
	store         *export.Store
	theme         Theme
	width, height int
	cursor        [2]float64
	showFixed     bool
	paramIdx      int
	status        string
	statusErr     bool
	busy          bool
	showHelp      bool
}

// NewExplorer centers the cursor in the model's window. store may be nil,
// which disables saving.
func NewExplorer(m *phase.Model, store *export.Store, theme Theme) Explorer {
	w := m.Window()
	return Explorer{
		model:  m,
		store:  store,
		theme:  theme,
		width:  120,
		height: 32,
		cursor: [2]float64{(w[0].Min + w[0].Max) / 2, (w[1].Min + w[1].Max) / 2},
		status: "ready",
	}
}

func RunExplorer(m *phase.Model, store *export.Store, theme Theme) error {
	_, err := tea.NewProgram(NewExplorer(m, store, theme), tea.WithAltScreen()).Run()
	return err
}

func (e Explorer) Init() tea.Cmd { return nil }

func (e Explorer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		e.width, e.height = msg.Width, msg.Height
		return e, nil
	case tea.KeyMsg:
		return e.handleKey(msg)
	case trajectoryMsg:
		e.busy = false
		if msg.err != nil {
			return e.fail(msg.err), nil
		}
		f, b := msg.pair.Forward, msg.pair.Backward
		e.setStatus(fmt.Sprintf("seed %s: forward %s, backward %s", formatState(msg.pair.Seed), f.Termination, b.Termination))
	case rebuildMsg:
		e.busy = false
		if msg.err != nil {
			return e.fail(msg.err), nil
		}
		e.setStatus(msg.what)
		if e.showFixed {
			return e, e.fixedCmd()
		}
	case nullclineMsg:
		e.busy = false
		if msg.err != nil {
			return e.fail(msg.err), nil
		}
	case fixedMsg:
		e.busy = false
		if msg.err != nil {
			return e.fail(msg.err), nil
		}
		e.setStatus(fmt.Sprintf("%d equilibria in window", len(msg.fps)))
	case savedMsg:
		if msg.err != nil {
			return e.fail(msg.err), nil
		}
		e.setStatus("saved " + msg.id)
	}
	return e, nil
}

func (e *Explorer) setStatus(s string) { e.status, e.statusErr = s, false }

func (e Explorer) fail(err error) Explorer {
	e.status, e.statusErr = err.Error(), true
	return e
}

func (e Explorer) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	w := e.model.Window()
	stepX, stepY := w[0].Span()/cursorSteps, w[1].Span()/cursorSteps

	switch msg.String() {
	case "q", "ctrl+c":
		return e, tea.Quit
	case "?":
		e.showHelp = !e.showHelp
	case "t":
		e.theme = NextTheme(e.theme)
	case "left", "h":
		e.cursor[0] = math.Max(w[0].Min, e.cursor[0]-stepX)
	case "right", "l":
		e.cursor[0] = math.Min(w[0].Max, e.cursor[0]+stepX)
	case "up", "k":
		e.cursor[1] = math.Min(w[1].Max, e.cursor[1]+stepY)
	case "down", "j":
		e.cursor[1] = math.Max(w[1].Min, e.cursor[1]-stepY)
	case "H":
		e.cursor[0] = math.Max(w[0].Min, e.cursor[0]-5*stepX)
	case "L":
		e.cursor[0] = math.Min(w[0].Max, e.cursor[0]+5*stepX)
	case "K":
		e.cursor[1] = math.Min(w[1].Max, e.cursor[1]+5*stepY)
	case "J":
		e.cursor[1] = math.Max(w[1].Min, e.cursor[1]-5*stepY)
	case "enter", " ":
		if e.busy {
			return e, nil
		}
		e.busy = true
		seed := e.seedAtCursor()
		m := e.model
		return e, func() tea.Msg {
			pair, err := m.AddTrajectory(seed)
			return trajectoryMsg{pair, err}
		}
	case "u", "backspace":
		if pairs := e.model.Trajectories(); len(pairs) > 0 {
			e.model.RemoveTrajectory(pairs[len(pairs)-1].Seed)
			e.setStatus("removed last trajectory")
		}
	case "c":
		e.model.ClearTrajectories()
		e.setStatus("cleared trajectories")
	case "n":
		if e.busy {
			return e, nil
		}
		on := !e.model.NullclinesShown()
		e.busy = true
		m := e.model
		return e, func() tea.Msg { return nullclineMsg{m.ToggleNullclines(on)} }
	case "f":
		e.showFixed = !e.showFixed
		if e.showFixed {
			e.busy = true
			return e, e.fixedCmd()
		}
	case "tab":
		if n := len(e.model.System().Params()); n > 0 {
			e.paramIdx = (e.paramIdx + 1) % n
		}
	case "+", "=":
		return e.adjustParam(1.1)
	case "-", "_":
		return e.adjustParam(1 / 1.1)
	case "z":
		return e.zoom(0.5)
	case "Z":
		return e.zoom(2)
	case "s":
		if e.store == nil {
			return e.fail(fmt.Errorf("no store configured")), nil
		}
		m, st := e.model, e.store
		return e, func() tea.Msg {
			if err := st.Init(); err != nil {
				return savedMsg{err: err}
			}
			id, err := st.Save(export.NewBundle(m.Snapshot()))
			return savedMsg{id, err}
		}
	}
	return e, nil
}

// seedAtCursor maps the cursor to a state. One-dimensional systems are
// drawn over (t, x) and autonomous, so only the x coordinate seeds.
func (e Explorer) seedAtCursor() dynamo.State {
	if e.model.System().Dim() == 1 {
		return dynamo.State{e.cursor[1]}
	}
	return dynamo.State{e.cursor[0], e.cursor[1]}
}

func (e Explorer) fixedCmd() tea.Cmd {
	m := e.model
	return func() tea.Msg {
		fps, err := m.FixedPoints()
		return fixedMsg{fps, err}
	}
}

// rebuild swaps in a new system or window and replays the current seeds,
// which an update drops.
func (e Explorer) rebuild(what string, change func(m *phase.Model) error) (tea.Model, tea.Cmd) {
	if e.busy {
		return e, nil
	}
	e.busy = true
	m := e.model
	var seeds []dynamo.State
	for _, p := range m.Trajectories() {
		seeds = append(seeds, p.Seed)
	}
	return e, func() tea.Msg {
		if err := change(m); err != nil {
			return rebuildMsg{err: err}
		}
		return rebuildMsg{what: what, err: m.AddTrajectories(context.Background(), seeds)}
	}
}

func (e Explorer) adjustParam(factor float64) (tea.Model, tea.Cmd) {
	sys := e.model.System()
	params := sys.Params()
	names := params.Names()
	if len(names) == 0 {
		return e, nil
	}
	name := names[e.paramIdx%len(names)]
	val := params[name]
	if val == 0 {
		val = 0.1
		if factor < 1 {
			val = -0.1
		}
	} else {
		val *= factor
	}

	raw := make(map[string]any, len(params))
	for k, v := range params {
		raw[k] = v
	}
	raw[name] = val

	window := e.model.Window()
	return e.rebuild(fmt.Sprintf("%s = %.4g", name, val), func(m *phase.Model) error {
		next, err := sys.WithParams(raw)
		if err != nil {
			return err
		}
		return m.UpdateSystem(next, window)
	})
}

func (e Explorer) zoom(factor float64) (tea.Model, tea.Cmd) {
	w := e.model.Window()
	var next dynamo.Window
	for i := range w {
		half := w[i].Span() / 2 * factor
		next[i] = dynamo.Interval{Min: e.cursor[i] - half, Max: e.cursor[i] + half}
	}
	sys := e.model.System()
	return e.rebuild(fmt.Sprintf("window %s", formatWindow(next)), func(m *phase.Model) error {
		return m.UpdateSystem(sys, next)
	})
}

func (e Explorer) canvasSize() (int, int) {
	w := e.width - panelWidth - 6
	h := e.height - 4
	if w < minCanvasW {
		w = minCanvasW
	}
	if h < minCanvasH {
		h = minCanvasH
	}
	return w, h
}

func (e Explorer) View() string {
	snap := e.model.Snapshot()
	if !e.showFixed {
		snap.FixedPoints = nil
	}
	cw, ch := e.canvasSize()
	cursor := e.cursor
	portrait := Render(snap, RenderOptions{
		Width: cw, Height: ch,
		Theme:     e.theme,
		Color:     true,
		Cursor:    &cursor,
		Highlight: len(snap.Trajectories) - 1,
	})
	canvasView := canvasStyle.Render(portrait)

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, panelStyle.Render(e.panel(snap)))
	if e.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

func (e Explorer) panel(snap *phase.Snapshot) string {
	var s strings.Builder
	labels := snap.AxisLabels()
	s.WriteString(HeaderStyle.Render("PHASE PLANE") + "\n")

	for i, c := range snap.Coords {
		s.WriteString(valueStyle.Render(fmt.Sprintf("%s' = %s", c, snap.Exprs[i])) + "\n")
	}
	s.WriteString("\n")

	state := snap.State.String()
	if e.busy {
		state = "computing"
	}
	s.WriteString(labelStyle.Render("State") + valueStyle.Render(state) + "\n")
	s.WriteString(labelStyle.Render("Window") + valueStyle.Render(formatWindow(snap.Window)) + "\n")
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("[%g, %g]", snap.Bounds.Reverse, snap.Bounds.Forward)) + "\n")
	s.WriteString(labelStyle.Render("Cursor") + valueStyle.Render(fmt.Sprintf("%s=%.3g %s=%.3g", labels[0], e.cursor[0], labels[1], e.cursor[1])) + "\n")
	s.WriteString(labelStyle.Render("Method") + valueStyle.Render(snap.Method) + "\n")

	s.WriteString("\nPARAMETERS\n")
	names := snap.Params.Names()
	if len(names) == 0 {
		s.WriteString(labelStyle.Render("  (none)") + "\n")
	}
	for i, k := range names {
		line := fmt.Sprintf("%-8s %.4g", k, snap.Params[k])
		if i == e.paramIdx%len(names) {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}

	s.WriteString(fmt.Sprintf("\nTRAJECTORIES %d", len(snap.Trajectories)))
	if snap.Nullclines != nil {
		s.WriteString("  NULLCLINES on")
	}
	s.WriteString("\n")

	if n := len(snap.Trajectories); n > 0 {
		if chart := latestChart(snap); chart != "" {
			s.WriteString(graphStyle.Render(chart) + "\n")
		}
	}

	if e.showFixed && len(snap.FixedPoints) > 0 {
		s.WriteString("\nEQUILIBRIA\n")
		for _, fp := range snap.FixedPoints {
			s.WriteString(fmt.Sprintf("  %-18s %s\n", formatState(fp.State), fp.Kind))
		}
	}

	status := lipgloss.NewStyle().Foreground(e.theme.Muted)
	if e.statusErr {
		status = status.Foreground(e.theme.Error)
	}
	s.WriteString("\n" + status.Render(e.status) + "\n")
	s.WriteString(helpStyle.Render("─────────────────────\nenter:Seed u:Undo c:Clear\nn:Nullclines f:Equilibria\ntab/+/-:Params z/Z:Zoom\ns:Save t:Theme ?:Help q:Quit"))
	return s.String()
}

// latestChart plots the first coordinate of the newest trajectory against
// time, backward and forward branches joined at the seed.
func latestChart(snap *phase.Snapshot) string {
	pair := snap.Trajectories[len(snap.Trajectories)-1]
	var data []float64
	if pair.Backward != nil {
		data = append(data, pair.Backward.Component(0)...)
	}
	if pair.Forward != nil {
		fwd := pair.Forward.Component(0)
		if len(data) > 0 && len(fwd) > 0 {
			fwd = fwd[1:]
		}
		data = append(data, fwd...)
	}
	if len(data) < 2 {
		return ""
	}
	return asciigraph.Plot(data, asciigraph.Height(5), asciigraph.Width(36), asciigraph.Caption(snap.Coords[0]+"(t)"))
}

func formatState(s dynamo.State) string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprintf("%.3g", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatWindow(w dynamo.Window) string {
	return fmt.Sprintf("[%.3g, %.3g] x [%.3g, %.3g]", w[0].Min, w[0].Max, w[1].Min, w[1].Max)
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Arrows/HJKL - Move cursor           ║
║  Enter/Space - Seed a trajectory     ║
║  U           - Remove last           ║
║  C           - Clear trajectories    ║
║  N           - Toggle nullclines     ║
║  F           - Toggle equilibria     ║
║  Tab         - Cycle parameters      ║
║  + / -       - Scale parameter 10%   ║
║  z / Z       - Zoom in / out         ║
║  S           - Save bundle           ║
║  T           - Cycle themes          ║
║  ?           - Toggle this help      ║
║  Q           - Quit                  ║
╚══════════════════════════════════════╝`
