package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"ctrllab/internal/experiment"
	"ctrllab/internal/loop"
)

const (
	canvasW    = 60
	canvasH    = 18
	historyCap = 600
	trailCap   = 120
)

// TickMsg drives the live loop at the configured frame rate.
type TickMsg time.Time

// tunable is one adjustable parameter and the object that owns it.
type tunable struct {
	label string
	owner loop.Configurable
	key   string
}

// Live is the bubbletea model animating one closed-loop rollout. Keys:
// space pauses, r resets, tab cycles parameters, up/down tunes the
// selected one, ? toggles help, q quits.
type Live struct {
	sys     loop.System
	stepper loop.Stepper
	law     loop.Law
	plant   string

	x  loop.State
	u  loop.Control
	x0 loop.State
	t  float64
	dt float64

	fps      int
	substeps int

	running  bool
	showHelp bool
	err      error

	canvas *Canvas
	trail  [][2]float64
	energy []float64

	params   []tunable
	initials []float64
	selected int
}

// NewLive builds the live view around a resolved experiment.
func NewLive(exp *experiment.Experiment, fps int) (*Live, error) {
	x0, err := exp.InitState()
	if err != nil {
		return nil, err
	}
	if fps <= 0 {
		fps = 30
	}

	cfg := exp.Config()
	dt := cfg.Dt
	substeps := int(1/(float64(fps)*dt) + 0.5)
	if substeps < 1 {
		substeps = 1
	}

	l := &Live{
		sys:      exp.Plant(),
		stepper:  exp.Stepper(),
		law:      exp.Law(),
		plant:    cfg.Plant,
		x:        x0.Clone(),
		u:        make(loop.Control, exp.Plant().ControlDim()),
		x0:       x0,
		dt:       dt,
		fps:      fps,
		substeps: substeps,
		running:  true,
		canvas:   NewCanvas(canvasW, canvasH),
	}
	l.collectParams()
	return l, nil
}

// collectParams gathers tunables from the law first, then the plant.
func (l *Live) collectParams() {
	add := func(prefix string, v any) {
		c, ok := v.(loop.Configurable)
		if !ok {
			return
		}
		keys := make([]string, 0)
		for k := range c.Params() {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			l.params = append(l.params, tunable{label: prefix + k, owner: c, key: k})
		}
	}
	add("law ", l.law)
	add("plant ", l.sys)

	l.initials = make([]float64, len(l.params))
	for i, p := range l.params {
		l.initials[i] = p.owner.Params()[p.key]
	}
}

func (l *Live) Init() tea.Cmd { return l.tick() }

func (l *Live) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(l.fps), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (l *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return l, tea.Quit
		case " ":
			if l.err == nil {
				l.running = !l.running
			}
		case "r":
			l.reset()
		case "tab":
			if len(l.params) > 0 {
				l.selected = (l.selected + 1) % len(l.params)
			}
		case "up", "k":
			l.adjustParam(1.05)
		case "down", "j":
			l.adjustParam(0.95)
		case "?":
			l.showHelp = !l.showHelp
		}
	case TickMsg:
		if l.running && l.err == nil {
			for i := 0; i < l.substeps; i++ {
				if !l.step() {
					break
				}
			}
		}
		return l, l.tick()
	}
	return l, nil
}

// step advances the loop one dt. A law failure or a diverged state
// freezes the view with the error on display.
func (l *Live) step() bool {
	u, err := l.law.Compute(l.x, l.t)
	if err != nil {
		l.fail(err)
		return false
	}
	l.u = u
	l.x = l.stepper.Step(l.sys, l.x, u, l.t, l.dt)
	l.t += l.dt
	if !l.x.IsValid() {
		l.fail(loop.ErrInvalidState)
		return false
	}

	if h, ok := l.sys.(loop.Hamiltonian); ok {
		l.energy = append(l.energy, h.Energy(l.x))
		if len(l.energy) > historyCap {
			l.energy = l.energy[1:]
		}
	}
	return true
}

func (l *Live) fail(err error) {
	l.err = err
	l.running = false
}

func (l *Live) adjustParam(factor float64) {
	if len(l.params) == 0 {
		return
	}
	p := l.params[l.selected]
	cur := p.owner.Params()[p.key]
	next := cur * factor
	if cur == 0 {
		// A zero gain cannot be scaled back up, so nudge instead.
		next = 0.01 * factor
	}
	if err := p.owner.SetParam(p.key, next); err != nil {
		l.fail(err)
	}
}

func (l *Live) reset() {
	l.x = l.x0.Clone()
	l.u = make(loop.Control, l.sys.ControlDim())
	l.t = 0
	l.err = nil
	l.running = true
	l.trail = l.trail[:0]
	l.energy = l.energy[:0]
	for i, p := range l.params {
		if err := p.owner.SetParam(p.key, l.initials[i]); err != nil {
			l.fail(err)
			return
		}
	}
	if r, ok := l.law.(interface{ Reset() }); ok {
		r.Reset()
	}
}

func (l *Live) View() string {
	l.draw()

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(l.plant)) + "\n")
	s.WriteString(l.status() + "\n")

	if len(l.energy) > 1 {
		chart := asciigraph.Plot(l.energy,
			asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("energy"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("time") + valueStyle.Render(fmt.Sprintf("%.2fs", l.t)) + "\n")
	s.WriteString(labelStyle.Render("state") + valueStyle.Render(formatVec(l.x, 4)) + "\n")
	s.WriteString(labelStyle.Render("control") + valueStyle.Render(formatVec(loop.State(l.u), 4)) + "\n")

	s.WriteString("\n" + headerStyle.Render("PARAMETERS") + "\n")
	if len(l.params) == 0 {
		s.WriteString(labelStyle.Render("(none)") + "\n")
	}
	for i, p := range l.params {
		line := fmt.Sprintf("%-14s %8.3f", p.label, p.owner.Params()[p.key])
		if i == l.selected {
			s.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}

	s.WriteString(helpStyle.Render("space pause  r reset  tab select  up/down tune  q quit"))

	main := lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(l.canvas.String()),
		panelStyle.Render(s.String()))

	if l.showHelp {
		return helpOverlay + "\n" + main
	}
	return main
}

func (l *Live) status() string {
	switch {
	case l.err != nil:
		return errorStyle.Render("STOPPED: " + l.err.Error())
	case !l.running:
		return "PAUSED"
	default:
		return "RUNNING"
	}
}

const helpOverlay = `  space  pause / resume
  r      reset state, time and parameters
  tab    select the next parameter
  up/k   raise the selected parameter 5%
  down/j lower the selected parameter 5%
  ?      toggle this help
  q      quit`

// draw renders the current state for the configured plant.
func (l *Live) draw() {
	l.canvas.Clear()
	switch l.plant {
	case "pendulum":
		l.drawPendulum()
	case "cartpole":
		l.drawCartPole()
	case "spring_mass":
		l.drawSpringMass()
	case "double_integrator":
		l.drawDoubleIntegrator()
	default:
		l.drawPhase()
	}
}

func (l *Live) pushTrail(x, y float64) {
	l.trail = append(l.trail, [2]float64{x, y})
	if len(l.trail) > trailCap {
		l.trail = l.trail[1:]
	}
}

// drawPendulum hangs the rod from the viewport center; the angle is
// measured from straight down.
func (l *Live) drawPendulum() {
	if len(l.x) < 2 {
		return
	}
	v := NewViewport(l.canvas, -1.4, 1.4, -1.4, 1.4)
	theta := l.x[0]
	bx, by := math.Sin(theta), -math.Cos(theta)

	l.pushTrail(bx, by)
	for _, p := range l.trail {
		v.Point(p[0], p[1])
	}
	v.Segment(0, 0, bx, by)
	v.Blob(bx, by)
}

// drawCartPole rides the cart on a rail through y=0 with the pole
// angle measured from upright.
func (l *Live) drawCartPole() {
	if len(l.x) < 4 {
		return
	}
	v := NewViewport(l.canvas, -2.4, 2.4, -1.2, 1.8)
	pos, theta := l.x[0], l.x[2]

	v.Segment(-2.4, 0, 2.4, 0)
	v.Segment(pos-0.3, 0.1, pos+0.3, 0.1)
	v.Segment(pos-0.3, -0.1, pos+0.3, -0.1)
	v.Segment(pos-0.3, -0.1, pos-0.3, 0.1)
	v.Segment(pos+0.3, -0.1, pos+0.3, 0.1)

	tipX := pos + math.Sin(theta)
	tipY := math.Cos(theta)
	l.pushTrail(tipX, tipY)
	for _, p := range l.trail {
		v.Point(p[0], p[1])
	}
	v.Segment(pos, 0.1, tipX, tipY)
	v.Blob(tipX, tipY)
}

// drawSpringMass coils a spring from the left wall to the mass.
func (l *Live) drawSpringMass() {
	if len(l.x) < 2 {
		return
	}
	v := NewViewport(l.canvas, -2.2, 2.2, -1.0, 1.0)
	pos := l.x[0]

	v.Segment(-2.0, -0.6, -2.0, 0.6)

	coils := 8
	prevX, prevY := -2.0, 0.0
	for i := 1; i <= coils; i++ {
		cx := -2.0 + (pos+2.0)*float64(i)/float64(coils)
		cy := 0.25
		if i%2 == 0 {
			cy = -0.25
		}
		if i == coils {
			cy = 0
		}
		v.Segment(prevX, prevY, cx, cy)
		prevX, prevY = cx, cy
	}
	v.Blob(pos, 0)
}

// drawDoubleIntegrator shows position on a rail and a velocity arrow.
func (l *Live) drawDoubleIntegrator() {
	if len(l.x) < 2 {
		return
	}
	v := NewViewport(l.canvas, -2.2, 2.2, -1.0, 1.0)
	pos, vel := l.x[0], l.x[1]

	v.Segment(-2.2, 0, 2.2, 0)
	v.Blob(pos, 0)
	v.Segment(pos, 0, pos+0.4*vel, 0.0)
	l.pushTrail(pos, 0.5)
	for _, p := range l.trail {
		v.Point(p[0], p[1])
	}
}

// drawPhase falls back to the x0/x1 phase plane with auto bounds.
func (l *Live) drawPhase() {
	if len(l.x) < 2 {
		return
	}
	l.pushTrail(l.x[0], l.x[1])

	x0, x1, y0, y1 := bounds(l.trail)
	v := NewViewport(l.canvas, x0, x1, y0, y1)
	for i := 1; i < len(l.trail); i++ {
		v.Segment(l.trail[i-1][0], l.trail[i-1][1], l.trail[i][0], l.trail[i][1])
	}
	v.Blob(l.x[0], l.x[1])
}

// bounds pads the bounding box of a trail by 10% per side.
func bounds(pts [][2]float64) (x0, x1, y0, y1 float64) {
	x0, y0 = math.Inf(1), math.Inf(1)
	x1, y1 = math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		x0, x1 = math.Min(x0, p[0]), math.Max(x1, p[0])
		y0, y1 = math.Min(y0, p[1]), math.Max(y1, p[1])
	}
	px, py := (x1-x0)*0.1, (y1-y0)*0.1
	return x0 - px, x1 + px, y0 - py, y1 + py
}

func formatVec(x loop.State, limit int) string {
	n := len(x)
	if n > limit {
		n = limit
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("%.3f", x[i])
	}
	out := "[" + strings.Join(parts, " ") + "]"
	if len(x) > limit {
		out += "…"
	}
	return out
}
