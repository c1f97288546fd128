package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"breathe/balloon"
	"breathe/session"
)

const uiTick = 60 * time.Millisecond

// exercise is the part of session.Session the view drives.
type exercise interface {
	Start(ctx context.Context) error
	Stop()
	Claim(ctx context.Context) (session.Completion, error)
	Snapshot() session.Snapshot
}

// TUI message types
type tickMsg time.Time
type completedMsg session.Completion
type startedMsg struct{ err error }
type stoppedMsg struct{ auto bool }
type claimedMsg struct {
	c   session.Completion
	err error
}

type tuiModel struct {
	ctx        context.Context
	sess       exercise
	snap       session.Snapshot
	frame      int
	width      int
	height     int
	deviceLine string
	quiet      *quietMonitor
	status     string // last user-facing notice
	starting   bool
}

// Pre-computed pixel styles to avoid allocations in render loop
var (
	pixelColorsCalm   = []string{"", "195", "159", "123", "87", "51", "45", "39", "33", "27", "255", "250"}
	pixelColorsStrong = []string{"", "230", "229", "228", "221", "214", "208", "202", "166", "130", "255", "250"}
	pixelStylesCalm   [12]lipgloss.Style
	pixelStylesStrong [12]lipgloss.Style
	pixelBgCalm       [12][12]lipgloss.Style
	pixelBgStrong     [12][12]lipgloss.Style
)

func init() {
	fill := func(colors []string, styles *[12]lipgloss.Style, bg *[12][12]lipgloss.Style) {
		for i, c := range colors {
			if c != "" {
				styles[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
			}
		}
		for i, fg := range colors {
			for j, b := range colors {
				if fg != "" && b != "" {
					bg[i][j] = lipgloss.NewStyle().Foreground(lipgloss.Color(fg)).Background(lipgloss.Color(b))
				}
			}
		}
	}
	fill(pixelColorsCalm, &pixelStylesCalm, &pixelBgCalm)
	fill(pixelColorsStrong, &pixelStylesStrong, &pixelBgStrong)
}

func newTUIModel(ctx context.Context, sess exercise, deviceLine string) tuiModel {
	return tuiModel{
		ctx:        ctx,
		sess:       sess,
		snap:       sess.Snapshot(),
		deviceLine: deviceLine,
		quiet:      newQuietMonitor(uiTick),
	}
}

func tuiTick() tea.Cmd {
	return tea.Tick(uiTick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) startCmd() tea.Cmd {
	return func() tea.Msg {
		return startedMsg{err: m.sess.Start(m.ctx)}
	}
}

func (m tuiModel) stopCmd(auto bool) tea.Cmd {
	return func() tea.Msg {
		m.sess.Stop()
		return stoppedMsg{auto: auto}
	}
}

func (m tuiModel) claimCmd() tea.Cmd {
	return func() tea.Msg {
		c, err := m.sess.Claim(m.ctx)
		return claimedMsg{c: c, err: err}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ":
			switch {
			case m.starting:
			case m.snap.State == session.Idle:
				m.starting = true
				m.status = ""
				return m, m.startCmd()
			case m.snap.State == session.Active:
				return m, m.stopCmd(false)
			}
		case "enter":
			if m.snap.State == session.Complete {
				return m, m.claimCmd()
			}
		}

	case tickMsg:
		m.frame++
		m.snap = m.sess.Snapshot()
		if m.snap.State != session.Active {
			return m, tuiTick()
		}
		if m.quiet.Tick(m.snap.Frame.Breathing) == QuietAutoStop {
			m.quiet = newQuietMonitor(uiTick)
			return m, tea.Batch(tuiTick(), m.stopCmd(true))
		}
		return m, tuiTick()

	case startedMsg:
		m.starting = false
		m.quiet = newQuietMonitor(uiTick)
		if msg.err != nil {
			m.status = "Can't hear you: " + msg.err.Error()
		}
		m.snap = m.sess.Snapshot()

	case stoppedMsg:
		if msg.auto {
			m.status = "Stopped: no breath heard for a while"
		}
		m.snap = m.sess.Snapshot()

	case completedMsg:
		m.status = fmt.Sprintf("Beautiful breathing! Press enter for +%d points", msg.Points)
		m.snap = m.sess.Snapshot()

	case claimedMsg:
		if msg.err != nil {
			m.status = "Could not save points: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("+%d points saved", msg.c.Points)
		}
		m.snap = m.sess.Snapshot()
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	strong := m.snap.Band == balloon.TooStrong && m.snap.State == session.Active
	art := renderBalloon(m.frame, m.snap.Scale, strong)

	var infoLines []string

	switch m.snap.State {
	case session.Active:
		infoLines = append(infoLines, lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true).
			Render(fmt.Sprintf("● BREATHING %.1fs / %.0fs", m.snap.Calm.Seconds(), m.snap.Goal.Seconds())))
		if m.quiet.Warned() {
			infoLines = append(infoLines, lipgloss.NewStyle().
				Foreground(lipgloss.Color("208")).
				Render("  ⚠ no breath detected"))
		}
	case session.Complete:
		infoLines = append(infoLines, lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true).
			Render("★ COMPLETE"))
	default:
		infoLines = append(infoLines, lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("○ READY"))
	}

	infoLines = append(infoLines, "")
	infoLines = append(infoLines, lipgloss.NewStyle().
		Foreground(lipgloss.Color("255")).
		Bold(true).
		Render(m.snap.Feedback.String()))
	infoLines = append(infoLines, renderProgress(m.snap.Progress, 30))

	if m.status != "" {
		infoLines = append(infoLines, "", lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Render(m.status))
	}

	infoLines = append(infoLines, "")
	infoLines = append(infoLines, lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(m.deviceLine))

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	infoLines = append(infoLines,
		boldStyle.Render("space")+helpStyle.Render(" start/stop  ")+
			boldStyle.Render("enter")+helpStyle.Render(" claim  ")+
			boldStyle.Render("q")+helpStyle.Render(" quit"))
	infoLines = append(infoLines, helpStyle.Render("breathe "+version))

	body := art + strings.Join(infoLines, "\n")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Top, body)
}

func renderProgress(p float64, width int) string {
	p = math.Max(0, math.Min(1, p))
	filled := int(math.Round(p * float64(width)))
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, p*100)
}

// renderBalloon draws concentric rings scaled by the simulator output, in
// half-block pixels so the balloon stays round in a terminal cell grid.
func renderBalloon(frame int, scale float64, strong bool) string {
	const charsW = 44
	const charsH = 16
	const pixW = charsW
	const pixH = charsH * 2

	centerX := float64(pixW) / 2
	centerY := float64(pixH)/2 - 2

	// idle wobble so the balloon looks alive
	wobble := math.Sin(float64(frame)*0.08) * 0.02

	pixels := make([][]int, pixH)
	for i := range pixels {
		pixels[i] = make([]int, pixW)
	}

	type ring struct {
		radius   float64
		colorIdx int
	}
	rings := []ring{
		{0.8, 1},
		{1.6, 2},
		{2.4, 3},
		{3.2, 4},
		{4.0, 5},
		{4.8, 6},
		{5.6, 7},
		{6.4, 8},
		{7.0, 9},
	}

	s := scale + wobble
	for y := 0; y < pixH; y++ {
		for x := 0; x < pixW; x++ {
			dx := float64(x) - centerX
			// balloons are taller than wide
			dy := (float64(y) - centerY) / 1.15
			dist := math.Sqrt(dx*dx + dy*dy)
			for _, r := range rings {
				if dist < r.radius*s {
					pixels[y][x] = r.colorIdx
					break
				}
			}
		}
	}

	// highlight
	hx, hy := centerX-2.5*s, centerY-3.5*s
	for y := 0; y < pixH; y++ {
		for x := 0; x < pixW; x++ {
			dx := float64(x) - hx
			dy := float64(y) - hy
			if dx*dx/2+dy*dy < 0.8 && pixels[y][x] != 0 {
				pixels[y][x] = 10
			}
		}
	}

	// knot and string
	bottom := int(centerY + 7.0*s*1.15)
	for y := bottom; y < pixH; y++ {
		x := int(centerX + math.Sin(float64(y+frame/4)*0.7)*0.8)
		if x >= 0 && x < pixW && pixels[y][x] == 0 {
			pixels[y][x] = 11
		}
	}

	styles := &pixelStylesCalm
	bgStyles := &pixelBgCalm
	if strong {
		styles = &pixelStylesStrong
		bgStyles = &pixelBgStrong
	}

	var result strings.Builder
	for cy := 0; cy < charsH; cy++ {
		for cx := 0; cx < charsW; cx++ {
			top := pixels[cy*2][cx]
			bot := pixels[cy*2+1][cx]
			switch {
			case top == 0 && bot == 0:
				result.WriteString(" ")
			case top == bot:
				result.WriteString(styles[top].Render("█"))
			case bot == 0:
				result.WriteString(styles[top].Render("▀"))
			case top == 0:
				result.WriteString(styles[bot].Render("▄"))
			default:
				result.WriteString(bgStyles[top][bot].Render("▀"))
			}
		}
		result.WriteString("\n")
	}
	return result.String()
}
