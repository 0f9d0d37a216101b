package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/benbjohnson/clock"
	"go.viam.com/rdk/logging"
	robotarm "robot_arm"
)

type DashboardCommand struct {
	Hz         int  `long:"hz" default:"20" description:"Chart refresh rate"`
	Step       int  `long:"step" default:"5" description:"Degrees per key press"`
	DurationMs int  `long:"duration-ms" default:"1000" description:"Time each move takes"`
	Halt       bool `long:"halt-on-collision" description:"Stop every joint when a collision starts"`
}

const (
	headerHeight = 4 // title + joint table + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Joint colors - distinct colors for each joint
var jointColors = [robotarm.JointCount]string{
	"196", // red
	"208", // orange
	"226", // yellow
	"46",  // green
	"51",  // cyan
	"201", // magenta
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
)

var presetKeys = map[string]string{
	"1": robotarm.PresetHome,
	"2": robotarm.PresetPick,
	"3": robotarm.PresetRest,
	"4": robotarm.PresetService,
}

type dashboardModel struct {
	runner   *robotarm.Runner
	events   <-chan string
	step     int
	interval time.Duration

	chart    *streamlinechart.Model
	snapshot robotarm.Snapshot
	selected int
	width    int
	height   int
	logs     []string
	quitting bool
}

type snapshotMsg robotarm.Snapshot
type eventMsg string

func (m *dashboardModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func pollSnapshot(runner *robotarm.Runner, interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		var snap robotarm.Snapshot
		_ = runner.Do(context.Background(), func(s *robotarm.ArmState) {
			snap = s.Snapshot()
		})
		return snapshotMsg(snap)
	})
}

func waitForEvent(events <-chan string) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-events)
	}
}

// apply runs fn on the arm state and logs the line it returns, if any.
func (m *dashboardModel) apply(fn func(s *robotarm.ArmState) string) {
	var msg string
	if err := m.runner.Do(context.Background(), func(s *robotarm.ArmState) {
		msg = fn(s)
	}); err != nil {
		msg = err.Error()
	}
	if msg != "" {
		m.addLog(msg)
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *dashboardModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func newDashboardModel(runner *robotarm.Runner, events <-chan string, step int, interval time.Duration) dashboardModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-180, 180),
	)
	for i, name := range robotarm.JointNames {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[i]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return dashboardModel{
		runner:   runner,
		events:   events,
		step:     step,
		interval: interval,
		chart:    &chart,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(
		pollSnapshot(m.runner, m.interval),
		waitForEvent(m.events),
	)
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.chartSize()
		m.chart.Resize(w, h)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case snapshotMsg:
		m.snapshot = robotarm.Snapshot(msg)
		for i, name := range robotarm.JointNames {
			m.chart.PushDataSet(name, float64(m.snapshot.Joints[i]))
		}
		m.chart.DrawAll()
		return m, pollSnapshot(m.runner, m.interval)

	case eventMsg:
		m.addLog(string(msg))
		return m, waitForEvent(m.events)
	}

	return m, nil
}

func (m dashboardModel) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "left", "h":
		m.selected = (m.selected + robotarm.JointCount - 1) % robotarm.JointCount
	case "right", "l", "tab":
		m.selected = (m.selected + 1) % robotarm.JointCount
	case "up", "k", "down", "j":
		delta := m.step
		if key == "down" || key == "j" {
			delta = -delta
		}
		joint := m.selected
		m.apply(func(s *robotarm.ArmState) string {
			target := s.JointTargets()[joint] + delta
			if !s.SetJointAngle(joint, target) {
				return fmt.Sprintf("%s: %d° is outside the joint limits", robotarm.JointNames[joint], target)
			}
			return ""
		})
	case "o":
		m.apply(func(s *robotarm.ArmState) string { s.OpenGripper(); return "" })
	case "c":
		m.apply(func(s *robotarm.ArmState) string { s.CloseGripper(); return "" })
	case "s", " ":
		m.apply(func(s *robotarm.ArmState) string { s.EmergencyStop(); return "" })
	default:
		if preset, ok := presetKeys[key]; ok {
			m.apply(func(s *robotarm.ArmState) string {
				if !s.MoveToPreset(preset) {
					return "preset " + preset + " rejected"
				}
				return "moving to " + preset
			})
		}
	}
	return m, nil
}

func (m dashboardModel) View() string {
	if m.quitting {
		return "Dashboard closed.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Robot Arm Dashboard"))
	sb.WriteString(fmt.Sprintf(" - %s", m.snapshot.Status))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderJoints())
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4)

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("←/→ joint  ↑/↓ move  1-4 presets  o/c gripper  s stop  q quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m dashboardModel) renderJoints() string {
	items := make([]string, 0, robotarm.JointCount+2)
	for i, name := range robotarm.JointNames {
		item := fmt.Sprintf("%s %4d°", name, m.snapshot.Joints[i])
		if i == m.selected {
			item = selectedStyle.Render(item)
		}
		items = append(items, item)
	}
	ee := m.snapshot.EndEffector
	items = append(items,
		fmt.Sprintf("gripper %2d°", m.snapshot.Gripper),
		statusStyle.Render(fmt.Sprintf("ee (%.3f, %.3f, %.3f)", ee.X, ee.Y, ee.Z)),
	)
	return strings.Join(items, "  ")
}

func renderLegend() string {
	var items []string
	for i, name := range robotarm.JointNames {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[i])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

func (c *DashboardCommand) Execute(args []string) error {
	logger := logging.NewLogger("robot-arm-dashboard")
	logger.SetLevel(logging.WARN)

	state := robotarm.NewArmState(robotarm.ArmStateOptions{
		MoveDuration:    time.Duration(c.DurationMs) * time.Millisecond,
		HaltOnCollision: c.Halt,
	}, logger)

	events := make(chan string, 32)
	state.Subscribe(func(e robotarm.Event) {
		var line string
		switch e.Kind {
		case robotarm.EventEmergencyStop:
			line = "emergency stop: " + e.Reason
		case robotarm.EventCollisionChanged:
			line = fmt.Sprintf("collision: %v %v", state.HasCollision(), state.CollisionChecksFiring())
		case robotarm.EventPositionReached:
			line = fmt.Sprintf("position reached: %v", state.JointAngles())
		default:
			return
		}
		select {
		case events <- line:
		default:
		}
	})

	runner := robotarm.NewRunner(state, clock.New(), robotarm.DefaultTickRate, logger)
	runner.Start()
	defer runner.Close()

	hz := c.Hz
	if hz <= 0 {
		hz = 20
	}
	p := tea.NewProgram(newDashboardModel(runner, events, c.Step, time.Second/time.Duration(hz)), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
