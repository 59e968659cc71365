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

	"github.com/gwillem/armctl/pkg/action"
	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/session"
)

type MonitorCommand struct {
	Action string `long:"action" short:"a" required:"yes" description:"Action to record poses into"`
	Hz     int    `long:"hz" default:"20" description:"Position polling frequency"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Motor colors - distinct colors for each motor
var motorColors = map[robot.MotorName]string{
	robot.ShoulderPan:  "196", // red
	robot.ShoulderLift: "208", // orange
	robot.ElbowFlex:    "226", // yellow
	robot.WristFlex:    "46",  // green
	robot.WristRoll:    "51",  // cyan
	robot.Gripper:      "201", // magenta
}

// Hotkeys that record the latest pose.
var poseKeys = map[string]action.PoseType{
	"h": action.Hover,
	"p": action.PreGrasp,
	"g": action.Grasp,
	"o": action.PostGrasp,
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type monitorModel struct {
	sess     *session.Session
	states   <-chan session.State
	action   string
	ids      []int
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	quitting bool
	last     action.Pose // most recent pose, recorded on hotkey
	lastErr  error
}

type stateMsg session.State

func waitForState(states <-chan session.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-states
		if !ok {
			return tea.Quit()
		}
		return stateMsg(st)
	}
}

func (m *monitorModel) addLog(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *monitorModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
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

func newMonitorModel(sess *session.Session, states <-chan session.State, actionName string) monitorModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, 360),
	)

	ids := sess.ServoIDs()
	for _, id := range ids {
		name := robot.MotorForID(id)
		color, ok := motorColors[name]
		if !ok {
			color = "250"
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}

	return monitorModel{
		sess:   sess,
		states: states,
		action: actionName,
		ids:    ids,
		chart:  &chart,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return waitForState(m.states)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.chartSize()
		m.chart.Resize(w, h)
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "q" || key == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if pt, ok := poseKeys[key]; ok {
			m.record(pt)
		}
		return m, nil

	case stateMsg:
		st := session.State(msg)
		if st.Error != nil {
			if m.lastErr == nil || m.lastErr.Error() != st.Error.Error() {
				m.addLog("Read error: %v", st.Error)
			}
			m.lastErr = st.Error
			return m, waitForState(m.states)
		}
		m.lastErr = nil
		m.last = st.Positions
		for i, id := range m.ids {
			if i < len(st.Positions) {
				m.chart.PushDataSet(string(robot.MotorForID(id)), robot.TicksToDegrees(st.Positions[i]))
			}
		}
		m.chart.DrawAll()
		return m, waitForState(m.states)
	}

	return m, nil
}

// record stores the last streamed pose; the bus is not read again so the
// poller stays the only reader.
func (m *monitorModel) record(pt action.PoseType) {
	if m.last == nil {
		m.addLog("No position yet, %s not recorded", pt)
		return
	}
	catalog, err := m.sess.RecordPose(m.action, pt, m.last)
	if err != nil {
		m.addLog("Record %s failed: %v", pt, err)
		return
	}
	missing := catalog[m.action].Missing()
	if len(missing) == 0 {
		m.addLog("Recorded %s; %s is complete", pt, m.action)
	} else {
		m.addLog("Recorded %s; still missing %s", pt, joinTypes(missing))
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Monitor stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("armctl monitor"))
	sb.WriteString(fmt.Sprintf(" - recording into %q", m.action))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend(m.ids))
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4)

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("h: hover  p: pre-grasp  g: grasp  o: post-grasp  q: quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend(ids []int) string {
	var items []string
	for _, id := range ids {
		name := robot.MotorForID(id)
		color, ok := motorColors[name]
		if !ok {
			color = "250"
		}
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
		item := colorStyle.Render("━━") + " " + string(name)
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

func (c *MonitorCommand) Execute(args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	ctx := context.Background()

	sess, err := a.openSession(ctx, false)
	if err != nil {
		return err
	}
	defer a.closeSession(context.Background(), sess)

	// Passive mode: the arm is posed by hand.
	if err := sess.Release(ctx); err != nil {
		return fmt.Errorf("disable torque: %w", err)
	}

	streamCtx, stopStream := context.WithCancel(ctx)
	states := sess.Stream(streamCtx, c.Hz)
	p := tea.NewProgram(newMonitorModel(sess, states, c.Action), tea.WithAltScreen())
	_, err = p.Run()

	// Wait for the poller to exit before the deferred close shuts the bus.
	stopStream()
	for range states {
	}

	if err != nil {
		return fmt.Errorf("run monitor: %w", err)
	}
	return nil
}
