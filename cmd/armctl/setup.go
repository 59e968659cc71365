package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/armctl/pkg/action"
	"github.com/gwillem/armctl/pkg/robot"
)

type SetupCommand struct {
	MaxID int `long:"max-id" default:"6" description:"Highest servo ID to probe"`
}

func (c *SetupCommand) Execute(args []string) error {
	env, _, err := loadEnv()
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render("armctl setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━"))
	fmt.Println()

	// Step 1: Find the arm
	armCfg, err := selectArm(c.MaxID)
	if err != nil {
		return err
	}

	arm, err := robot.NewArm(armCfg)
	if err != nil {
		return fmt.Errorf("connect to arm on %s: %w", armCfg.Port, err)
	}
	defer arm.Close()

	// Disable all servos so user can move arm freely
	ctx := context.Background()
	if err := arm.Disable(ctx); err != nil {
		return fmt.Errorf("disable torque: %w", err)
	}

	// Step 2: Record range of motion
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Record range of motion ━━━"))
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println("Explore the full range of motion for all joints.")
	fmt.Println()

	start, err := arm.ReadPositions(ctx)
	if err != nil {
		return err
	}
	p := tea.NewProgram(newCalibrationModel(arm, armCfg.ServoIDs, start))
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("run calibration: %w", err)
	}
	cm := finalModel.(calibrationModel)
	if cm.aborted {
		return errors.New("setup aborted; nothing saved")
	}
	limits := cm.limits

	// Step 3: Home and rest poses
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Record home and rest poses ━━━"))
	fmt.Println()
	if armCfg.HomePose, err = capturePose(ctx, arm, "Move the arm to its home pose, where every action starts."); err != nil {
		return err
	}
	if armCfg.RestPose, err = capturePose(ctx, arm, "Move the arm to its rest pose, where it is parked before torque is released."); err != nil {
		return err
	}

	// Home and rest are read after the range step and may sit a tick outside it.
	limits.Widen(armCfg.HomePose)
	limits.Widen(armCfg.RestPose)
	armCfg.SetLimits(limits)

	cfg := &robot.Config{Arm: armCfg}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(env.ConfigFile); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", env.ConfigFile)
	fmt.Println()
	fmt.Println("Record an action with: " + headerStyle.Render("armctl shell"))
	return nil
}

// selectArm scans for servos and asks which port to use when more than one
// answers. The wiggle lets the user tell arms apart.
func selectArm(maxID int) (robot.ArmConfig, error) {
	fmt.Println("Scanning for robot arms...")

	arms, err := findArms(robot.DefaultBaudRate, maxID)
	if err != nil {
		return robot.ArmConfig{}, err
	}
	defer closeArms(arms)

	if len(arms) == 0 {
		return robot.ArmConfig{}, errors.New("no servos found; make sure the arm is connected and powered on")
	}

	for _, arm := range arms {
		fmt.Printf("  Found %d servo(s) on %s\n", len(arm.servos), arm.port)
	}
	if len(arms) == 1 {
		return robot.ArmConfig{Port: arms[0].port, ServoIDs: arms[0].ids()}, nil
	}

	fmt.Printf("\nFound %d arms. Let's identify them...\n", len(arms))
	for _, arm := range arms {
		wiggle(arm)

		var use bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Use the arm on %s?", arm.port)).
					Description("The arm that just wiggled").
					Value(&use),
			),
		)
		if err := form.Run(); err != nil {
			return robot.ArmConfig{}, err
		}
		if use {
			return robot.ArmConfig{Port: arm.port, ServoIDs: arm.ids()}, nil
		}
	}
	return robot.ArmConfig{}, errors.New("no arm selected")
}

// wiggle moves the lowest servo ID a little and back.
func wiggle(arm armInfo) {
	ctx := context.Background()

	ids := arm.ids()
	var servo *feetech.Servo
	for _, s := range arm.servos {
		if s.ID == ids[0] {
			servo = feetech.NewServo(arm.bus, s.ID, s.Model)
			break
		}
	}

	// Read current position
	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return
	}

	// Enable torque for wiggle
	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return
	}
	defer servo.Disable(ctx)

	fmt.Printf("\n  Wiggling arm on %s...\n", arm.port)

	// Wiggle: single gentle, slow movement
	wiggleAmount := 30
	moveTimeMs := 500
	for _, pos := range []int{originalPos + wiggleAmount, originalPos - wiggleAmount, originalPos} {
		servo.SetPositionWithTime(ctx, pos, moveTimeMs)
		time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	}
}

func capturePose(ctx context.Context, arm *robot.Arm, prompt string) (action.Pose, error) {
	fmt.Println(prompt)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("").
				Affirmative("Record").
				Negative("").
				Value(new(bool)),
		),
	)
	if err := form.Run(); err != nil {
		return nil, err
	}

	pose, err := arm.ReadPositions(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Println(renderPose(arm.Limits().IDs(), pose))
	return pose, nil
}

// minJointRange is the smallest range, in ticks, accepted for a joint.
const minJointRange = 50

// Calibration TUI model. Enter is ignored until every joint has been moved
// through at least minJointRange.
type calibrationModel struct {
	arm          *robot.Arm
	limits       robot.Limits
	curPositions []int
	quitting     bool
	aborted      bool
}

type tickMsg time.Time

func newCalibrationModel(arm *robot.Arm, ids []int, start action.Pose) calibrationModel {
	return calibrationModel{
		arm:          arm,
		limits:       robot.LimitsAt(ids, start),
		curPositions: start.Clone(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) ready() bool {
	return len(m.limits.Unmoved(minJointRange)) == 0
}

// observe folds a position reading into the tracked ranges.
func (m calibrationModel) observe(pose action.Pose) {
	copy(m.curPositions, pose)
	m.limits.Widen(pose)
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if !m.ready() {
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		case "q", "ctrl+c":
			m.quitting = true
			m.aborted = true
			return m, tea.Quit
		}

	case tickMsg:
		pose, err := m.arm.ReadPositions(context.Background())
		if err == nil {
			m.observe(pose)
		}
		return m, tick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.limits))
	for i, l := range m.limits {
		rows = append(rows, []string{
			string(robot.MotorForID(l.ID)),
			fmt.Sprintf("%d", m.curPositions[i]),
			fmt.Sprintf("%d", l.Min),
			fmt.Sprintf("%d", l.Max),
			fmt.Sprintf("%d", l.Span()),
		})
	}

	t := newTable("Motor", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableMotorStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(m.limits) && m.limits[row].Span() > 500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	if unmoved := m.limits.Unmoved(minJointRange); len(unmoved) > 0 {
		names := make([]string, len(unmoved))
		for i, id := range unmoved {
			names[i] = string(robot.MotorForID(id))
		}
		sb.WriteString(errorStyle.Render("Not moved yet: " + strings.Join(names, ", ")))
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render("Move every joint before pressing Enter, q to abort"))
	} else {
		sb.WriteString(dimStyle.Render("Press Enter when done"))
	}

	return sb.String()
}
