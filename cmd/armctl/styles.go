package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/armctl/pkg/action"
	"github.com/gwillem/armctl/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableMotorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	tableMissing     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...)
}

// renderPose shows one row per servo with ticks and degrees.
func renderPose(ids []int, pose action.Pose) string {
	degrees := robot.PoseDegrees(pose)
	rows := make([][]string, 0, len(ids))
	for i, id := range ids {
		if i >= len(pose) {
			break
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", id),
			string(robot.MotorForID(id)),
			fmt.Sprintf("%d", pose[i]),
			fmt.Sprintf("%.2f", degrees[i]),
		})
	}

	return newTable("ID", "Motor", "Ticks", "Degrees").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 1 {
				return tableMotorStyle
			}
			return tableCellStyle
		}).
		Render()
}

// renderAction shows one column per pose type and one row per servo.
func renderAction(ids []int, a action.Action) string {
	headers := []string{"ID", "Motor"}
	for _, t := range action.Sequence() {
		headers = append(headers, t.String())
	}

	rows := make([][]string, 0, len(ids))
	for i, id := range ids {
		row := []string{fmt.Sprintf("%d", id), string(robot.MotorForID(id))}
		for _, t := range action.Sequence() {
			pose, ok := a.Pose(t)
			if !ok || i >= len(pose) {
				row = append(row, "-")
				continue
			}
			row = append(row, fmt.Sprintf("%d", pose[i]))
		}
		rows = append(rows, row)
	}

	return newTable(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 1:
				return tableMotorStyle
			case col >= 2:
				if _, ok := a.Pose(action.Sequence()[col-2]); !ok {
					return tableMissing
				}
			}
			return tableCellStyle
		}).
		Render()
}

func joinTypes(types []action.PoseType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}

// renderCatalog lists every action with its recorded stages.
func renderCatalog(c action.Catalog) string {
	rows := make([][]string, 0, len(c))
	for _, name := range c.Names() {
		a := c[name]
		status := successStyle.Render("complete")
		if missing := a.Missing(); len(missing) > 0 {
			status = errorStyle.Render("missing " + joinTypes(missing))
		}
		rows = append(rows, []string{name, fmt.Sprintf("%d/4", 4-len(a.Missing())), status})
	}

	return newTable("Action", "Poses", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Render()
}
