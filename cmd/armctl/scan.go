package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/armctl/pkg/robot"
)

type ScanCommand struct {
	MaxID    int `long:"max-id" default:"6" description:"Highest servo ID to probe"`
	BaudRate int `long:"baud" default:"1000000" description:"Bus baud rate"`
}

// armInfo is a serial port with at least one responding servo. The bus is
// left open for the caller.
type armInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func (a armInfo) ids() []int {
	ids := make([]int, len(a.servos))
	for i, s := range a.servos {
		ids[i] = s.ID
	}
	sort.Ints(ids)
	return ids
}

func findArms(baud, maxID int) ([]armInfo, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}

	var arms []armInfo
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)

		bus, err := feetech.NewBus(feetech.BusConfig{
			Port:     port,
			BaudRate: baud,
			Protocol: feetech.ProtocolSTS,
			Timeout:  100 * time.Millisecond,
		})
		if err != nil {
			cancel()
			continue
		}

		servos, err := bus.Scan(ctx, 1, maxID)
		cancel()
		if err != nil || len(servos) == 0 {
			bus.Close()
			continue
		}
		arms = append(arms, armInfo{port: port, servos: servos, bus: bus})
	}
	return arms, nil
}

func closeArms(arms []armInfo) {
	for _, a := range arms {
		a.bus.Close()
	}
}

func (c *ScanCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Scanning serial ports..."))
	fmt.Println()

	arms, err := findArms(c.BaudRate, c.MaxID)
	if err != nil {
		return err
	}
	defer closeArms(arms)

	if len(arms) == 0 {
		fmt.Println("No servos found.")
		fmt.Println("Make sure the arm is connected and powered on.")
		return nil
	}

	var rows [][]string
	for _, arm := range arms {
		servos := append([]feetech.FoundServo(nil), arm.servos...)
		sort.Slice(servos, func(i, j int) bool { return servos[i].ID < servos[j].ID })
		for _, s := range servos {
			rows = append(rows, []string{
				arm.port,
				fmt.Sprintf("%d", s.ID),
				fmt.Sprintf("%v", s.Model),
				string(robot.MotorForID(s.ID)),
			})
		}
	}

	t := newTable("Port", "ID", "Model", "Motor").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 3 {
				return tableMotorStyle
			}
			return tableCellStyle
		})
	fmt.Println(t.Render())
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d port(s) with servos", len(arms))))
	return nil
}
