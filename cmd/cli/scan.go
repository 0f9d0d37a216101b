package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	robotarm "robot_arm"
)

type ScanCommand struct {
	Port      string `short:"p" long:"port" description:"Serial port to scan (default: every USB serial port)"`
	Baudrate  int    `long:"baudrate" default:"1000000" description:"Bus baud rate"`
	TimeoutMs int    `long:"timeout-ms" default:"100" description:"Per-servo ping timeout in milliseconds"`
}

func (c *ScanCommand) Execute(args []string) error {
	ports := robotarm.CandidatePorts()
	if c.Port != "" {
		ports = []string{c.Port}
	}
	if len(ports) == 0 {
		fmt.Println(warnStyle.Render("No USB serial ports found"))
		return nil
	}

	timeout := time.Duration(c.TimeoutMs) * time.Millisecond
	for _, port := range ports {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		ids, err := robotarm.ScanServos(ctx, port, c.Baudrate, timeout)
		cancel()

		fmt.Println(headerStyle.Render(port))
		if err != nil {
			fmt.Println(warnStyle.Render("  scan failed: " + err.Error()))
			continue
		}
		fmt.Println(renderScanTable(ids))
	}
	return nil
}

func renderScanTable(found []int) string {
	present := make(map[int]bool, len(found))
	for _, id := range found {
		present[id] = true
	}

	ids := robotarm.DefaultServoIDs()
	missing := 0
	rows := make([][]string, 0, len(ids))
	for i, id := range ids {
		role := "gripper"
		if i < robotarm.JointCount {
			role = robotarm.JointNames[i]
		}
		status := "ok"
		if !present[id] {
			status = "missing"
			missing++
		}
		rows = append(rows, []string{strconv.Itoa(id), role, status})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "Role", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 2 && row >= 0 && row < len(rows) {
				if rows[row][2] == "ok" {
					return successStyle.Padding(0, 1)
				}
				return warnStyle.Padding(0, 1)
			}
			return tableCellStyle
		}).
		Render()

	if missing == 0 {
		return t + "\n" + successStyle.Render("✓ complete arm")
	}
	return t + "\n" + dimStyle.Render(fmt.Sprintf("%d of %d servos missing", missing, len(ids)))
}
