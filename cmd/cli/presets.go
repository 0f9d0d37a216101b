package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	robotarm "robot_arm"
)

var (
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

type PresetsCommand struct {
	File string `long:"file" description:"Presets file to merge over the built-in presets"`
	Out  string `long:"out" description:"Write the merged presets to this file"`
}

func (c *PresetsCommand) Execute(args []string) error {
	presets := robotarm.DefaultPresets()
	if c.File != "" {
		extra, err := robotarm.LoadPresetsFile(c.File, robotarm.DefaultJointLimits())
		if err != nil {
			return err
		}
		for name, p := range extra {
			presets[name] = p
		}
	}

	fmt.Println(headerStyle.Render("Presets"))
	fmt.Println(renderPresetTable(presets))

	if c.Out != "" {
		if err := robotarm.SavePresetsFile(c.Out, presets); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("✓ wrote " + c.Out))
	}
	return nil
}

func renderPresetTable(presets map[string]robotarm.Configuration) string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)

	detector := robotarm.NewCollisionDetector(nil)
	collisions := make([]bool, len(names))
	rows := make([][]string, 0, len(names))
	for i, name := range names {
		p := presets[name]
		pos := robotarm.ForwardKinematics(p.Joints)
		collision, _, _ := detector.Evaluate(p.Joints, pos)
		collisions[i] = collision

		row := []string{name}
		for _, a := range p.Joints {
			row = append(row, strconv.Itoa(a))
		}
		row = append(row,
			strconv.Itoa(p.Gripper),
			fmt.Sprintf("%.3f, %.3f, %.3f", pos.X, pos.Y, pos.Z),
			strconv.FormatBool(collision),
		)
		rows = append(rows, row)
	}

	headers := append([]string{"Preset"}, robotarm.JointNames[:]...)
	headers = append(headers, "Gripper", "End effector (m)", "Collision")

	collisionCol := len(headers) - 1
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == collisionCol && row >= 0 && row < len(collisions) && collisions[row] {
				return warnStyle.Padding(0, 1)
			}
			return tableCellStyle
		}).
		Render()
}
