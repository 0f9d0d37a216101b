package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Demo      DemoCommand      `command:"demo" description:"Run the built-in presets in sequence"`
	Dashboard DashboardCommand `command:"dashboard" alias:"ui" description:"Drive a simulated arm from the terminal"`
	Presets   PresetsCommand   `command:"presets" description:"List presets or write them to a file"`
	Scan      ScanCommand      `command:"scan" description:"Ping the arm's servos on USB serial ports"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "robot-arm - reactive arm state model for 6-joint arms with a gripper"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
