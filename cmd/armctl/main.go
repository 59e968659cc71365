package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Setup   SetupCommand   `command:"setup" description:"Find the arm, record its limits and write the config"`
	Scan    ScanCommand    `command:"scan" description:"List serial ports and the servos found on them"`
	List    ListCommand    `command:"list" alias:"ls" description:"List recorded actions"`
	Show    ShowCommand    `command:"show" description:"Show the poses of an action"`
	Record  RecordCommand  `command:"record" description:"Record the arm's current pose into an action"`
	Run     RunCommand     `command:"run" description:"Play an action on the arm"`
	Jog     JogCommand     `command:"jog" description:"Turn one servo by a number of degrees"`
	Shell   ShellCommand   `command:"shell" description:"Interactive position control and action recording"`
	Monitor MonitorCommand `command:"monitor" description:"Live position chart; pose the arm by hand and record with hotkeys"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "armctl - record and replay grasp actions on Feetech servo arms"

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
