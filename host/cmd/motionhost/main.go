// Command motionhost is a software-only host for the motion core: it reads
// a standalone/config JSON machine description, wires kinematics, planner,
// DDA engine, canonical machine, safety manager, settings registry and
// status reporter together exactly as firmware would, and drives them from
// an interactive console instead of real step/dir hardware. It sits beside
// gopper-host (which talks Klipper's binary protocol to a real MCU) as the
// pure-software counterpart for exercising G-code against the planner and
// kinematics without a board attached.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/shlex"

	"motioncore/canonical"
	"motioncore/core"
	"motioncore/dda"
	"motioncore/gcode"
	"motioncore/kinematics"
	"motioncore/motion"
	"motioncore/safety"
	"motioncore/settings"
	"motioncore/standalone"
	"motioncore/standalone/config"
	"motioncore/status"
)

var configPath = flag.String("config", "", "path to a machine config JSON file (defaults built in if omitted)")

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	kin, axisOrder := buildKinematics(cfg)
	engine := buildEngine(axisOrder)

	canonical.AxisEnvelope = canonical.FeedAccelJerk{
		MaxFeed: cfg.DefaultVelocity * 60,
		Accel:   cfg.DefaultAccel * 3600,
		Jerk:    cfg.DefaultAccel * 10,
	}

	machine := canonical.New(kin, cfg.JunctionDeviation)
	coord := motion.NewCoordinator(machine.Active().Planner, kin, engine)
	mgr := safety.NewManager()
	machine.AttachSafety(mgr)

	reg := settings.NewRegistry()
	if err := settings.RegisterMotionEnvelope(reg); err != nil {
		fmt.Fprintf(os.Stderr, "settings: %v\n", err)
		os.Exit(1)
	}

	reporter := status.NewReporter(statusFields(machine, coord), status.Filtered, 250)
	reporter.Sinks = []status.Sink{&status.SerialSink{Write: func(s string) { fmt.Println(s) }}}
	machine.SetFinalStatusReportHook(reporter.ForceNext)

	fmt.Println("motionhost - software motion core console")
	fmt.Println("type G-code directly, or a console command (set/get/quit)")

	runLoop(machine, coord, reporter, reg)
}

func loadConfig(path string) (*standalone.MachineConfig, error) {
	if path == "" {
		return config.DefaultCartesianConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(data)
}

// axisNameToIndex fixes the config's named axes to canonical axis slots: x/y/z
// map onto AxisX/AxisY/AxisZ directly, e maps onto AxisA since the core has
// no dedicated extruder slot.
var axisNameToIndex = map[string]int{
	"x": kinematics.AxisX, "y": kinematics.AxisY, "z": kinematics.AxisZ, "e": kinematics.AxisA,
}

func buildKinematics(cfg *standalone.MachineConfig) (kinematics.Kinematics, []string) {
	names := []string{"x", "y", "z", "e"}
	var axes []int
	var stepsPerUnit []float64
	for _, n := range names {
		ax, ok := cfg.Axes[n]
		if !ok {
			continue
		}
		axes = append(axes, axisNameToIndex[n])
		stepsPerUnit = append(stepsPerUnit, ax.StepsPerMM)
	}

	if cfg.Kinematics == "corexy" && len(axes) >= 2 {
		extra := axes[2:]
		extraSPU := stepsPerUnit[2:]
		return kinematics.NewCoreXY(axes[0], axes[1], stepsPerUnit[0], stepsPerUnit[1], extra, extraSPU), names
	}
	return kinematics.NewCartesian(axes, stepsPerUnit), names[:len(axes)]
}

// logBackend drives no real hardware; it just counts pulses per motor so
// the console can report an approximate step count alongside position.
type logBackend struct {
	name  string
	steps int
	dir   bool
}

func (l *logBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error { return nil }
func (l *logBackend) Step()                                                       { l.steps++ }
func (l *logBackend) SetDirection(dir bool)                                       { l.dir = dir }
func (l *logBackend) Stop()                                                       {}
func (l *logBackend) GetName() string                                             { return l.name }

func buildEngine(axisOrder []string) *dda.Engine {
	motors := make([]*dda.MotorChannel, len(axisOrder))
	for i, name := range axisOrder {
		motors[i] = &dda.MotorChannel{OID: uint8(i), Backend: &logBackend{name: name}}
	}
	return dda.NewEngine(motors)
}

func statusFields(m *canonical.Machine, coord *motion.Coordinator) []status.Field {
	return []status.Field{
		{Token: "stat", Get: func() float64 { return float64(m.MachineState) }},
		{Token: "posx", Get: func() float64 { return m.Active().Position[kinematics.AxisX] }},
		{Token: "posy", Get: func() float64 { return m.Active().Position[kinematics.AxisY] }},
		{Token: "posz", Get: func() float64 { return m.Active().Position[kinematics.AxisZ] }},
		{Token: "qcmd", Get: func() float64 { return boolFloat(m.Active().Planner.HasPendingCommand()) }},
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// runLoop pumps core's software timer scheduler against wall-clock time
// (the host build of core/timer_go.go carries no hardware clock of its
// own) while reading console input line by line.
func runLoop(machine *canonical.Machine, coord *motion.Coordinator, reporter *status.Reporter, reg *settings.Registry) {
	reporter.Start()
	parser := gcode.NewParser()
	scanner := bufio.NewScanner(os.Stdin)

	last := time.Now()
	inputDone := make(chan struct{})
	lines := make(chan string)
	go func() {
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(inputDone)
	}()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-inputDone:
			return
		case line := <-lines:
			if handleConsoleLine(line, machine, parser, reg) {
				return
			}
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			core.SetTime(core.GetTime() + core.TimerFromUS(uint32(elapsed.Microseconds())))
			core.ProcessTimers()
			if !coord.Idle() {
				coord.RequestExecMove(core.GetTime())
			}
		}
	}
}

// handleConsoleLine dispatches either a console command (set/get/quit/
// exit) or, failing that, parses the line as G-code. There is no status
// command; status lines come only from the periodic reporter. Returns true
// when the session should exit.
func handleConsoleLine(line string, machine *canonical.Machine, parser *gcode.Parser, reg *settings.Registry) bool {
	fields, err := shlex.Split(line)
	if err != nil || len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "quit", "exit":
		return true
	case "set":
		if len(fields) != 3 {
			fmt.Println("usage: set <token> <value>")
			return false
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			fmt.Printf("bad value %q: %v\n", fields[2], err)
			return false
		}
		if err := reg.Set(fields[1], v); err != nil {
			fmt.Println(err)
		}
		return false
	case "get":
		if len(fields) != 2 {
			fmt.Println("usage: get <token>")
			return false
		}
		s, err := reg.Format(fields[1])
		if err != nil {
			fmt.Println(err)
			return false
		}
		fmt.Println(s)
		return false
	}

	cmd, err := parser.ParseLine(line)
	if err == gcode.ErrBlankLine {
		return false
	}
	if err != nil {
		fmt.Printf("parse error: %v\n", err)
		return false
	}
	if err := machine.Execute(cmd); err != nil {
		fmt.Printf("error: %v\n", err)
	}
	return false
}
