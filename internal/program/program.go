// Package program holds the compiled-in student programs the sandbox can run.
package program

import (
	"fmt"
	"strings"
)

// Scenario selects a console backend and the program that drives it.
type Scenario string

const (
	ScenarioText   Scenario = "text"
	ScenarioTurtle Scenario = "turtle"
)

// Scenarios lists every scenario in menu order.
func Scenarios() []Scenario {
	return []Scenario{ScenarioText, ScenarioTurtle}
}

// Description is the one-line summary shown in the scenario picker.
func (s Scenario) Description() string {
	switch s {
	case ScenarioText:
		return "Text console: a greeter that asks for your name"
	case ScenarioTurtle:
		return "Turtle graphics: two looping arcs"
	default:
		return "unknown scenario"
	}
}

// ProgramName is the name recorded in telemetry for the scenario's program.
func (s Scenario) ProgramName() string {
	switch s {
	case ScenarioText:
		return "greeter"
	case ScenarioTurtle:
		return "loops"
	default:
		return ""
	}
}

// ParseScenario validates a scenario name.
func ParseScenario(value string) (Scenario, error) {
	normalized := Scenario(strings.ToLower(strings.TrimSpace(value)))
	for _, scenario := range Scenarios() {
		if scenario == normalized {
			return scenario, nil
		}
	}
	return "", fmt.Errorf("unknown scenario %q (want text or turtle)", value)
}
