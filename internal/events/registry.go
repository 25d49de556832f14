package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// agent
	"agent.spawned":    {},
	"agent.arrived":    {},
	"agent.fell":       {},
	"agent.path_stale": {},

	// elevator
	"elevator.installed":   {},
	"elevator.arrived":     {},
	"elevator.door_opened": {},
	"elevator.door_closed": {},
	"elevator.departed":    {},
	"elevator.removed":     {},
	"elevator.destroyed":   {},

	// operator
	"operator.install":  {},
	"operator.remove":   {},
	"operator.rejected": {},

	// scene
	"scene.started": {},
	"scene.stopped": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
