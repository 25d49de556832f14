package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AaronLay10/Hellevator/internal/scene"
)

// CommandPayload is a v1 operator command message.
//
//	{"version": 1, "op": "install", "start": 1, "end": 4, "shaft": 0}
type CommandPayload struct {
	Version int    `json:"version"`
	Op      string `json:"op"`
	Start   *int   `json:"start"`
	End     *int   `json:"end"`
	Shaft   *int   `json:"shaft"`
	Reverse bool   `json:"reverse"`
	Source  string `json:"source"`
}

// ParseCommand parses and validates an operator command from JSON bytes.
func ParseCommand(data []byte) (scene.Command, error) {
	var p CommandPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return scene.Command{}, fmt.Errorf("invalid command JSON: %w", err)
	}

	if p.Version != 1 {
		return scene.Command{}, fmt.Errorf("unsupported command version: %d", p.Version)
	}

	var missing []string
	for _, f := range []struct {
		name string
		v    *int
	}{{"start", p.Start}, {"end", p.End}, {"shaft", p.Shaft}} {
		if f.v == nil {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return scene.Command{}, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}

	op := scene.Op(strings.ToLower(p.Op))
	switch op {
	case scene.OpInstall, scene.OpRemove:
	default:
		return scene.Command{}, fmt.Errorf("unknown op %q", p.Op)
	}

	if *p.Start == *p.End {
		return scene.Command{}, fmt.Errorf("start and end level are both %d", *p.Start)
	}

	source := p.Source
	if source == "" {
		source = "mqtt"
	}
	return scene.Command{
		Op:      op,
		Start:   *p.Start,
		End:     *p.End,
		Shaft:   *p.Shaft,
		Reverse: p.Reverse,
		Source:  source,
	}, nil
}
