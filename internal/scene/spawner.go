package scene

import "time"

// Spawner decides when a new agent arrives. The first agent arrives one
// full interval after the scene starts.
type Spawner struct {
	Interval time.Duration
	// MaxAgents caps the live population; 0 means no cap.
	MaxAgents int

	elapsed time.Duration
}

// Due advances the spawn timer by dt and reports whether an agent should
// be spawned now. A spawn skipped because of the cap is not carried over.
func (sp *Spawner) Due(dt time.Duration, live int) bool {
	if sp.Interval <= 0 {
		return false
	}
	sp.elapsed += dt
	if sp.elapsed < sp.Interval {
		return false
	}
	sp.elapsed = 0
	return sp.MaxAgents == 0 || live < sp.MaxAgents
}
