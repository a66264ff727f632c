package components

import "github.com/Veraticus/local-guide/internal/model"

// StatsUpdatedMsg carries fresh session counters to the stats panel.
type StatsUpdatedMsg struct {
	Stats model.Stats
}
