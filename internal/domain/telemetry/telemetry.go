// Package telemetry defines how much detail a telemetry report carries.
package telemetry

// DetailsLevel grows the amount of reported detail. Level0 is the least.
type DetailsLevel uint8

// Levels.
const (
	Level0 DetailsLevel = iota
	Level1
	Level2
	Level3
	Level4
)

// LevelFromInt converts n to a level, clamping below Level0 and above Level4.
func LevelFromInt(n int) DetailsLevel {
	switch {
	case n <= 0:
		return Level0
	case n >= int(Level4):
		return Level4
	default:
		return DetailsLevel(n)
	}
}

// Detail selects the telemetry report content. The zero value is the default:
// Level0 without histograms.
type Detail struct {
	Level      DetailsLevel
	Histograms bool
}

// Default returns the default detail.
func Default() Detail { return Detail{} }
