package clock

// Phase is a coarse trading period of the day.
type Phase uint8

const (
	PhaseOpening     Phase = iota // 6-9: prepare, buy stock
	PhaseMorningRush              // 9-12: first customer wave
	PhaseLunch                    // 12-14: peak demand
	PhaseAfternoon                // 14-17: slow, good for restocking
	PhaseEveningRush              // 17-20: second wave
	PhaseClosing                  // 20-22: final sales
	PhaseNight                    // 22-6: shop closed
)

var phaseNames = [...]string{
	PhaseOpening:     "Opening",
	PhaseMorningRush: "MorningRush",
	PhaseLunch:       "Lunch",
	PhaseAfternoon:   "Afternoon",
	PhaseEveningRush: "EveningRush",
	PhaseClosing:     "Closing",
	PhaseNight:       "Night",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "Unknown"
}

// MarshalText renders the phase by name for JSON/YAML consumers.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Open reports whether customers can visit during this phase.
func (p Phase) Open() bool {
	return p != PhaseNight
}

// PhaseAt classifies an hour of day using half-open intervals.
func PhaseAt(hour float64) Phase {
	switch {
	case hour >= 6 && hour < 9:
		return PhaseOpening
	case hour >= 9 && hour < 12:
		return PhaseMorningRush
	case hour >= 12 && hour < 14:
		return PhaseLunch
	case hour >= 14 && hour < 17:
		return PhaseAfternoon
	case hour >= 17 && hour < 20:
		return PhaseEveningRush
	case hour >= 20 && hour < 22:
		return PhaseClosing
	default:
		return PhaseNight
	}
}
