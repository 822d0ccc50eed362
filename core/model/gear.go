package model

// Gear is the driving mode selected by the client.
type Gear int

const (
	GearNeutral Gear = iota
	GearReverse
	GearCoast
	GearDrive
)

// GearFromCode maps a wire gear code onto a Gear. Codes 0 to 2 select
// neutral, reverse and coast; every other value selects drive.
func GearFromCode(code int) Gear {
	switch code {
	case 0:
		return GearNeutral
	case 1:
		return GearReverse
	case 2:
		return GearCoast
	default:
		return GearDrive
	}
}

// String returns a human-readable representation of the gear.
func (g Gear) String() string {
	switch g {
	case GearNeutral:
		return "neutral"
	case GearReverse:
		return "reverse"
	case GearCoast:
		return "coast"
	case GearDrive:
		return "drive"
	default:
		return "unknown"
	}
}

// Driving reports whether the pedal controls the throttle in this gear.
func (g Gear) Driving() bool {
	return g == GearReverse || g == GearDrive
}
