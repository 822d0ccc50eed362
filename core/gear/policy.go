// Package gear holds the gear policy: how a gear selection resets or
// redirects a vehicle, and the machine tracking the process-wide gear.
package gear

import "github.com/kilianp07/rcbase/core/model"

// Apply applies the effect of gear g to v.
//
//	neutral: steering, throttle and reverse are reset
//	reverse: reverse is set
//	coast:   throttle is reset
//	drive:   reverse is cleared
func Apply(v *model.Vehicle, g model.Gear) {
	switch g {
	case model.GearNeutral:
		v.SetSteering(0)
		v.SetThrottle(0)
		v.SetReverse(false)
	case model.GearReverse:
		v.SetReverse(true)
	case model.GearCoast:
		v.SetThrottle(0)
	default:
		v.SetReverse(false)
	}
}
