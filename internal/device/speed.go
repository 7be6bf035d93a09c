package device

// BrakeSentinel is the power value that commands a hard brake.
const BrakeSentinel = 127

// MapSpeed clamps a speed or power value to [-100, 100], passing the brake
// sentinel through untouched.
func MapSpeed(speed int) int {
	if speed == BrakeSentinel {
		return BrakeSentinel
	}
	if speed > 100 {
		return 100
	}
	if speed < -100 {
		return -100
	}
	return speed
}

// speedByte encodes a mapped speed as the signed byte the hub expects.
func speedByte(speed int) byte {
	return byte(int8(MapSpeed(speed)))
}

// NormalizeAngle folds angle into [-180, 180).
func NormalizeAngle(angle int) int {
	a := ((angle+180)%360 + 360) % 360
	return a - 180
}

// RoundAngleToNearest90 snaps a normalized angle to the closest quarter turn.
func RoundAngleToNearest90(angle int) int {
	angle = NormalizeAngle(angle)
	switch {
	case angle < -135:
		return -180
	case angle < -45:
		return -90
	case angle < 45:
		return 0
	case angle < 135:
		return 90
	default:
		return -180
	}
}

// MotorProfile carries the tacho motor settings embedded in positioned and
// timed commands.
type MotorProfile struct {
	MaxPower     int
	Braking      BrakingStyle
	Acceleration bool // use the motor's acceleration profile
	Deceleration bool // use the motor's deceleration profile
}

// DefaultMotorProfile is full power, hard brake, no ramp profiles.
func DefaultMotorProfile() MotorProfile {
	return MotorProfile{MaxPower: 100, Braking: BrakeBrake}
}

func (p MotorProfile) useProfile() byte {
	var b byte
	if p.Acceleration {
		b |= 0x01
	}
	if p.Deceleration {
		b |= 0x02
	}
	return b
}

func (p MotorProfile) maxPower() byte {
	if p.MaxPower <= 0 || p.MaxPower > 100 {
		return 100
	}
	return byte(p.MaxPower)
}
