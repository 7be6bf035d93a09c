package device

// Reading is a decoded sensor value. The concrete type depends on the
// device type and mode that produced it.
type Reading interface {
	reading()
}

// Tilt is an inclination reading. Z is zero on two-axis sensors.
type Tilt struct{ X, Y, Z int }

// Distance is in millimeters.
type Distance struct{ Millimeters int }

// ColorReading is a detected color.
type ColorReading struct{ Color Color }

// ColorAndDistance is the color-distance sensor's combined mode.
type ColorAndDistance struct {
	Color       Color
	Millimeters int
}

// Rotation is the cumulative encoder position in degrees.
type Rotation struct{ Degrees int32 }

// Absolute is the motor's absolute position in [-180, 180).
type Absolute struct{ Angle int }

// Accel is acceleration in milli-g.
type Accel struct{ X, Y, Z int }

// Gyro is angular rate in degrees per second.
type Gyro struct{ X, Y, Z int }

// Voltage is in volts.
type Voltage struct{ Volts float64 }

// Current is in milliamps.
type Current struct{ MilliAmps float64 }

// Button is a button event.
type Button struct{ State ButtonState }

// Temperature is in degrees Celsius.
type Temperature struct{ Celsius float64 }

// Speed is the Duplo train base speedometer value.
type Speed struct{ Value int }

// Percent covers reflected and ambient light levels.
type Percent struct{ Value int }

// RGB is a raw red/green/blue intensity triple.
type RGB struct{ R, G, B int }

// Count covers the color-distance counter and the impact counter.
type Count struct{ Value uint32 }

// Force is in newtons.
type Force struct{ Newtons float64 }

// Touch reports whether the force sensor is pressed.
type Touch struct{ Touched bool }

// Tap is the force sensor tap count.
type Tap struct{ Taps int }

// Gesture is a gesture code.
type Gesture struct{ Code int }

// RSSI is signal strength in dBm.
type RSSI struct{ DBm int }

// Barcode is a Mario barcode scan; Barcode or Color is -1 when absent.
type Barcode struct{ Barcode, Color int }

// Pants is the Mario pants code.
type Pants struct{ Code int }

func (Tilt) reading()             {}
func (Distance) reading()         {}
func (ColorReading) reading()     {}
func (ColorAndDistance) reading() {}
func (Rotation) reading()         {}
func (Absolute) reading()         {}
func (Accel) reading()            {}
func (Gyro) reading()             {}
func (Voltage) reading()          {}
func (Current) reading()          {}
func (Button) reading()           {}
func (Temperature) reading()      {}
func (Speed) reading()            {}
func (Percent) reading()          {}
func (RGB) reading()              {}
func (Count) reading()            {}
func (Force) reading()            {}
func (Touch) reading()            {}
func (Tap) reading()              {}
func (Gesture) reading()          {}
func (RSSI) reading()             {}
func (Barcode) reading()          {}
func (Pants) reading()            {}
