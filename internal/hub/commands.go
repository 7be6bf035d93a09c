package hub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaz8081/hubctl/internal/device"
)

// command is an encoded capability call and how it completes.
type command struct {
	packets  []device.Packet
	feedback bool          // resolved by hub output feedback
	after    time.Duration // resolved by timer; 0 for none
	stop     []device.Packet
}

func immediate(pkts []device.Packet, err error) (command, error) {
	return command{packets: pkts}, err
}

// execute encodes and sends a command on the named port, then waits for it
// to complete. A command still pending on the port resolves with
// ErrInterrupted first. Encoding errors are returned before anything is
// written.
func (h *Hub) execute(ctx context.Context, portName string, build func(*port, *device.Device) (command, error)) error {
	h.mu.Lock()
	p, d, err := h.lookupDevice(portName)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	cmd, err := build(p, d)
	if err != nil {
		h.mu.Unlock()
		return fmt.Errorf("hub: %s: %w", portName, err)
	}
	p.cancelPending(ErrInterrupted)
	if err := h.send(cmd.packets); err != nil {
		h.mu.Unlock()
		return fmt.Errorf("hub: %s: %w", portName, err)
	}
	if !cmd.feedback && cmd.after <= 0 {
		h.mu.Unlock()
		return nil
	}

	c := newCompletion(cmd.feedback)
	p.pending = c
	if cmd.after > 0 {
		c.timer = time.AfterFunc(cmd.after, func() { h.expire(p, c, cmd.stop) })
	}
	h.mu.Unlock()
	return c.wait(ctx)
}

// expire is the timer path of a pending command. It is a no-op when the
// slot was already resolved.
func (h *Hub) expire(p *port, c *completion, stop []device.Packet) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p.pending != c {
		return
	}
	if err := h.send(stop); err != nil {
		slog.Warn("[HUB] timed stop", "port", p.name, "error", err)
	}
	p.cancelPending(nil)
}

// SetPower drives a motor at power percent (-100..100, 127 to brake).
// With a duration the motor is stopped again afterwards and the call
// returns once it has been.
func (h *Hub) SetPower(ctx context.Context, portName string, power int, duration time.Duration) error {
	return h.execute(ctx, portName, func(_ *port, d *device.Device) (command, error) {
		pkts, err := d.EncodePower(power)
		if err != nil || duration <= 0 {
			return command{packets: pkts}, err
		}
		stop, err := d.EncodePower(0)
		return command{packets: pkts, after: duration, stop: stop}, err
	})
}

// SetSpeed drives a motor at speed percent. Tacho motors run regulated and,
// with a duration, stop themselves and report completion; other motors
// fall back to SetPower.
func (h *Hub) SetSpeed(ctx context.Context, portName string, speed int, duration time.Duration) error {
	return h.execute(ctx, portName, func(_ *port, d *device.Device) (command, error) {
		if !d.Type.IsTacho() || d.Dialect != device.DialectLPF2 {
			pkts, err := d.EncodePower(speed)
			if err != nil || duration <= 0 {
				return command{packets: pkts}, err
			}
			stop, err := d.EncodePower(0)
			return command{packets: pkts, after: duration, stop: stop}, err
		}
		pkts, err := d.EncodeSpeed(speed, duration)
		if duration <= 0 {
			return command{packets: pkts}, err
		}
		return command{packets: pkts, feedback: true, after: duration}, err
	})
}

// SetSpeedPair drives both motors of a virtual port.
func (h *Hub) SetSpeedPair(ctx context.Context, portName string, first, second int, duration time.Duration) error {
	return h.execute(ctx, portName, func(p *port, d *device.Device) (command, error) {
		if !p.virtual {
			return command{}, fmt.Errorf("speed pair needs a virtual port: %w", ErrUnsupported)
		}
		pkts, err := d.EncodeSpeedPair(first, second, duration)
		if duration <= 0 {
			return command{packets: pkts}, err
		}
		return command{packets: pkts, feedback: true, after: duration}, err
	})
}

// RampSpeed moves a motor from one speed to another over duration, sending
// an untimed SetSpeed per step. It returns once the target is sent.
func (h *Hub) RampSpeed(ctx context.Context, portName string, from, to int, duration time.Duration) error {
	plan := device.Ramp(device.MapSpeed(from), device.MapSpeed(to), duration)
	if len(plan.Values) == 0 {
		return nil
	}
	ticker := time.NewTicker(plan.Interval)
	defer ticker.Stop()
	for _, v := range plan.Values {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := h.SetSpeed(ctx, portName, v, 0); err != nil {
			return err
		}
	}
	return nil
}

// Stop floats a motor.
func (h *Hub) Stop(ctx context.Context, portName string) error {
	return h.SetPower(ctx, portName, 0, 0)
}

// Brake applies a hard brake.
func (h *Hub) Brake(ctx context.Context, portName string) error {
	return h.SetPower(ctx, portName, device.BrakeSentinel, 0)
}

// RotateByDegrees turns a tacho motor by degrees at speed and returns when
// the hub reports the move finished.
func (h *Hub) RotateByDegrees(ctx context.Context, portName string, degrees, speed int) error {
	return h.execute(ctx, portName, func(_ *port, d *device.Device) (command, error) {
		pkts, err := d.EncodeRotateByDegrees(degrees, speed)
		return command{packets: pkts, feedback: true}, err
	})
}

// GotoAngle moves an absolute motor to angle and returns when the hub
// reports the move finished.
func (h *Hub) GotoAngle(ctx context.Context, portName string, angle, speed int) error {
	return h.execute(ctx, portName, func(_ *port, d *device.Device) (command, error) {
		pkts, err := d.EncodeGotoAngle(angle, speed)
		return command{packets: pkts, feedback: true}, err
	})
}

// GotoAnglePair moves both motors of a virtual port.
func (h *Hub) GotoAnglePair(ctx context.Context, portName string, first, second, speed int) error {
	return h.execute(ctx, portName, func(p *port, d *device.Device) (command, error) {
		if !p.virtual {
			return command{}, fmt.Errorf("angle pair needs a virtual port: %w", ErrUnsupported)
		}
		pkts, err := d.EncodeGotoAnglePair(first, second, speed)
		return command{packets: pkts, feedback: true}, err
	})
}

// ResetZero makes the motor's current position its zero.
func (h *Hub) ResetZero(ctx context.Context, portName string) error {
	return h.execute(ctx, portName, func(_ *port, d *device.Device) (command, error) {
		return immediate(d.EncodeResetZero())
	})
}

// SetAccelerationTime sets the ramp-up time of a tacho motor and enables
// its acceleration profile.
func (h *Hub) SetAccelerationTime(ctx context.Context, portName string, t time.Duration) error {
	return h.execute(ctx, portName, func(_ *port, d *device.Device) (command, error) {
		pkts, err := d.EncodeAccelerationTime(t)
		if err == nil {
			d.Profile.Acceleration = true
		}
		return command{packets: pkts}, err
	})
}

// SetDecelerationTime sets the ramp-down time of a tacho motor and enables
// its deceleration profile.
func (h *Hub) SetDecelerationTime(ctx context.Context, portName string, t time.Duration) error {
	return h.execute(ctx, portName, func(_ *port, d *device.Device) (command, error) {
		pkts, err := d.EncodeDecelerationTime(t)
		if err == nil {
			d.Profile.Deceleration = true
		}
		return command{packets: pkts}, err
	})
}

// SetMotorProfile replaces the max power, braking and ramp settings sent
// with the motor's commands.
func (h *Hub) SetMotorProfile(portName string, profile device.MotorProfile) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, d, err := h.lookupDevice(portName)
	if err != nil {
		return err
	}
	if !d.Type.IsTacho() {
		return fmt.Errorf("hub: %s: motor profile on %s: %w", portName, d.Type, ErrUnsupported)
	}
	d.Profile = profile
	return nil
}

// SetBrightness sets a light. With a duration it is switched off again
// afterwards.
func (h *Hub) SetBrightness(ctx context.Context, portName string, brightness int, duration time.Duration) error {
	return h.execute(ctx, portName, func(_ *port, d *device.Device) (command, error) {
		pkts, err := d.EncodeBrightness(brightness)
		if err != nil || duration <= 0 {
			return command{packets: pkts}, err
		}
		off, err := d.EncodeBrightness(0)
		return command{packets: pkts, after: duration, stop: off}, err
	})
}

// SetColor sets the hub LED or a color-distance sensor's LED.
func (h *Hub) SetColor(ctx context.Context, portName string, c device.Color) error {
	return h.execute(ctx, portName, func(p *port, d *device.Device) (command, error) {
		if d.Type != device.HubLED && d.Type != device.ColorDistanceSensor {
			return command{}, fmt.Errorf("color on %s: %w", d.Type, ErrUnsupported)
		}
		if err := h.selectMode(p, d, d.ColorMode(), true); err != nil {
			return command{}, err
		}
		return immediate(d.EncodeColor(c))
	})
}

// SetRGB sets the hub LED to an RGB value.
func (h *Hub) SetRGB(ctx context.Context, portName string, r, g, b byte) error {
	return h.execute(ctx, portName, func(p *port, d *device.Device) (command, error) {
		if d.Type != device.HubLED {
			return command{}, fmt.Errorf("rgb on %s: %w", d.Type, ErrUnsupported)
		}
		if err := h.selectMode(p, d, device.ModeLEDRGB, true); err != nil {
			return command{}, err
		}
		return immediate(d.EncodeRGB(r, g, b))
	})
}

// SetSensorLights sets the segment LEDs of a Technic color or distance
// sensor.
func (h *Hub) SetSensorLights(ctx context.Context, portName string, levels ...int) error {
	return h.execute(ctx, portName, func(_ *port, d *device.Device) (command, error) {
		return immediate(d.EncodeSensorLights(levels...))
	})
}

// SetMatrix sets every pixel of the 3x3 color light matrix.
func (h *Hub) SetMatrix(ctx context.Context, portName string, colors [9]device.Color, brightness int) error {
	return h.execute(ctx, portName, func(p *port, d *device.Device) (command, error) {
		if d.Type != device.Technic3x3ColorLightMatrix {
			return command{}, fmt.Errorf("matrix on %s: %w", d.Type, ErrUnsupported)
		}
		if err := h.selectMode(p, d, device.ModeMatrixPixels, true); err != nil {
			return command{}, err
		}
		return immediate(d.EncodeMatrix(colors, brightness))
	})
}

// PlayTone plays a tone. On the WeDo 2.0 piezo buzzer the call returns
// once duration has elapsed.
func (h *Hub) PlayTone(ctx context.Context, portName string, frequency uint16, duration time.Duration) error {
	return h.execute(ctx, portName, func(p *port, d *device.Device) (command, error) {
		if d.Type == device.DuploTrainBaseSpeaker {
			if err := h.selectMode(p, d, device.ModeSpeakerTone, true); err != nil {
				return command{}, err
			}
			return immediate(d.EncodeTone(frequency, 0))
		}
		pkts, err := d.EncodeTone(frequency, duration)
		return command{packets: pkts, after: duration}, err
	})
}

// StopTone silences the WeDo 2.0 piezo buzzer.
func (h *Hub) StopTone(ctx context.Context, portName string) error {
	return h.execute(ctx, portName, func(_ *port, d *device.Device) (command, error) {
		return immediate(d.EncodeStopTone())
	})
}

// PlaySound plays a Duplo train base sound.
func (h *Hub) PlaySound(ctx context.Context, portName string, s device.Sound) error {
	return h.execute(ctx, portName, func(p *port, d *device.Device) (command, error) {
		if d.Type != device.DuploTrainBaseSpeaker {
			return command{}, fmt.Errorf("sound on %s: %w", d.Type, ErrUnsupported)
		}
		if err := h.selectMode(p, d, device.ModeSpeakerSound, true); err != nil {
			return command{}, err
		}
		return immediate(d.EncodeSound(s))
	})
}
