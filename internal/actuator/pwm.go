package actuator

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Servo timing on the sysfs PWM interface: 50Hz frame with the usual hobby
// servo pulse range mapped linearly over 0-180 degrees.
const (
	pwmPeriodNs   = 20_000_000
	pwmMinPulseNs = 544_000
	pwmMaxPulseNs = 2_400_000
)

// PWMServo drives a servo through /sys/class/pwm.
type PWMServo struct {
	dir string
}

// OpenPWMServo exports the channel on the given chip and configures the
// servo frame. The channel is left disabled until the first Write.
func OpenPWMServo(chip, channel int) (*PWMServo, error) {
	chipDir := fmt.Sprintf("/sys/class/pwm/pwmchip%d", chip)
	dir := filepath.Join(chipDir, fmt.Sprintf("pwm%d", channel))

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		export := filepath.Join(chipDir, "export")
		if err := os.WriteFile(export, []byte(strconv.Itoa(channel)), 0644); err != nil {
			return nil, fmt.Errorf("exporting pwm%d on chip %d: %w", channel, chip, err)
		}
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("pwm channel %s: %w", dir, err)
	}

	s := &PWMServo{dir: dir}
	if err := s.write("period", pwmPeriodNs); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PWMServo) write(name string, val int) error {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(strconv.Itoa(val)), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Write sets the pulse width for the given angle and enables the channel.
func (s *PWMServo) Write(angle uint8) error {
	pulse := pwmMinPulseNs + int(angle)*(pwmMaxPulseNs-pwmMinPulseNs)/180
	if err := s.write("duty_cycle", pulse); err != nil {
		return err
	}
	return s.write("enable", 1)
}

// Close disables the channel, releasing the horn.
func (s *PWMServo) Close() error {
	return s.write("enable", 0)
}
