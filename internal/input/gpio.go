package input

import (
	"fmt"

	gpiod "github.com/warthog618/go-gpiocdev"
)

// GPIOSwitch is a momentary switch on a GPIO character device line, requested
// as an input with the internal pull-up enabled.
type GPIOSwitch struct {
	chip *gpiod.Chip
	line *gpiod.Line
}

// OpenSwitch requests the line from the named chip.
func OpenSwitch(chipName string, offset int) (*GPIOSwitch, error) {
	chip, err := gpiod.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(offset, gpiod.AsInput, gpiod.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("requesting %s line %d: %w", chipName, offset, err)
	}

	return &GPIOSwitch{chip: chip, line: line}, nil
}

// Value reads the raw line level.
func (s *GPIOSwitch) Value() (int, error) {
	return s.line.Value()
}

// Close releases the line and the chip.
func (s *GPIOSwitch) Close() error {
	s.line.Close()
	return s.chip.Close()
}
