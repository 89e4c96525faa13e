package events

import (
	"fmt"
	"strings"
)

const (
	barWidth  = 20
	barFilled = "█"
	barEmpty  = "░"
)

// Bar renders progress as a fixed-width text bar such as
// "[██████░░░░░░░░░░░░░░] 30% (3/10)".
func (p Progress) Bar() string {
	f := p.Fraction()
	filled := int(barWidth * f)
	bar := strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, barWidth-filled)
	s := fmt.Sprintf("[%s] %d%% (%d/%d)", bar, int(f*100), int(p.Current), int(p.Total))
	if p.Message != "" {
		s += " " + p.Message
	}
	return s
}
