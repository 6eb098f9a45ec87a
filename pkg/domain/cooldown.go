package domain

import (
	"fmt"
	"time"
)

// Cooldown is a duration token from a fixed set.
// Procedure settings additionally accept Disabled.
type Cooldown string

const (
	Cooldown0h  Cooldown = "0h"
	Cooldown1h  Cooldown = "1h"
	Cooldown6h  Cooldown = "6h"
	Cooldown12h Cooldown = "12h"
	Cooldown24h Cooldown = "24h"
	Cooldown48h Cooldown = "48h"

	// Disabled turns a procedure timer off.
	Disabled Cooldown = "desativado"
)

var cooldownHours = map[Cooldown]int{
	Cooldown0h:  0,
	Cooldown1h:  1,
	Cooldown6h:  6,
	Cooldown12h: 12,
	Cooldown24h: 24,
	Cooldown48h: 48,
}

// Cooldowns lists the allowed tokens in ascending order.
func Cooldowns() []Cooldown {
	return []Cooldown{Cooldown0h, Cooldown1h, Cooldown6h, Cooldown12h, Cooldown24h, Cooldown48h}
}

// Valid reports whether c is one of the enumerated duration tokens.
// Disabled is not a valid automation cooldown.
func (c Cooldown) Valid() bool {
	_, ok := cooldownHours[c]
	return ok
}

// ValidSetting reports whether c is accepted by procedure settings.
func (c Cooldown) ValidSetting() bool {
	return c == Disabled || c.Valid()
}

// IsDisabled reports whether the token switches the timer off.
func (c Cooldown) IsDisabled() bool { return c == Disabled }

// Hours converts the token to whole hours.
func (c Cooldown) Hours() (int, error) {
	h, ok := cooldownHours[c]
	if !ok {
		return 0, fmt.Errorf("unknown cooldown %q", string(c))
	}
	return h, nil
}

// Duration converts the token to a time.Duration. Disabled maps to zero.
func (c Cooldown) Duration() (time.Duration, error) {
	if c.IsDisabled() {
		return 0, nil
	}
	h, err := c.Hours()
	if err != nil {
		return 0, err
	}
	return time.Duration(h) * time.Hour, nil
}
