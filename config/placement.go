package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Placement selects how initial symbionts are spread over the host.
type Placement uint8

const (
	Randomize  Placement = iota + 1 // anywhere on the host
	Horizontal                      // each clade in its own band of rows
	Vertical                        // each clade in its own band of columns
)

var placementTokens = map[string]Placement{
	"randomize":  Randomize,
	"horizontal": Horizontal,
	"vertical":   Vertical,
}

// ParsePlacement maps a configuration token to a Placement. Matching is
// case-insensitive; unknown tokens are an error.
func ParsePlacement(s string) (Placement, error) {
	p, ok := placementTokens[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown placement %q (want randomize, horizontal or vertical)", s)
	}
	return p, nil
}

// Valid reports whether p is one of the defined placements.
func (p Placement) Valid() bool {
	return p >= Randomize && p <= Vertical
}

func (p Placement) String() string {
	switch p {
	case Randomize:
		return "randomize"
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	}
	return fmt.Sprintf("Placement(%d)", uint8(p))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Placement) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParsePlacement(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p Placement) MarshalYAML() (any, error) {
	return p.String(), nil
}
