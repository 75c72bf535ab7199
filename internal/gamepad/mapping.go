package gamepad

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// SettingsSection is the settings table section holding persisted mappings.
const SettingsSection = "gamepad-mapping"

// SlotCount is the number of logical slots in the on-screen layout: a 3x3
// direction grid followed by the face, shoulder and menu buttons.
const SlotCount = 17

// SlotNames names every logical slot by uiIndex.
var SlotNames = [SlotCount]string{
	"up-left", "up", "up-right",
	"left", "center", "right",
	"down-left", "down", "down-right",
	"y", "x", "b", "a",
	"lb", "rb", "select", "start",
}

// SupportedSlots lists the slots the mapping wizard asks for, in order.
// Diagonals and the center of the direction grid are left out.
var SupportedSlots = []int{1, 3, 5, 7, 9, 10, 11, 12, 13, 14, 15, 16}

// Token is one entry of a mapping. A token that is not Present stands for a
// slot that does not exist on the device and is written as "*".
type Token struct {
	Present bool
	Code    Code
}

func (t Token) String() string {
	if !t.Present {
		return "*"
	}
	return t.Code.String()
}

// ParseToken parses "*", "<int>", "<int>+" or "<int>-".
func ParseToken(s string) (Token, error) {
	if s == "*" {
		return Token{}, nil
	}
	dir := 0
	switch {
	case strings.HasSuffix(s, "+"):
		dir = 1
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "-"):
		dir = -1
		s = s[:len(s)-1]
	}
	idx, err := strconv.Atoi(s)
	if err != nil || idx < 0 {
		return Token{}, fmt.Errorf("invalid mapping token %q", s)
	}
	return Token{Present: true, Code: Code{Index: idx, Direction: dir}}, nil
}

// Mapping translates logical slots (by position) into physical controls.
type Mapping []Token

var separators = regexp.MustCompile(`[\s,]+`)

// Fields splits a whitespace/comma delimited list.
func Fields(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return separators.Split(s, -1)
}

// ParseMapping reads a persisted mapping string. Tokens past SlotCount and
// tokens that do not parse are ignored; their slots are treated as absent.
func ParseMapping(s string) Mapping {
	m := NewMapping()
	for i, f := range Fields(s) {
		if i >= SlotCount {
			break
		}
		if tok, err := ParseToken(f); err == nil {
			m[i] = tok
		}
	}
	return m
}

// NewMapping returns a mapping with every slot absent.
func NewMapping() Mapping {
	return make(Mapping, SlotCount)
}

func (m Mapping) String() string {
	parts := make([]string, len(m))
	for i, t := range m {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// NormalizeIdentity strips every non-alphanumeric character and lowercases.
func NormalizeIdentity(s string) string {
	return strings.ToLower(nonAlnum.ReplaceAllString(s, ""))
}

// MappingKey builds the settings key for a platform/device pair.
func MappingKey(platform, device string) string {
	return NormalizeIdentity(platform) + "." + NormalizeIdentity(device)
}

// DeviceIdentity formats a device fingerprint from its name and USB ids.
func DeviceIdentity(name string, vendorID, productID uint16) string {
	if vendorID == 0 && productID == 0 {
		return name
	}
	return fmt.Sprintf("%s (Vendor: %04x Product: %04x)", name, vendorID, productID)
}

// NormalizeAxis converts a raw axis value (-32768..32767) to -1.0..1.0.
func NormalizeAxis(raw int16) float64 {
	v := float64(raw) / math.MaxInt16
	if v < -1.0 {
		v = -1.0
	}
	return v
}
