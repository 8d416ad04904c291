package web

import (
	"fmt"
)

// Slot names a region of the page header that a page can render into
type Slot string

const (
	SlotSearch   Slot = "search"
	SlotNavRight Slot = "nav-right"
)

var knownSlots = map[Slot]bool{
	SlotSearch:   true,
	SlotNavRight: true,
}

// Slots maps header slots to the templates that fill them
type Slots struct {
	fills map[Slot]string
}

// Fill assigns a template to slot. Unknown slots and double fills fail.
func (s *Slots) Fill(slot Slot, template string) error {
	if !knownSlots[slot] {
		return fmt.Errorf("unknown slot %q", slot)
	}
	if s.fills == nil {
		s.fills = make(map[Slot]string)
	}
	if prev, ok := s.fills[slot]; ok {
		return fmt.Errorf("slot %q already filled by %q", slot, prev)
	}
	s.fills[slot] = template
	return nil
}

// Template returns the template filling slot, if any
func (s Slots) Template(slot Slot) (string, bool) {
	name, ok := s.fills[slot]
	return name, ok
}

// mustSlots builds a fixed slot set for a page
func mustSlots(fills map[Slot]string) Slots {
	var s Slots
	for slot, name := range fills {
		if err := s.Fill(slot, name); err != nil {
			panic(err)
		}
	}
	return s
}
