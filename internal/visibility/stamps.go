package visibility

// Slot identifies one simultaneous viewpoint. Each slot has its own stamps so
// culling one eye never changes what another eye sees.
type Slot int

const (
	SlotWorld Slot = iota
	SlotLeftEye
	SlotRightEye
	SlotShadow0
	SlotShadow1
	SlotShadow2
	SlotShadow3
	SlotSnapshot

	NumSlots = int(SlotSnapshot) + 1
)

func (s Slot) Valid() bool {
	return s >= 0 && int(s) < NumSlots
}

func (s Slot) String() string {
	switch s {
	case SlotWorld:
		return "world"
	case SlotLeftEye:
		return "left_eye"
	case SlotRightEye:
		return "right_eye"
	case SlotShadow0:
		return "shadow0"
	case SlotShadow1:
		return "shadow1"
	case SlotShadow2:
		return "shadow2"
	case SlotShadow3:
		return "shadow3"
	case SlotSnapshot:
		return "snapshot"
	default:
		return "invalid"
	}
}

// Stamps is the last-visible frame per slot. The zero value means never
// visible from any slot. An invalid slot is never visible and marking it
// does nothing.
type Stamps [NumSlots]uint32

// Mark records that the owner is visible from slot in the current frame.
func (s *Stamps) Mark(slot Slot) {
	if !slot.Valid() {
		return
	}
	s[slot] = Current()
}

// MarkFrame records an explicit frame for slot.
func (s *Stamps) MarkFrame(slot Slot, frame uint32) {
	if !slot.Valid() {
		return
	}
	s[slot] = frame
}

// Frame returns the last frame the owner was visible from slot, or 0.
func (s *Stamps) Frame(slot Slot) uint32 {
	if !slot.Valid() {
		return 0
	}
	return s[slot]
}

func (s *Stamps) IsVisible(slot Slot) bool {
	return slot.Valid() && s[slot] == Current()
}

// IsRecentlyVisible reports whether the owner was seen from slot within the
// last window frames, the current frame included.
func (s *Stamps) IsRecentlyVisible(slot Slot, window uint32) bool {
	stamp := s.Frame(slot)
	if stamp == 0 {
		return false
	}
	cur := Current()
	if stamp > cur {
		// stamped before a Reset
		return false
	}
	return cur-stamp < window
}

// Clear forgets every slot.
func (s *Stamps) Clear() {
	*s = Stamps{}
}
