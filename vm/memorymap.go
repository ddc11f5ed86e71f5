package vm

// MemoryMap is an ordered collection of non-overlapping segments that
// together cover some subset of the 16-bit address space. Dispatch is
// linear in the number of installed segments, which is the only
// externally observable contract (spec §4.3) — there are never more
// than a handful of segments in a real image.
type MemoryMap struct {
	segments []Segment
}

// NewMemoryMap creates an empty map. Segments are installed with Add.
func NewMemoryMap() *MemoryMap {
	return &MemoryMap{}
}

// Add registers a segment. Segments must be added in ascending,
// non-overlapping order; violating either fails registration so that
// bugs in map construction surface immediately instead of silently
// shadowing addresses.
func (m *MemoryMap) Add(seg Segment) error {
	base := int(seg.Base())
	end := base + seg.Len()

	for _, existing := range m.segments {
		existingBase := int(existing.Base())
		existingEnd := existingBase + existing.Len()

		if base < existingEnd && existingBase < end {
			return ErrOverlappingSegment
		}
		if base < existingBase {
			return ErrOverlappingSegment
		}
	}

	m.segments = append(m.segments, seg)
	return nil
}

func (m *MemoryMap) find(addr Word) Segment {
	for _, seg := range m.segments {
		if seg.Within(addr) {
			return seg
		}
	}
	return nil
}

// Get reads the word at addr, dispatching to whichever segment owns
// it. Addresses outside every segment, or in a hole between segments,
// fail with ErrInvalidAccess.
func (m *MemoryMap) Get(addr Word) (Word, error) {
	seg := m.find(addr)
	if seg == nil {
		return 0, ErrInvalidAccess
	}
	return seg.Get(addr)
}

// Inspect reads the word at addr without triggering any device side
// effect (e.g. it does not dequeue a pending serial character).
func (m *MemoryMap) Inspect(addr Word) (Word, error) {
	seg := m.find(addr)
	if seg == nil {
		return 0, ErrInvalidAccess
	}
	return seg.Inspect(addr)
}

// Set writes value at addr. Addresses owned by a read-only segment, or
// not owned by any segment, fail with ErrInvalidWrite.
func (m *MemoryMap) Set(addr Word, value Word) error {
	seg := m.find(addr)
	if seg == nil {
		return ErrInvalidWrite
	}
	return seg.Set(addr, value)
}

// Reset resets every installed segment in registration order.
func (m *MemoryMap) Reset() {
	for _, seg := range m.segments {
		seg.Reset()
	}
}
