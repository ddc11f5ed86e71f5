package vm

import (
	"fmt"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

// newTestCPU builds a CPU backed by a single read-write segment big
// enough to hold both test code and the canonical stack window.
func newTestCPU(program []Word) *CPU {
	size := int(StackBase) + int(StackMax)
	image := make([]Word, size)
	copy(image, program)

	mem := NewMemoryMap()
	seg := NewReadWriteSegmentFromImage(0, image)
	if err := mem.Add(seg); err != nil {
		panic(err)
	}
	return NewCPU(mem, 0)
}

func instr(opcode, arg0, arg1, arg2 byte) Word {
	return Word(opcode)<<12 | Word(arg0)<<8 | Word(arg1)<<4 | Word(arg2)
}
