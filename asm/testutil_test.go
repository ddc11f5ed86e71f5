package asm

import (
	"fmt"
	"testing"

	"github.com/cessnao3/scpu/vm"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

// newTestCPU builds a CPU over an assembled image, backed by a single
// read-write segment big enough for both the program and the canonical
// stack window, mirroring vm's own test fixture.
func newTestCPU(words []vm.Word) *vm.CPU {
	size := int(vm.StackBase) + int(vm.StackMax)
	image := make([]vm.Word, size)
	copy(image, words)

	mem := vm.NewMemoryMap()
	seg := vm.NewReadWriteSegmentFromImage(0, image)
	if err := mem.Add(seg); err != nil {
		panic(err)
	}
	return vm.NewCPU(mem, 0)
}
