package vm

// NumRegisters is the size of the register file. Indices 0-2 are
// aliased to named roles; 3..NumRegisters-1 are general purpose.
const NumRegisters = 16

// Named register indices. This is the canonical mapping the spec
// calls out in the Data Model: index 0 is the program counter, index 1
// is the stack pointer offset, index 2 is the flags/status register.
const (
	RegPC    = 0
	RegSP    = 1
	RegFlags = 2

	// FirstGPRegister is the first index treated as general purpose by
	// call/ret frame save-restore (see cpu.go).
	FirstGPRegister = 3
)

// registerFile holds the sixteen registers of a single CPU core. It is
// a plain array wrapped for bounds-checked access; register 0/1 are
// not given separate Go fields so that generic opcode handling (which
// addresses registers by a decoded nibble) never needs a type switch.
type registerFile [NumRegisters]Word

func (r *registerFile) get(index byte) Word {
	return r[index]
}

func (r *registerFile) set(index byte, value Word) {
	r[index] = value
}

func (r *registerFile) reset() {
	for i := range r {
		r[i] = 0
	}
}
