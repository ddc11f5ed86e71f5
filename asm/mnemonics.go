package asm

// operandShape describes the operand list a mnemonic accepts and how
// those operands map onto the instruction word's nibbles. Every
// Solarium instruction is exactly one word; there are no
// variable-length encodings to track across passes.
type operandShape int

const (
	shapeNone      operandShape = iota // no operands: noop, ret, ...
	shapeReg                           // one register: jmp, push, ...
	shapeRegReg                        // two registers: ld reg_a, reg_b
	shapeImm8                          // one 8-bit immediate: jmpri <imm>
	shapeRegImm8                       // register, 8-bit immediate: ldi reg, imm
	shapeRegRegReg                     // dest, a, b registers: add d, a, b
)

// mnemonicDef is the static encoding of one mnemonic, grounded on
// spec §4.1/§4.6: opcode plus a sub-field selecting the zero/one/two
// register family, and whether an immediate operand is sign-checked.
type mnemonicDef struct {
	name   string
	opcode byte
	sub    byte
	shape  operandShape
	signed bool // only meaningful for shapeImm8 and shapeRegImm8
}

var mnemonicTable = []mnemonicDef{
	{name: "noop", opcode: 0, sub: 0, shape: shapeNone},
	{name: "inton", opcode: 0, sub: 1, shape: shapeNone},
	{name: "intoff", opcode: 0, sub: 2, shape: shapeNone},
	{name: "reset", opcode: 0, sub: 3, shape: shapeNone},
	{name: "pop", opcode: 0, sub: 4, shape: shapeNone},
	{name: "ret", opcode: 0, sub: 5, shape: shapeNone},

	{name: "jmp", opcode: 0, sub: 1, shape: shapeReg},
	{name: "jmpr", opcode: 0, sub: 2, shape: shapeReg},
	{name: "push", opcode: 0, sub: 3, shape: shapeReg},
	{name: "popr", opcode: 0, sub: 4, shape: shapeReg},
	{name: "call", opcode: 0, sub: 5, shape: shapeReg},
	{name: "int", opcode: 0, sub: 6, shape: shapeReg},

	{name: "ld", opcode: 0, sub: 2, shape: shapeRegReg},
	{name: "sav", opcode: 0, sub: 3, shape: shapeRegReg},
	{name: "ldr", opcode: 0, sub: 4, shape: shapeRegReg},
	{name: "savr", opcode: 0, sub: 5, shape: shapeRegReg},
	{name: "jz", opcode: 0, sub: 6, shape: shapeRegReg},
	{name: "jzr", opcode: 0, sub: 7, shape: shapeRegReg},
	{name: "jgz", opcode: 0, sub: 8, shape: shapeRegReg},
	{name: "jgzr", opcode: 0, sub: 9, shape: shapeRegReg},

	{name: "jmpri", opcode: 0, sub: 1, shape: shapeImm8, signed: true},

	{name: "ldi", opcode: 1, shape: shapeRegImm8, signed: true},
	{name: "ldui", opcode: 2, shape: shapeRegImm8, signed: false},
	{name: "ldir", opcode: 3, shape: shapeRegImm8, signed: true},

	{name: "add", opcode: 0x4, shape: shapeRegRegReg},
	{name: "sub", opcode: 0x5, shape: shapeRegRegReg},
	{name: "mul", opcode: 0x6, shape: shapeRegRegReg},
	{name: "div", opcode: 0x7, shape: shapeRegRegReg},
	{name: "mod", opcode: 0x8, shape: shapeRegRegReg},
	{name: "band", opcode: 0x9, shape: shapeRegRegReg},
	{name: "bor", opcode: 0xA, shape: shapeRegRegReg},
	{name: "bxor", opcode: 0xB, shape: shapeRegRegReg},
	{name: "bsftl", opcode: 0xC, shape: shapeRegRegReg},
	{name: "bsftr", opcode: 0xD, shape: shapeRegRegReg},
}

var mnemonicsByName map[string]mnemonicDef

func init() {
	mnemonicsByName = make(map[string]mnemonicDef, len(mnemonicTable))
	for _, m := range mnemonicTable {
		mnemonicsByName[m.name] = m
	}
}

func isMnemonic(name string) bool {
	_, ok := mnemonicsByName[name]
	return ok
}

func operandCount(shape operandShape) int {
	switch shape {
	case shapeNone:
		return 0
	case shapeReg, shapeImm8:
		return 1
	case shapeRegReg, shapeRegImm8:
		return 2
	case shapeRegRegReg:
		return 3
	default:
		return 0
	}
}

// The zero/one/two-register families all share opcode 0 and are
// disambiguated by shape-specific lookup tables built in disasm.go,
// since the same (opcode, sub) pair can mean different things under
// different shapes (e.g. sub=1 is both jmp under shapeReg and jmpri
// under shapeImm8 — disambiguated there by which of arg0/arg1 is
// nonzero, mirroring vm.CPU.stepControl).
