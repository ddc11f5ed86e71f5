package asm

import (
	"testing"

	"github.com/cessnao3/scpu/vm"
)

// sampleOperands returns representative operand text for a mnemonic's
// shape, sized to stay within whatever range that shape allows.
func sampleOperands(def mnemonicDef) string {
	switch def.shape {
	case shapeNone:
		return ""
	case shapeReg:
		return "5"
	case shapeRegReg:
		return "5, 6"
	case shapeImm8:
		if def.signed {
			return "-3"
		}
		return "3"
	case shapeRegImm8:
		if def.signed {
			return "5, -3"
		}
		return "5, 200"
	case shapeRegRegReg:
		return "7, 5, 6"
	default:
		return ""
	}
}

func TestDisassembleRoundTripsEveryMnemonic(t *testing.T) {
	for _, def := range mnemonicTable {
		src := def.name
		if ops := sampleOperands(def); ops != "" {
			src += " " + ops
		}

		words, err := Assemble(src)
		assert(t, err == nil, "%s: assemble failed: %v", def.name, err)
		assert(t, len(words) == 1, "%s: expected 1 word, got %d", def.name, len(words))

		text, err := Disassemble(words)
		assert(t, err == nil, "%s: disassemble failed: %v", def.name, err)

		reassembled, err := Assemble(text)
		assert(t, err == nil, "%s: re-assemble of %q failed: %v", def.name, text, err)
		assert(t, len(reassembled) == 1, "%s: expected 1 re-assembled word, got %d", def.name, len(reassembled))
		assert(t, reassembled[0] == words[0], "%s: round trip mismatch: %#04x != %#04x", def.name, uint16(reassembled[0]), uint16(words[0]))
	}
}

func TestDisassembleUnknownOpcodeFails(t *testing.T) {
	_, err := Disassemble([]vm.Word{0xE000})
	assert(t, err != nil, "expected an error disassembling an unused opcode")
}

func TestDisassembleArithmeticOperandOrder(t *testing.T) {
	words, err := Assemble("add 5, 3, 4")
	assert(t, err == nil, "unexpected error: %v", err)

	text, err := Disassemble(words)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, text == "add 5, 3, 4\n", "expected add 5, 3, 4, got %q", text)
}
