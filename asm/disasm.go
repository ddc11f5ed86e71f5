package asm

import (
	"fmt"
	"strings"

	"github.com/cessnao3/scpu/vm"
)

var (
	zeroArgByCode     = map[byte]string{}
	oneRegisterByCode = map[byte]string{}
	twoRegisterByCode = map[byte]string{}
	arithmeticByCode  = map[byte]string{}
)

func init() {
	for _, m := range mnemonicTable {
		switch m.shape {
		case shapeNone:
			zeroArgByCode[m.sub] = m.name
		case shapeReg:
			oneRegisterByCode[m.sub] = m.name
		case shapeRegReg:
			twoRegisterByCode[m.sub] = m.name
		case shapeRegRegReg:
			arithmeticByCode[m.opcode] = m.name
		}
	}
}

// Disassemble renders a word image back to Solarium assembly text, one
// instruction per line, with no attempt to recover the original
// labels. It exists chiefly to check assemble(disassemble(image)) ==
// image for every encodable instruction.
func Disassemble(words []vm.Word) (string, error) {
	var sb strings.Builder
	for i, w := range words {
		line, err := disassembleWord(w)
		if err != nil {
			return "", fmt.Errorf("word %d (0x%04X): %w", i, uint16(w), err)
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func disassembleWord(w vm.Word) (string, error) {
	opcode, arg0, arg1, arg2 := w.Nibbles()

	switch {
	case opcode == 0:
		return disassembleControl(arg0, arg1, arg2)
	case opcode == 1:
		return fmt.Sprintf("ldi %d, %d", arg2, vm.SignedImmediate(arg0, arg1)), nil
	case opcode == 2:
		return fmt.Sprintf("ldui %d, %d", arg2, vm.UnsignedImmediate(arg0, arg1)), nil
	case opcode == 3:
		return fmt.Sprintf("ldir %d, %d", arg2, vm.SignedImmediate(arg0, arg1)), nil
	case opcode >= 4 && opcode <= 0xD:
		name, ok := arithmeticByCode[opcode]
		if !ok {
			return "", fmt.Errorf("%w: opcode %x", ErrUnknownInstruction, opcode)
		}
		return fmt.Sprintf("%s %d, %d, %d", name, arg2, arg1, arg0), nil
	default:
		return "", fmt.Errorf("%w: opcode %x", ErrUnknownInstruction, opcode)
	}
}

// disassembleControl mirrors vm.CPU.stepControl's own sub-dispatch:
// a nonzero arg0 selects the two-register family (or jmpri, which is
// arg0==1 with an immediate rather than a register pair), a nonzero
// arg1 with arg0==0 selects the one-register family, and arg0==arg1==0
// selects the zero-argument family keyed on arg2.
func disassembleControl(arg0, arg1, arg2 byte) (string, error) {
	switch {
	case arg0 == 1:
		return fmt.Sprintf("jmpri %d", vm.SignedImmediate(arg1, arg2)), nil

	case arg0 != 0:
		name, ok := twoRegisterByCode[arg0]
		if !ok {
			return "", fmt.Errorf("%w: two-register sub-op %x", ErrUnknownInstruction, arg0)
		}
		return fmt.Sprintf("%s %d, %d", name, arg2, arg1), nil

	case arg1 != 0:
		name, ok := oneRegisterByCode[arg1]
		if !ok {
			return "", fmt.Errorf("%w: one-register sub-op %x", ErrUnknownInstruction, arg1)
		}
		return fmt.Sprintf("%s %d", name, arg2), nil

	default:
		name, ok := zeroArgByCode[arg2]
		if !ok {
			return "", fmt.Errorf("%w: zero-arg sub-op %x", ErrUnknownInstruction, arg2)
		}
		return name, nil
	}
}
