package asm

import (
	"fmt"

	"github.com/cessnao3/scpu/vm"
)

type operandKind int

const (
	operandInteger operandKind = iota
	operandLabel
)

type operand struct {
	kind  operandKind
	value int32
	label string
	line  int
}

type stmtKind int

const (
	stmtLabelOnly stmtKind = iota
	stmtInstruction
	stmtDirective
)

type statement struct {
	labels    []string
	kind      stmtKind
	mnemonic  string
	directive string
	operands  []operand
	line      int
}

// Assemble lowers Solarium assembly source into a word image, per the
// two-pass design in spec §4.5: pass one resolves label addresses and
// pseudo-op word counts, pass two emits and resolves operands.
func Assemble(source string) ([]vm.Word, error) {
	tokens, err := NewTokenizer(source).Tokenize()
	if err != nil {
		return nil, err
	}

	statements, err := parseStatements(tokens)
	if err != nil {
		return nil, err
	}

	labels, err := resolveLabels(statements)
	if err != nil {
		return nil, err
	}

	return emit(statements, labels)
}

func parseStatements(tokens []Token) ([]statement, error) {
	var statements []statement
	for _, lineTokens := range splitLines(tokens) {
		st, err := parseLine(lineTokens)
		if err != nil {
			return nil, err
		}
		statements = append(statements, st)
	}
	return statements, nil
}

func splitLines(tokens []Token) [][]Token {
	var lines [][]Token
	var cur []Token
	for _, t := range tokens {
		if t.Kind == TokenEndOfLine || t.Kind == TokenEndOfFile {
			if len(cur) > 0 {
				lines = append(lines, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	return lines
}

func parseLine(line []Token) (statement, error) {
	st := statement{line: line[0].Line}

	idx := 0
	for idx < len(line) && line[idx].Kind == TokenLabelDef {
		st.labels = append(st.labels, line[idx].Text)
		idx++
	}
	if idx == len(line) {
		st.kind = stmtLabelOnly
		return st, nil
	}

	head := line[idx]
	switch head.Kind {
	case TokenMnemonic:
		st.kind = stmtInstruction
		st.mnemonic = head.Text
	case TokenDirective:
		st.kind = stmtDirective
		st.directive = head.Text
	case TokenIdentifier:
		return statement{}, fmt.Errorf("line %d: %w: %s", head.Line, ErrUnknownInstruction, head.Text)
	default:
		return statement{}, fmt.Errorf("line %d: %w: expected instruction or directive, found %s", head.Line, ErrSyntax, head.Kind)
	}
	idx++

	operands, err := parseOperands(line[idx:], head.Line)
	if err != nil {
		return statement{}, err
	}
	st.operands = operands
	return st, nil
}

func parseOperands(tokens []Token, line int) ([]operand, error) {
	var ops []operand
	for _, t := range tokens {
		switch t.Kind {
		case TokenComma:
			if len(ops) == 0 {
				return nil, fmt.Errorf("line %d: %w: comma before first operand", line, ErrSyntax)
			}
		case TokenInteger:
			ops = append(ops, operand{kind: operandInteger, value: t.Value, line: t.Line})
		case TokenIdentifier:
			ops = append(ops, operand{kind: operandLabel, label: t.Text, line: t.Line})
		default:
			return nil, fmt.Errorf("line %d: %w: unexpected %s in operand list", line, ErrSyntax, t.Kind)
		}
	}
	return ops, nil
}

// resolveLabels is assembler pass one: walk statements in order,
// binding each label to the address of the word that follows it and
// tracking pseudo-op word counts (every real instruction is always
// exactly one word).
func resolveLabels(statements []statement) (map[string]uint16, error) {
	labels := make(map[string]uint16)
	addr := uint16(0)

	for _, st := range statements {
		for _, lbl := range st.labels {
			if _, exists := labels[lbl]; exists {
				return nil, fmt.Errorf("line %d: %w: %s", st.line, ErrDuplicateLabel, lbl)
			}
			labels[lbl] = addr
		}

		switch st.kind {
		case stmtLabelOnly:
			// no emission

		case stmtInstruction:
			def, ok := mnemonicsByName[st.mnemonic]
			if !ok {
				return nil, fmt.Errorf("line %d: %w: %s", st.line, ErrUnknownInstruction, st.mnemonic)
			}
			if want := operandCount(def.shape); len(st.operands) != want {
				return nil, fmt.Errorf("line %d: %w: %s wants %d operand(s), got %d", st.line, ErrOperandArity, st.mnemonic, want, len(st.operands))
			}
			addr++

		case stmtDirective:
			switch st.directive {
			case "load", "loadloc":
				if len(st.operands) != 1 {
					return nil, fmt.Errorf("line %d: %w: .%s takes exactly one operand", st.line, ErrOperandArity, st.directive)
				}
				addr++
			case "oper":
				if len(st.operands) != 1 || st.operands[0].kind != operandInteger {
					return nil, fmt.Errorf("line %d: %w: .oper takes one integer operand", st.line, ErrOperandArity)
				}
				v := st.operands[0].value
				if v < 0 || v > 0xFFFF {
					return nil, fmt.Errorf("line %d: %w: .oper address %d out of range", st.line, ErrImmediateOverflow, v)
				}
				addr = uint16(v)
			default:
				return nil, fmt.Errorf("line %d: %w: unknown directive .%s", st.line, ErrSyntax, st.directive)
			}
		}
	}

	return labels, nil
}

// emit is assembler pass two: produce the word image, resolving every
// operand against the label table built in pass one.
func emit(statements []statement, labels map[string]uint16) ([]vm.Word, error) {
	var words []vm.Word
	addr := uint16(0)

	place := func(a uint16, w vm.Word) {
		for len(words) <= int(a) {
			words = append(words, 0)
		}
		words[a] = w
	}

	for _, st := range statements {
		switch st.kind {
		case stmtLabelOnly:
			continue

		case stmtDirective:
			switch st.directive {
			case "oper":
				addr = uint16(st.operands[0].value)
				continue
			case "load":
				v, err := resolveImmediate16(st.operands[0], labels, addr, st.line)
				if err != nil {
					return nil, err
				}
				place(addr, vm.Word(v))
				addr++
			case "loadloc":
				op := st.operands[0]
				if op.kind != operandLabel {
					return nil, fmt.Errorf("line %d: %w: .loadloc requires a label operand", st.line, ErrSyntax)
				}
				target, ok := labels[op.label]
				if !ok {
					return nil, fmt.Errorf("line %d: %w: %s", st.line, ErrUnresolvedLabel, op.label)
				}
				place(addr, vm.Word(target))
				addr++
			}

		case stmtInstruction:
			def := mnemonicsByName[st.mnemonic]
			w, err := encodeInstruction(def, st, labels, addr)
			if err != nil {
				return nil, err
			}
			place(addr, w)
			addr++
		}
	}

	return words, nil
}

func encodeInstruction(def mnemonicDef, st statement, labels map[string]uint16, addr uint16) (vm.Word, error) {
	switch def.shape {
	case shapeNone:
		return instrWord(def.opcode, 0, 0, def.sub), nil

	case shapeReg:
		reg, err := resolveRegister(st.operands[0])
		if err != nil {
			return 0, err
		}
		return instrWord(def.opcode, 0, def.sub, reg), nil

	case shapeRegReg:
		regA, err := resolveRegister(st.operands[0])
		if err != nil {
			return 0, err
		}
		regB, err := resolveRegister(st.operands[1])
		if err != nil {
			return 0, err
		}
		return instrWord(def.opcode, def.sub, regB, regA), nil

	case shapeImm8:
		imm, err := resolveImmediate8(st.operands[0], labels, addr, def.signed, st.line)
		if err != nil {
			return 0, err
		}
		high, low := splitImmediate(imm)
		return instrWord(def.opcode, def.sub, high, low), nil

	case shapeRegImm8:
		reg, err := resolveRegister(st.operands[0])
		if err != nil {
			return 0, err
		}
		imm, err := resolveImmediate8(st.operands[1], labels, addr, def.signed, st.line)
		if err != nil {
			return 0, err
		}
		high, low := splitImmediate(imm)
		return instrWord(def.opcode, high, low, reg), nil

	case shapeRegRegReg:
		dest, err := resolveRegister(st.operands[0])
		if err != nil {
			return 0, err
		}
		a, err := resolveRegister(st.operands[1])
		if err != nil {
			return 0, err
		}
		b, err := resolveRegister(st.operands[2])
		if err != nil {
			return 0, err
		}
		return instrWord(def.opcode, b, a, dest), nil

	default:
		return 0, fmt.Errorf("line %d: %w: unsupported operand shape for %s", st.line, ErrSyntax, st.mnemonic)
	}
}

func resolveRegister(op operand) (byte, error) {
	if op.kind == operandLabel {
		return 0, fmt.Errorf("line %d: %w: register operand cannot reference a label", op.line, ErrSyntax)
	}
	if op.value < 0 || op.value > 15 {
		return 0, fmt.Errorf("line %d: %w: register %d out of range", op.line, ErrImmediateOverflow, op.value)
	}
	return byte(op.value), nil
}

// resolveImmediate8 resolves an 8-bit immediate operand. A label
// operand is only meaningful here for the PC-relative instructions
// (jmpri, ldir) that take an immediate in the first place, so it
// always resolves as a displacement from the instruction's own word
// address, matching exactly what jmpri and ldir do with the result.
func resolveImmediate8(op operand, labels map[string]uint16, addr uint16, signed bool, line int) (int32, error) {
	v := op.value
	if op.kind == operandLabel {
		target, ok := labels[op.label]
		if !ok {
			return 0, fmt.Errorf("line %d: %w: %s", line, ErrUnresolvedLabel, op.label)
		}
		v = int32(target) - int32(addr)
	}

	if signed {
		if v < -128 || v > 127 {
			return 0, fmt.Errorf("line %d: %w: %d out of signed 8-bit range", line, ErrImmediateOverflow, v)
		}
	} else if v < 0 || v > 255 {
		return 0, fmt.Errorf("line %d: %w: %d out of unsigned 8-bit range", line, ErrImmediateOverflow, v)
	}

	return v, nil
}

// resolveImmediate16 resolves the operand of `.load`, which emits a
// full word verbatim rather than an 8-bit instruction field. A label
// here resolves to its absolute address, matching `.loadloc`'s
// semantics rather than jmpri/ldir's relative one.
func resolveImmediate16(op operand, labels map[string]uint16, addr uint16, line int) (uint16, error) {
	if op.kind == operandLabel {
		target, ok := labels[op.label]
		if !ok {
			return 0, fmt.Errorf("line %d: %w: %s", line, ErrUnresolvedLabel, op.label)
		}
		return target, nil
	}
	if op.value < -0x8000 || op.value > 0xFFFF {
		return 0, fmt.Errorf("line %d: %w: %d does not fit in a word", line, ErrImmediateOverflow, op.value)
	}
	_ = addr
	return uint16(op.value), nil
}

func splitImmediate(v int32) (high, low byte) {
	u := uint8(v)
	return (u >> 4) & 0xF, u & 0xF
}

func instrWord(opcode, arg0, arg1, arg2 byte) vm.Word {
	return vm.Word(opcode)<<12 | vm.Word(arg0)<<8 | vm.Word(arg1)<<4 | vm.Word(arg2)
}
