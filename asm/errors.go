package asm

import "errors"

var (
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrOperandArity       = errors.New("wrong number of operands")
	ErrImmediateOverflow  = errors.New("immediate value out of range")
	ErrUnresolvedLabel    = errors.New("unresolved label")
	ErrDuplicateLabel     = errors.New("duplicate label")
	ErrSyntax             = errors.New("syntax error")
)
