package vm

import "errors"

// Sentinel errors returned by Step and the memory/device layer. Compare
// against these with errors.Is; Step never panics.
var (
	ErrInvalidAccess          = errors.New("invalid memory access")
	ErrInvalidWrite           = errors.New("invalid memory write")
	ErrStackOverflow          = errors.New("stack overflow")
	ErrDivideByZero           = errors.New("divide by zero")
	ErrModByZero              = errors.New("mod by zero")
	ErrInterruptsNotSupported = errors.New("interrupts not supported")
	ErrInvalidInstruction     = errors.New("invalid instruction")
	ErrOverlappingSegment     = errors.New("overlapping memory segment")
)
