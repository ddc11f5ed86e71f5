package vm

import (
	"errors"
	"testing"
)

func ldi(reg byte, value int8) Word {
	u := uint8(value)
	return instr(0x1, (u>>4)&0xF, u&0xF, reg)
}

func ldui(reg byte, value uint8) Word {
	return instr(0x2, (value>>4)&0xF, value&0xF, reg)
}

// add/sub/div/mod/bsftl all share opcode layout
// instr(opcode, regB, regA, dest): result = f(reg[regA], reg[regB]).
func add(dest, regA, regB byte) Word   { return instr(0x4, regB, regA, dest) }
func sub(dest, regA, regB byte) Word   { return instr(0x5, regB, regA, dest) }
func div(dest, regA, regB byte) Word   { return instr(0x7, regB, regA, dest) }
func mod(dest, regA, regB byte) Word   { return instr(0x8, regB, regA, dest) }
func bsftl(dest, regA, regB byte) Word { return instr(0xC, regB, regA, dest) }

func zeroArg(arg2 byte) Word            { return instr(0, 0, 0, arg2) }
func oneReg(sub, reg byte) Word         { return instr(0, 0, sub, reg) }
func twoReg(sub, regA, regB byte) Word  { return instr(0, sub, regB, regA) }

var (
	opNoop    = zeroArg(0)
	opReset   = zeroArg(3)
	opPopDisc = zeroArg(4)
	opRet     = zeroArg(5)
)

func opPush(reg byte) Word       { return oneReg(3, reg) }
func opPopR(reg byte) Word       { return oneReg(4, reg) }
func opCall(reg byte) Word       { return oneReg(5, reg) }
func opJmpR(reg byte) Word       { return oneReg(2, reg) }
func opLd(destA, srcB byte) Word { return twoReg(2, destA, srcB) }

func TestResetInvariant(t *testing.T) {
	cpu := newTestCPU([]Word{ldi(3, 5), opNoop})
	cpu.SetRegister(5, 0xBEEF)
	assert(t, cpu.Step() == nil, "ldi should succeed")

	cpu.Reset()

	assert(t, cpu.pc() == 0, "PC should be reset vector, got %d", cpu.pc())
	for i := 1; i < NumRegisters; i++ {
		assert(t, cpu.GetRegister(i) == 0, "register %d should be zero after reset, got %d", i, cpu.GetRegister(i))
	}
}

func TestFetchIdempotenceOnError(t *testing.T) {
	cpu := newTestCPU([]Word{ldi(3, 0), ldi(4, 5), div(5, 4, 3)})
	assert(t, cpu.Step() == nil, "ldi 3 should succeed")
	assert(t, cpu.Step() == nil, "ldi 4 should succeed")

	pcBefore := cpu.pc()
	err1 := cpu.Step()
	pcAfter1 := cpu.pc()
	err2 := cpu.Step()
	pcAfter2 := cpu.pc()

	assert(t, errors.Is(err1, ErrDivideByZero), "expected divide-by-zero, got %v", err1)
	assert(t, errors.Is(err2, ErrDivideByZero), "expected divide-by-zero again, got %v", err2)
	assert(t, pcBefore == pcAfter1 && pcAfter1 == pcAfter2, "PC should not move on repeated failing step")
}

func TestStackRoundTrip(t *testing.T) {
	cpu := newTestCPU([]Word{
		ldi(3, 1), ldi(4, 2), ldi(5, 3),
		opPush(3), opPush(4), opPush(5),
		opPopR(6), opPopR(7), opPopR(8),
	})
	for i := 0; i < 9; i++ {
		assert(t, cpu.Step() == nil, "step %d should succeed", i)
	}

	assert(t, cpu.GetRegister(6) == 3, "reg6 should be 3, got %d", cpu.GetRegister(6))
	assert(t, cpu.GetRegister(7) == 2, "reg7 should be 2, got %d", cpu.GetRegister(7))
	assert(t, cpu.GetRegister(8) == 1, "reg8 should be 1, got %d", cpu.GetRegister(8))
	assert(t, cpu.sp() == 0, "stack should be empty, SP=%d", cpu.sp())
}

func TestCallRetSymmetry(t *testing.T) {
	target := Word(3) // address of the ret below
	program := []Word{
		ldui(6, uint8(target)),
		opCall(6),
		opNoop,
		opRet,
	}
	cpu := newTestCPU(program)

	for i := FirstGPRegister; i < NumRegisters; i++ {
		cpu.SetRegister(i, Word(100+i))
	}

	assert(t, cpu.Step() == nil, "ldui should succeed")
	before := make([]Word, NumRegisters)
	for i := FirstGPRegister; i < NumRegisters; i++ {
		before[i] = cpu.GetRegister(i)
	}

	assert(t, cpu.Step() == nil, "call should succeed")
	assert(t, cpu.pc() == target, "PC should jump to call target, got %d", cpu.pc())

	assert(t, cpu.Step() == nil, "ret should succeed")
	assert(t, cpu.pc() == target+1, "PC after ret should be target+1, got %d", cpu.pc())

	for i := FirstGPRegister; i < NumRegisters; i++ {
		assert(t, cpu.GetRegister(i) == before[i], "register %d not restored: want %d got %d", i, before[i], cpu.GetRegister(i))
	}
}

func TestArithmeticWrapAdd(t *testing.T) {
	cpu := newTestCPU([]Word{ldi(3, -1), ldui(4, 1), add(5, 3, 4)})
	assert(t, cpu.Step() == nil, "ldi should succeed")
	assert(t, cpu.Step() == nil, "ldui should succeed")
	assert(t, cpu.Step() == nil, "add should succeed")
	assert(t, cpu.GetRegister(5) == 0x0000, "0xFFFF+1 should wrap to 0, got 0x%04X", cpu.GetRegister(5))
}

func TestArithmeticWrapSub(t *testing.T) {
	cpu := newTestCPU([]Word{ldui(3, 0), ldui(4, 1), sub(5, 3, 4)})
	assert(t, cpu.Step() == nil, "ldui should succeed")
	assert(t, cpu.Step() == nil, "ldui should succeed")
	assert(t, cpu.Step() == nil, "sub should succeed")
	assert(t, cpu.GetRegister(5) == 0xFFFF, "0-1 should wrap to 0xFFFF, got 0x%04X", cpu.GetRegister(5))
}

func TestSignedImmediateRange(t *testing.T) {
	cpu := newTestCPU([]Word{ldi(3, -128), ldi(4, 127)})
	assert(t, cpu.Step() == nil, "ldi -128 should succeed")
	assert(t, cpu.GetRegister(3).Signed() == -128, "expected -128, got %d", cpu.GetRegister(3).Signed())
	assert(t, cpu.Step() == nil, "ldi 127 should succeed")
	assert(t, cpu.GetRegister(4).Signed() == 127, "expected 127, got %d", cpu.GetRegister(4).Signed())
}

func TestSegmentDispatchHoleAndReadOnly(t *testing.T) {
	mem := NewMemoryMap()
	ro := NewReadOnlySegment(0, []Word{1, 2, 3})
	rw := NewReadWriteSegment(0x10, 4)
	assert(t, mem.Add(ro) == nil, "adding read-only segment should succeed")
	assert(t, mem.Add(rw) == nil, "adding read-write segment should succeed")

	err := mem.Set(0, 99)
	assert(t, errors.Is(err, ErrInvalidWrite), "writing to read-only segment should fail, got %v", err)

	_, err = mem.Get(8) // hole between 3 and 0x10
	assert(t, errors.Is(err, ErrInvalidAccess), "reading a hole should fail, got %v", err)
}

func TestDivideByZeroPointsAtFaultingInstruction(t *testing.T) {
	cpu := newTestCPU([]Word{ldi(3, 0), ldi(4, 5), div(5, 4, 3)})
	assert(t, cpu.Step() == nil, "ldi should succeed")
	assert(t, cpu.Step() == nil, "ldi should succeed")

	faultPC := cpu.pc()
	err := cpu.Step()
	assert(t, errors.Is(err, ErrDivideByZero), "expected divide-by-zero, got %v", err)
	assert(t, cpu.pc() == faultPC, "PC should remain at faulting instruction")
}

func TestModByZero(t *testing.T) {
	cpu := newTestCPU([]Word{ldi(3, 0), ldi(4, 5), mod(5, 4, 3)})
	assert(t, cpu.Step() == nil, "ldi should succeed")
	assert(t, cpu.Step() == nil, "ldi should succeed")
	err := cpu.Step()
	assert(t, errors.Is(err, ErrModByZero), "expected mod-by-zero, got %v", err)
}

func TestShiftByWordWidthProducesZero(t *testing.T) {
	cpu := newTestCPU([]Word{ldi(3, -1), ldui(4, 16), bsftl(5, 3, 4)})
	assert(t, cpu.Step() == nil, "ldi should succeed")
	assert(t, cpu.Step() == nil, "ldui should succeed")
	assert(t, cpu.Step() == nil, "bsftl should succeed")
	assert(t, cpu.GetRegister(5) == 0, "shift by >= 16 should produce 0, got 0x%04X", cpu.GetRegister(5))
}

func TestInterruptInstructionFails(t *testing.T) {
	cpu := newTestCPU([]Word{ldi(3, 0), oneReg(6, 3)})
	assert(t, cpu.Step() == nil, "ldi should succeed")
	err := cpu.Step()
	assert(t, errors.Is(err, ErrInterruptsNotSupported), "expected interrupts-not-supported, got %v", err)
}

func TestSoftResetPreservesMemory(t *testing.T) {
	cpu := newTestCPU([]Word{ldi(3, 5)})
	assert(t, cpu.MemorySet(0x100, 0xABCD) == nil, "memory set should succeed")

	cpu.SoftReset()

	assert(t, cpu.pc() == 0, "PC should return to reset vector")
	v, err := cpu.MemoryGet(0x100)
	assert(t, err == nil, "memory read should succeed")
	assert(t, v == 0xABCD, "soft reset must preserve memory, got 0x%04X", v)
}

func TestEndToEndArithmeticProgram(t *testing.T) {
	cpu := newTestCPU([]Word{
		ldi(3, 5), ldi(4, 7), add(5, 3, 4), opReset,
	})
	for i := 0; i < 4; i++ {
		assert(t, cpu.Step() == nil, "step %d should succeed", i)
	}
	assert(t, cpu.GetRegister(5) == 12, "expected register 5 == 12, got %d", cpu.GetRegister(5))
}

func TestPushPopEndsWithEmptyStack(t *testing.T) {
	cpu := newTestCPU([]Word{ldi(3, 1), opPush(3), opPopDisc})
	for i := 0; i < 3; i++ {
		assert(t, cpu.Step() == nil, "step %d should succeed", i)
	}
	assert(t, cpu.sp() == 0, "expected empty stack, got SP=%d", cpu.sp())
}

func TestStackOverflowOnEmptyPop(t *testing.T) {
	cpu := newTestCPU([]Word{opPopDisc})
	err := cpu.Step()
	assert(t, errors.Is(err, ErrStackOverflow), "popping empty stack should be stack-overflow, got %v", err)
}

// TestStackOverflowWhenFull drives a tiny push/jump-back loop so the
// program stays a handful of words, well clear of the stack window,
// while pushing StackMax+1 times to reach the overflow boundary.
func TestStackOverflowWhenFull(t *testing.T) {
	cpu := newTestCPU([]Word{
		ldi(3, 1),  // r3 = 1
		ldi(7, -1), // r7 = -1, the loop-back displacement
		opPush(3),  // loop: push r3
		opJmpR(7),  // PC += r7 (back to the push above)
	})
	assert(t, cpu.Step() == nil, "ldi r3 should succeed")
	assert(t, cpu.Step() == nil, "ldi r7 should succeed")

	var err error
	for i := Word(0); i < StackMax; i++ {
		err = cpu.Step() // push
		assert(t, err == nil, "push %d should succeed", i)
		err = cpu.Step() // jmpr back to push
		assert(t, err == nil, "jmpr %d should succeed", i)
	}

	err = cpu.Step() // one push past StackMax
	assert(t, errors.Is(err, ErrStackOverflow), "pushing past STACK_MAX should overflow, got %v", err)
}

func TestSerialDeviceReadAndDequeue(t *testing.T) {
	mem := NewMemoryMap()
	ram := NewReadWriteSegment(0, int(StackBase)+int(StackMax))
	assert(t, mem.Add(ram) == nil, "adding ram should succeed")

	base := Word(0x1000)
	dev := NewSerialDevice(base)
	assert(t, mem.Add(dev) == nil, "adding device should succeed")

	cpu := NewCPU(mem, 0) // resets memory, so feed input afterwards
	dev.Feed([]byte{'A'})

	cpu.SetRegister(4, base+1) // offset 1: pop one input character
	assert(t, cpu.MemorySet(0, opLd(3, 4)) == nil, "writing ld should succeed") // r3 <- mem[r4]
	assert(t, cpu.Step() == nil, "ld should succeed")

	assert(t, cpu.GetRegister(3) == Word('A'), "expected 'A', got %v", cpu.GetRegister(3))
	assert(t, dev.PendingInput() == 0, "input queue should be drained")
}
