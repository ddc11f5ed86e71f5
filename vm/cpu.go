package vm

// Canonical stack window (spec §3): SP is an offset from StackBase, not
// an absolute address. SP == 0 is an empty stack.
const (
	StackBase Word = 0x800
	StackMax  Word = 0x800
)

// CPU is a single Solarium core: a register file plus the memory map
// it executes against. A CPU owns its MemoryMap exclusively — see §5,
// it is not safe to drive Step from more than one goroutine, though
// devices installed in the map may expose their own synchronization
// for a host goroutine that isn't concurrently inside Step.
type CPU struct {
	registers   registerFile
	memory      *MemoryMap
	resetVector Word

	interruptsEnabled bool
}

// NewCPU creates a CPU wired to memory, resetting to PC = resetVector.
// The caller is expected to have already installed every segment
// (including the stack's backing RAM) into memory before the first
// Step.
func NewCPU(memory *MemoryMap, resetVector Word) *CPU {
	cpu := &CPU{memory: memory, resetVector: resetVector}
	cpu.Reset()
	return cpu
}

// Reset performs a hard reset: every memory segment is restored to its
// post-reset contents (in registration order) and every register is
// zeroed before PC is loaded with the reset vector.
func (c *CPU) Reset() {
	c.memory.Reset()
	c.SoftReset()
}

// SoftReset zeros every register and loads PC with the reset vector,
// but leaves memory contents untouched.
func (c *CPU) SoftReset() {
	c.registers.reset()
	c.registers.set(RegPC, c.resetVector)
	c.interruptsEnabled = true
}

// GetRegister returns the current value of register index (0..15).
func (c *CPU) GetRegister(index int) Word {
	return c.registers.get(byte(index))
}

// SetRegister writes value into register index (0..15). Nothing stops
// host code from overwriting PC/SP/flags directly; only the assembled
// instruction stream is restricted by the assembler's own checks.
func (c *CPU) SetRegister(index int, value Word) {
	c.registers.set(byte(index), value)
}

// MemoryGet reads a word through the CPU's memory map.
func (c *CPU) MemoryGet(addr Word) (Word, error) {
	return c.memory.Get(addr)
}

// MemorySet writes a word through the CPU's memory map.
func (c *CPU) MemorySet(addr Word, value Word) error {
	return c.memory.Set(addr, value)
}

// MemoryInspect reads a word without any device side effect.
func (c *CPU) MemoryInspect(addr Word) (Word, error) {
	return c.memory.Inspect(addr)
}

func (c *CPU) pc() Word { return c.registers.get(RegPC) }
func (c *CPU) sp() Word { return c.registers.get(RegSP) }

func (c *CPU) setPC(v Word) { c.registers.set(RegPC, v) }
func (c *CPU) setSP(v Word) { c.registers.set(RegSP, v) }

// push writes value onto the stack, advancing SP. Per spec §3: push
// increments SP first, then stores at StackBase + SP - 1; SP growing
// past StackMax is a stack-overflow.
func (c *CPU) push(value Word) error {
	newSP := c.sp() + 1
	if newSP > StackMax {
		return ErrStackOverflow
	}
	if err := c.memory.Set(StackBase+newSP-1, value); err != nil {
		return err
	}
	c.setSP(newSP)
	return nil
}

// pop removes and returns the top of the stack. Popping an empty stack
// (SP == 0) is also a stack-overflow, sharing the kind with push
// overflow per spec §3/§7.
func (c *CPU) pop() (Word, error) {
	sp := c.sp()
	if sp == 0 {
		return 0, ErrStackOverflow
	}
	v, err := c.memory.Get(StackBase + sp - 1)
	if err != nil {
		return 0, err
	}
	c.setSP(sp - 1)
	return v, nil
}

// Step performs exactly one fetch-decode-execute cycle. On failure the
// CPU is left with PC unchanged, pointing at the faulting instruction,
// so a repeated Step re-fetches the same word and fails identically
// (spec §8 "fetch idempotence on error").
//
// Side effects within a single Step happen in this order (spec §5):
// operands are read, the result is computed, the destination is
// written, and finally PC is advanced. Any error aborts before the
// write and the PC advance.
func (c *CPU) Step() error {
	pc := c.pc()
	word, err := c.memory.Get(pc)
	if err != nil {
		return err
	}

	d := decode(word)
	pcIncrement := int32(1)

	switch d.opcode {
	case 0x0:
		pcIncrement, err = c.stepControl(d)
	case 0x1:
		err = c.stepLoadImmediate(d, true)
	case 0x2:
		err = c.stepLoadImmediate(d, false)
	case 0x3:
		err = c.stepLoadIndirect(d, pc)
	default:
		if d.opcode >= 0x4 && d.opcode <= 0xD {
			err = c.stepArithmetic(d)
		} else {
			err = ErrInvalidInstruction
		}
	}

	if err != nil {
		return err
	}

	c.setPC(Word(int32(c.pc()) + pcIncrement))
	return nil
}

// stepControl executes the opcode-0x0 family: stack/control/register
// dispatch nested behind the arg0/arg1/arg2 sub-fields (spec §4.1).
// It returns the PC increment to apply, since several of these forms
// set PC explicitly and require a zero increment.
func (c *CPU) stepControl(d decoded) (int32, error) {
	switch {
	case d.arg0 != 0:
		return c.stepTwoRegisterForm(d)
	case d.arg1 != 0:
		return c.stepOneRegisterForm(d)
	default:
		return c.stepZeroArgForm(d)
	}
}

func (c *CPU) stepTwoRegisterForm(d decoded) (int32, error) {
	regA := d.arg2
	regB := d.arg1

	switch d.arg0 {
	case 1: // jmpri
		return SignedImmediate(d.arg1, d.arg2), nil
	case 2: // ld reg_a, reg_b: reg_a <- mem[reg_b]
		addr := c.registers.get(regB)
		v, err := c.memory.Get(addr)
		if err != nil {
			return 0, err
		}
		c.registers.set(regA, v)
		return 1, nil
	case 3: // sav reg_a, reg_b: mem[reg_a] <- reg_b
		addr := c.registers.get(regA)
		if err := c.memory.Set(addr, c.registers.get(regB)); err != nil {
			return 0, err
		}
		return 1, nil
	case 4: // ldr: mem[reg_a] <- PC + reg_b
		addr := c.registers.get(regA)
		v := Word(int32(c.pc()) + int32(c.registers.get(regB)))
		if err := c.memory.Set(addr, v); err != nil {
			return 0, err
		}
		return 1, nil
	case 5: // savr: mem[PC + reg_a] <- reg_b
		addr := Word(int32(c.pc()) + int32(c.registers.get(regA)))
		if err := c.memory.Set(addr, c.registers.get(regB)); err != nil {
			return 0, err
		}
		return 1, nil
	case 6, 7, 8, 9: // jz, jzr, jgz, jgzr
		cond := c.registers.get(regB).Signed()
		shouldJump := (d.arg0 == 6 || d.arg0 == 7) && cond == 0
		shouldJump = shouldJump || ((d.arg0 == 8 || d.arg0 == 9) && cond > 0)
		relative := d.arg0 == 7 || d.arg0 == 9

		if !shouldJump {
			return 1, nil
		}
		if relative {
			return int32(c.registers.get(regA).Signed()), nil
		}
		c.setPC(c.registers.get(regA))
		return 0, nil
	default:
		return 0, ErrInvalidInstruction
	}
}

func (c *CPU) stepOneRegisterForm(d decoded) (int32, error) {
	reg := d.arg2

	switch d.arg1 {
	case 1: // jmp
		c.setPC(c.registers.get(reg))
		return 0, nil
	case 2: // jmpr
		return int32(c.registers.get(reg).Signed()), nil
	case 3: // push
		if err := c.push(c.registers.get(reg)); err != nil {
			return 0, err
		}
		return 1, nil
	case 4: // popr
		v, err := c.pop()
		if err != nil {
			return 0, err
		}
		c.registers.set(reg, v)
		return 1, nil
	case 5: // call: push every GP register in index order, then jump
		if int(c.sp())+NumRegisters-FirstGPRegister > int(StackMax) {
			return 0, ErrStackOverflow
		}
		for i := byte(FirstGPRegister); i < NumRegisters; i++ {
			if err := c.push(c.registers.get(i)); err != nil {
				return 0, err
			}
		}
		c.setPC(c.registers.get(reg))
		return 0, nil
	case 6: // int
		return 0, ErrInterruptsNotSupported
	default:
		return 0, ErrInvalidInstruction
	}
}

func (c *CPU) stepZeroArgForm(d decoded) (int32, error) {
	switch d.arg2 {
	case 0: // noop
		return 1, nil
	case 1: // inton
		c.interruptsEnabled = true
		return 1, nil
	case 2: // intoff
		c.interruptsEnabled = false
		return 1, nil
	case 3: // reset (soft)
		c.SoftReset()
		return 0, nil
	case 4: // pop (discard)
		if _, err := c.pop(); err != nil {
			return 0, err
		}
		return 1, nil
	case 5: // ret: pop every GP register in reverse index order
		if int(c.sp()) < NumRegisters-FirstGPRegister {
			return 0, ErrStackOverflow
		}
		for i := int(NumRegisters) - 1; i >= FirstGPRegister; i-- {
			v, err := c.pop()
			if err != nil {
				return 0, err
			}
			c.registers.set(byte(i), v)
		}
		return 1, nil
	default:
		return 0, ErrInvalidInstruction
	}
}

// stepLoadImmediate implements opcodes 0x1 (ldi, signed) and 0x2
// (ldui, unsigned): load an 8-bit immediate formed from arg0/arg1 into
// register arg2.
func (c *CPU) stepLoadImmediate(d decoded, signed bool) error {
	var value Word
	if signed {
		value = Word(SignedImmediate(d.arg0, d.arg1))
	} else {
		value = Word(UnsignedImmediate(d.arg0, d.arg1))
	}
	c.registers.set(d.arg2, value)
	return nil
}

// stepLoadIndirect implements opcode 0x3 (ldir): load the memory word
// at PC + signed immediate into register arg2.
func (c *CPU) stepLoadIndirect(d decoded, pc Word) error {
	offset := SignedImmediate(d.arg0, d.arg1)
	addr := Word(int32(pc) + offset)
	v, err := c.memory.Get(addr)
	if err != nil {
		return err
	}
	c.registers.set(d.arg2, v)
	return nil
}

// stepArithmetic implements opcodes 0x4..0xD. Inputs are read per
// spec §4.2: add/sub/and/or/xor/shl/shr operate on the unsigned view
// with wraparound, mul/div/mod operate on the signed view. Destination
// is register arg2; operands are registers arg1 (a) and arg0 (b).
func (c *CPU) stepArithmetic(d decoded) error {
	a := c.registers.get(d.arg1)
	b := c.registers.get(d.arg0)

	var result Word
	switch d.opcode {
	case 0x4: // add
		result = a + b
	case 0x5: // sub
		result = a - b
	case 0x6: // mul
		result = Word(a.Signed() * b.Signed())
	case 0x7: // div
		if b.Signed() == 0 {
			return ErrDivideByZero
		}
		result = Word(a.Signed() / b.Signed())
	case 0x8: // mod
		if b.Signed() == 0 {
			return ErrModByZero
		}
		result = Word(a.Signed() % b.Signed())
	case 0x9: // band
		result = a & b
	case 0xA: // bor
		result = a | b
	case 0xB: // bxor
		result = a ^ b
	case 0xC: // bsftl
		result = a << uint(b)
	case 0xD: // bsftr
		result = a >> uint(b)
	default:
		return ErrInvalidInstruction
	}

	c.registers.set(d.arg2, result)
	return nil
}
