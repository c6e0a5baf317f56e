package cpu

// execute decodes and runs one base-table instruction, or dispatches to the
// CB-prefixed table when opcode is 0xCB. This is the only switch in the
// package that dispatches on instruction kind; every opcode's actual timing
// falls out of the bus reads/writes/delays it performs rather than being
// computed separately from the table's documented cycle counts.
func (c *CPU) execute(opcode uint8) {
	if opcode == 0xCB {
		c.executeCB(c.fetchByte())
		return
	}

	ins := baseTable[opcode]
	switch ins.kind {
	case kNOP:

	case kLD8:
		c.set8(ins.arg>>3&7, c.get8(ins.arg&7))
	case kLD8Imm:
		c.set8(ins.arg, c.fetchByte())
	case kLDMemHLImm:
		c.bus.WriteByte(c.hl(), c.fetchByte())
	case kLDMemRR:
		c.bus.WriteByte(c.pairSP(ins.arg), c.A)
	case kLDRMemRR:
		c.A = c.bus.ReadByte(c.pairSP(ins.arg))
	case kLDMemHLIncA:
		c.bus.WriteByte(c.hl(), c.A)
		c.setHL(c.hl() + 1)
	case kLDMemHLDecA:
		c.bus.WriteByte(c.hl(), c.A)
		c.setHL(c.hl() - 1)
	case kLDAMemHLInc:
		c.A = c.bus.ReadByte(c.hl())
		c.setHL(c.hl() + 1)
	case kLDAMemHLDec:
		c.A = c.bus.ReadByte(c.hl())
		c.setHL(c.hl() - 1)
	case kLD16Imm:
		c.setPairSP(ins.arg, c.fetchWord())
	case kLDMemA16SP:
		addr := c.fetchWord()
		c.bus.WriteByte(addr, uint8(c.SP))
		c.bus.WriteByte(addr+1, uint8(c.SP>>8))
	case kLDSPHL:
		c.SP = c.hl()
		c.delay()
	case kLDHLSPR8:
		d := int8(c.fetchByte())
		c.setHL(c.addSPSigned(c.SP, d))
		c.delay()
	case kLDAMemA16:
		c.A = c.bus.ReadByte(c.fetchWord())
	case kLDMemA16A:
		c.bus.WriteByte(c.fetchWord(), c.A)
	case kLDHA8A:
		c.bus.WriteByte(0xFF00+uint16(c.fetchByte()), c.A)
	case kLDHAA8:
		c.A = c.bus.ReadByte(0xFF00 + uint16(c.fetchByte()))
	case kLDHCA:
		c.bus.WriteByte(0xFF00+uint16(c.C), c.A)
	case kLDHAC:
		c.A = c.bus.ReadByte(0xFF00 + uint16(c.C))

	case kPush:
		c.delay()
		c.push16(c.pairAF(ins.arg))
	case kPop:
		c.setPairAF(ins.arg, c.pop16())

	case kInc8:
		c.set8(ins.arg, c.inc8(c.get8(ins.arg)))
	case kDec8:
		c.set8(ins.arg, c.dec8(c.get8(ins.arg)))
	case kInc16:
		c.delay()
		c.setPairSP(ins.arg, c.pairSP(ins.arg)+1)
	case kDec16:
		c.delay()
		c.setPairSP(ins.arg, c.pairSP(ins.arg)-1)
	case kAddHL16:
		c.delay()
		c.addHL16(c.pairSP(ins.arg))
	case kAddSPR8:
		d := int8(c.fetchByte())
		c.SP = c.addSPSigned(c.SP, d)
		c.delay()
		c.delay()

	case kAlu8Reg:
		c.aluOp(ins.arg>>3&7, c.get8(ins.arg&7))
	case kAlu8Imm:
		c.aluOp(ins.arg, c.fetchByte())

	case kRLCA:
		c.A = c.rlc(c.A, false)
	case kRLA:
		c.A = c.rl(c.A, false)
	case kRRCA:
		c.A = c.rrc(c.A, false)
	case kRRA:
		c.A = c.rrv(c.A, false)
	case kDAA:
		c.daa()
	case kCPL:
		c.cpl()
	case kSCF:
		c.scf()
	case kCCF:
		c.ccf()

	case kJP:
		addr := c.fetchWord()
		c.PC = addr
		c.delay()
	case kJPCond:
		addr := c.fetchWord()
		if c.conditionTrue(ins.arg) {
			c.PC = addr
			c.delay()
		}
	case kJPHL:
		c.PC = c.hl()
	case kJR:
		d := int8(c.fetchByte())
		c.PC = uint16(int32(c.PC) + int32(d))
		c.delay()
	case kJRCond:
		d := int8(c.fetchByte())
		if c.conditionTrue(ins.arg) {
			c.PC = uint16(int32(c.PC) + int32(d))
			c.delay()
		}
	case kCall:
		addr := c.fetchWord()
		c.delay()
		c.push16(c.PC)
		c.PC = addr
	case kCallCond:
		addr := c.fetchWord()
		if c.conditionTrue(ins.arg) {
			c.delay()
			c.push16(c.PC)
			c.PC = addr
		}
	case kRet:
		c.PC = c.pop16()
		c.delay()
	case kRetCond:
		c.delay()
		if c.conditionTrue(ins.arg) {
			c.PC = c.pop16()
			c.delay()
		}
	case kRetI:
		c.PC = c.pop16()
		c.delay()
		c.bus.IRQ.EnableImmediate()
	case kRst:
		c.delay()
		c.push16(c.PC)
		c.PC = uint16(ins.arg)

	case kHalt:
		c.halt()
	case kStop:
		c.fetchByte() // STOP's mandatory second byte, conventionally 0x00
		c.stop()
	case kDI:
		c.bus.IRQ.Disable()
	case kEI:
		c.bus.IRQ.RequestEnableDelayed()

	case kIllegal:
		// Real hardware locks the bus up permanently; no commercial ROM
		// executes one deliberately, so we simply treat it as a one-cycle
		// no-op rather than modelling the lockup.
	}
}

// executeCB decodes and runs one CB-prefixed instruction. BIT doesn't write
// its operand back, which is also why it costs one less M-cycle than the
// other (HL) forms on real hardware: get8(6) ticks the read, but there is
// no matching set8(6) write.
func (c *CPU) executeCB(op uint8) {
	ins := cbTable[op]
	v := c.get8(ins.reg)

	switch ins.kind {
	case cbBIT:
		c.bit(ins.bit, v)
		return
	case cbRES:
		c.set8(ins.reg, v&^(1<<ins.bit))
		return
	case cbSET:
		c.set8(ins.reg, v|(1<<ins.bit))
		return
	}

	var result uint8
	switch ins.kind {
	case cbRLC:
		result = c.rlc(v, true)
	case cbRRC:
		result = c.rrc(v, true)
	case cbRL:
		result = c.rl(v, true)
	case cbRR:
		result = c.rrv(v, true)
	case cbSLA:
		result = c.sla(v)
	case cbSRA:
		result = c.sra(v)
	case cbSWAP:
		result = c.swap(v)
	case cbSRL:
		result = c.srl(v)
	}
	c.set8(ins.reg, result)
}

// aluOp applies one of the eight ADD/ADC/SUB/SBC/AND/XOR/OR/CP operations
// (the same ordering the opcode map uses for both the register and
// immediate forms) against A and v.
func (c *CPU) aluOp(op uint8, v uint8) {
	switch op {
	case 0:
		c.A = c.add8(c.A, v, false)
	case 1:
		c.A = c.add8(c.A, v, true)
	case 2:
		c.A = c.sub8(c.A, v, false)
	case 3:
		c.A = c.sub8(c.A, v, true)
	case 4:
		c.A = c.and8(c.A, v)
	case 5:
		c.A = c.xor8(c.A, v)
	case 6:
		c.A = c.or8(c.A, v)
	case 7:
		c.cp8(c.A, v)
	}
}

// conditionTrue evaluates the NZ/Z/NC/C condition codes used by the
// conditional JR/JP/CALL/RET families.
func (c *CPU) conditionTrue(cc uint8) bool {
	switch cc {
	case 0:
		return !c.flag(FlagZ)
	case 1:
		return c.flag(FlagZ)
	case 2:
		return !c.flag(FlagC)
	case 3:
		return c.flag(FlagC)
	}
	return false
}

// get8/set8 resolve the standard 3-bit register encoding (B,C,D,E,H,L,(HL),A)
// shared by LD r,r', the ALU family, INC/DEC r, and every CB-prefixed
// instruction. Index 6, (HL), goes through the bus and so carries its own
// access timing.
func (c *CPU) get8(idx uint8) uint8 {
	switch idx {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.bus.ReadByte(c.hl())
	default:
		return c.A
	}
}

func (c *CPU) set8(idx uint8, v uint8) {
	switch idx {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.bus.WriteByte(c.hl(), v)
	default:
		c.A = v
	}
}

// pairSP/setPairSP resolve the BC,DE,HL,SP register-pair encoding used by LD
// rr,d16, INC/DEC rr, and ADD HL,rr.
func (c *CPU) pairSP(idx uint8) uint16 {
	switch idx {
	case 0:
		return c.bc()
	case 1:
		return c.de()
	case 2:
		return c.hl()
	default:
		return c.SP
	}
}

func (c *CPU) setPairSP(idx uint8, v uint16) {
	switch idx {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.SP = v
	}
}

// pairAF/setPairAF resolve the BC,DE,HL,AF register-pair encoding used by
// PUSH and POP.
func (c *CPU) pairAF(idx uint8) uint16 {
	switch idx {
	case 0:
		return c.bc()
	case 1:
		return c.de()
	case 2:
		return c.hl()
	default:
		return c.af()
	}
}

func (c *CPU) setPairAF(idx uint8, v uint16) {
	switch idx {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.setAF(v)
	}
}
