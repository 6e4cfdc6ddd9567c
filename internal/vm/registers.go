package vm

import "math"

// RegisterFile holds every bank of processor state the interpreter reads
// and writes: the 32 general-purpose registers, HI/LO, the 32 FPU slots
// (pairable for double precision), the 8 FPU condition flags, and the
// four CP0 exception registers.
type RegisterFile struct {
	gpr [32]uint32
	hi  uint32
	lo  uint32
	fpr [32]uint32 // raw bit patterns; float64 reads pair two adjacent slots
	fcc [8]bool

	Vaddr  uint32
	Status uint32
	Cause  uint32
	Epc    uint32
}

// ReadGPR returns the value of general-purpose register i (0..31).
func (r *RegisterFile) ReadGPR(i int) uint32 { return r.gpr[i&0x1f] }

// WriteGPR writes v to register i; writes to register 0 are discarded.
func (r *RegisterFile) WriteGPR(i int, v uint32) {
	if i&0x1f == 0 {
		return
	}
	r.gpr[i&0x1f] = v
}

func (r *RegisterFile) ReadHI() uint32     { return r.hi }
func (r *RegisterFile) WriteHI(v uint32)   { r.hi = v }
func (r *RegisterFile) ReadLO() uint32     { return r.lo }
func (r *RegisterFile) WriteLO(v uint32)   { r.lo = v }

// ReadFCC returns FPU condition flag cc (0..7).
func (r *RegisterFile) ReadFCC(cc int) bool { return r.fcc[cc&0x7] }

// WriteFCC sets FPU condition flag cc.
func (r *RegisterFile) WriteFCC(cc int, v bool) { r.fcc[cc&0x7] = v }

// ReadU32F returns the raw bit pattern of FPU register i (mfc1).
func (r *RegisterFile) ReadU32F(i int) uint32 { return r.fpr[i&0x1f] }

// WriteU32F sets the raw bit pattern of FPU register i (mtc1).
func (r *RegisterFile) WriteU32F(i int, bits uint32) { r.fpr[i&0x1f] = bits }

// ReadF32 reinterprets FPU register i as a single-precision float.
func (r *RegisterFile) ReadF32(i int) float32 { return math.Float32frombits(r.fpr[i&0x1f]) }

// WriteF32 stores v into FPU register i as a single-precision float.
func (r *RegisterFile) WriteF32(i int, v float32) { r.fpr[i&0x1f] = math.Float32bits(v) }

// ReadF64 reinterprets the pair (i, i+1) as a double-precision float; i
// must be even.
func (r *RegisterFile) ReadF64(i int) (float64, bool) {
	if i&1 != 0 {
		return 0, false
	}
	bits := uint64(r.fpr[i&0x1f]) | uint64(r.fpr[(i+1)&0x1f])<<32
	return math.Float64frombits(bits), true
}

// WriteF64 stores v into the pair (i, i+1); i must be even.
func (r *RegisterFile) WriteF64(i int, v float64) bool {
	if i&1 != 0 {
		return false
	}
	bits := math.Float64bits(v)
	r.fpr[i&0x1f] = uint32(bits)
	r.fpr[(i+1)&0x1f] = uint32(bits >> 32)
	return true
}

// CP0 register indices, matching the lexer's $vaddr/$status/$cause/$epc
// namespace.
const (
	CP0Vaddr = iota
	CP0Status
	CP0Cause
	CP0Epc
)

// ReadCP0 returns one of the four exception registers.
func (r *RegisterFile) ReadCP0(i int) (uint32, bool) {
	switch i {
	case CP0Vaddr:
		return r.Vaddr, true
	case CP0Status:
		return r.Status, true
	case CP0Cause:
		return r.Cause, true
	case CP0Epc:
		return r.Epc, true
	default:
		return 0, false
	}
}

// WriteCP0 sets one of the four exception registers.
func (r *RegisterFile) WriteCP0(i int, v uint32) bool {
	switch i {
	case CP0Vaddr:
		r.Vaddr = v
	case CP0Status:
		r.Status = v
	case CP0Cause:
		r.Cause = v
	case CP0Epc:
		r.Epc = v
	default:
		return false
	}
	return true
}
