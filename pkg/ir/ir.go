// Package ir is the linear three-address code produced from a checked tree.
// Every opcode names both the operation and the operand type, and every
// virtual register is written by exactly one instruction.
package ir

import (
	"fmt"
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

type Opcode int

const (
	OpMovI Opcode = iota
	OpMovF
	OpMovB
	OpVarI
	OpVarF
	OpVarB
	OpLoadI
	OpLoadF
	OpLoadB
	OpStoreI
	OpStoreF
	OpStoreB
	OpAddI
	OpAddF
	OpSubI
	OpSubF
	OpMulI
	OpMulF
	OpDivI
	OpDivF
	OpPrintI
	OpPrintF
	OpPrintB
	opcodeCount
)

var mnemonics = [...]string{
	OpMovI: "MOVI", OpMovF: "MOVF", OpMovB: "MOVB",
	OpVarI: "VARI", OpVarF: "VARF", OpVarB: "VARB",
	OpLoadI: "LOADI", OpLoadF: "LOADF", OpLoadB: "LOADB",
	OpStoreI: "STOREI", OpStoreF: "STOREF", OpStoreB: "STOREB",
	OpAddI: "ADDI", OpAddF: "ADDF",
	OpSubI: "SUBI", OpSubF: "SUBF",
	OpMulI: "MULI", OpMulF: "MULF",
	OpDivI: "DIVI", OpDivF: "DIVF",
	OpPrintI: "PRINTI", OpPrintF: "PRINTF", OpPrintB: "PRINTB",
}

func (op Opcode) String() string {
	if op >= 0 && op < opcodeCount {
		return mnemonics[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// shape describes the operands an opcode takes.
type shape int

const (
	shapeMov   shape = iota // literal, dest
	shapeVar                // name
	shapeLoad               // name, dest
	shapeStore              // register, name
	shapeArith              // register, register, dest
	shapePrint              // register
)

func (op Opcode) shape() shape {
	switch op {
	case OpMovI, OpMovF, OpMovB:
		return shapeMov
	case OpVarI, OpVarF, OpVarB:
		return shapeVar
	case OpLoadI, OpLoadF, OpLoadB:
		return shapeLoad
	case OpStoreI, OpStoreF, OpStoreB:
		return shapeStore
	case OpPrintI, OpPrintF, OpPrintB:
		return shapePrint
	}
	return shapeArith
}

// HasDest reports whether the opcode writes a register.
func (op Opcode) HasDest() bool {
	switch op.shape() {
	case shapeMov, shapeLoad, shapeArith:
		return true
	}
	return false
}

type Operand interface {
	isOperand()
	String() string
}

type Int int64
type Float float64
type Name string

// Register is a virtual register. The zero value means "no register".
type Register int

func (Int) isOperand()      {}
func (Float) isOperand()    {}
func (Name) isOperand()     {}
func (Register) isOperand() {}

func (i Int) String() string  { return strconv.FormatInt(int64(i), 10) }
func (n Name) String() string { return string(n) }
func (r Register) String() string {
	if r == 0 {
		return "-"
	}
	return "R" + strconv.Itoa(int(r))
}

// String always includes a decimal point or exponent so the literal reads
// as a float.
func (f Float) String() string {
	s := strconv.FormatFloat(float64(f), 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

type Instruction struct {
	Op   Opcode
	Args []Operand
	Dest Register
}

// Operands returns the arguments followed by the destination, if any.
func (in Instruction) Operands() []Operand {
	if in.Dest == 0 {
		return in.Args
	}
	out := make([]Operand, 0, len(in.Args)+1)
	out = append(out, in.Args...)
	return append(out, in.Dest)
}

func (in Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())
	for _, arg := range in.Operands() {
		sb.WriteByte(' ')
		sb.WriteString(arg.String())
	}
	return sb.String()
}

// Program is the ordered instruction list of one compilation unit.
type Program struct {
	Instrs       []Instruction
	NumRegisters int
}

func (p *Program) Emit(in Instruction) { p.Instrs = append(p.Instrs, in) }

func (p *Program) Len() int { return len(p.Instrs) }

func (p *Program) String() string {
	var sb strings.Builder
	for _, in := range p.Instrs {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Validate checks operand shapes, that each register is written once, and
// that each register is written before it is read.
func (p *Program) Validate() error {
	defined := make(map[Register]int)
	use := func(idx int, r Register) error {
		if _, ok := defined[r]; !ok {
			return errors.New("instruction %d (%v): %v used before definition", idx, p.Instrs[idx], r)
		}
		return nil
	}

	for i, in := range p.Instrs {
		if in.Op < 0 || in.Op >= opcodeCount {
			return errors.New("instruction %d: unknown opcode %d", i, int(in.Op))
		}

		var want []string
		switch in.Op.shape() {
		case shapeMov:
			want = []string{"literal"}
		case shapeVar:
			want = []string{"name"}
		case shapeLoad:
			want = []string{"name"}
		case shapeStore:
			want = []string{"register", "name"}
		case shapeArith:
			want = []string{"register", "register"}
		case shapePrint:
			want = []string{"register"}
		}
		if len(in.Args) != len(want) {
			return errors.New("instruction %d (%v): want %d operands, got %d", i, in, len(want), len(in.Args))
		}
		for j, arg := range in.Args {
			switch a := arg.(type) {
			case Register:
				if want[j] != "register" {
					return errors.New("instruction %d (%v): operand %d must be a %s", i, in, j, want[j])
				}
				if err := use(i, a); err != nil {
					return err
				}
			case Name:
				if want[j] != "name" {
					return errors.New("instruction %d (%v): operand %d must be a %s", i, in, j, want[j])
				}
			case Int, Float:
				if want[j] != "literal" {
					return errors.New("instruction %d (%v): operand %d must be a %s", i, in, j, want[j])
				}
			default:
				return errors.New("instruction %d (%v): bad operand %T", i, in, arg)
			}
		}

		switch {
		case in.Op.HasDest() && in.Dest == 0:
			return errors.New("instruction %d (%v): missing destination", i, in)
		case !in.Op.HasDest() && in.Dest != 0:
			return errors.New("instruction %d (%v): unexpected destination", i, in)
		case in.Dest != 0:
			if prev, ok := defined[in.Dest]; ok {
				return errors.New("instruction %d (%v): %v already written by instruction %d", i, in, in.Dest, prev)
			}
			defined[in.Dest] = i
		}
	}
	return nil
}
