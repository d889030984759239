package wazero

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"xdao.co/zkview/codec"
)

type immKind uint8

const (
	immNone immKind = iota
	immBlock
	immIndex
	immBrTable
	immFunc
	immCallIndirect
	immSelectT
	immMemarg
	immMemory
	immI32
	immI64
	immF32
	immF64
	immRefType
	immPair
	immMemInit
	immMemPair
)

type instrKind uint8

const (
	kindPlain instrKind = iota
	kindBlock
	kindIf
	kindElse
	kindEnd
)

// opInfo describes an opcode. pops and pushes are -1 when the stack effect
// depends on context; such instructions are never folded into an operand.
type opInfo struct {
	name         string
	imm          immKind
	kind         instrKind
	pops, pushes int
	align        uint32 // natural alignment exponent of memory accesses
}

var (
	ops   [256]*opInfo
	opsFC = map[uint32]*opInfo{}
)

func op(code byte, name string, imm immKind, pops, pushes int) *opInfo {
	o := &opInfo{name: name, imm: imm, pops: pops, pushes: pushes}
	ops[code] = o
	return o
}

func unary(base byte, prefix string, names ...string) {
	for i, n := range names {
		op(base+byte(i), prefix+n, immNone, 1, 1)
	}
}

func binaryOps(base byte, prefix string, names ...string) {
	for i, n := range names {
		op(base+byte(i), prefix+n, immNone, 2, 1)
	}
}

func init() {
	op(0x00, "unreachable", immNone, -1, -1)
	op(0x01, "nop", immNone, 0, 0)
	op(0x02, "block", immBlock, -1, -1).kind = kindBlock
	op(0x03, "loop", immBlock, -1, -1).kind = kindBlock
	op(0x04, "if", immBlock, -1, -1).kind = kindIf
	op(0x05, "else", immNone, -1, -1).kind = kindElse
	op(0x0b, "end", immNone, -1, -1).kind = kindEnd
	op(0x0c, "br", immIndex, -1, -1)
	op(0x0d, "br_if", immIndex, -1, -1)
	op(0x0e, "br_table", immBrTable, -1, -1)
	op(0x0f, "return", immNone, -1, -1)
	op(0x10, "call", immFunc, -1, -1)
	op(0x11, "call_indirect", immCallIndirect, -1, -1)
	op(0x1a, "drop", immNone, 1, 0)
	op(0x1b, "select", immNone, 3, 1)
	op(0x1c, "select", immSelectT, 3, 1)
	op(0x20, "local.get", immIndex, 0, 1)
	op(0x21, "local.set", immIndex, 1, 0)
	op(0x22, "local.tee", immIndex, 1, 1)
	op(0x23, "global.get", immIndex, 0, 1)
	op(0x24, "global.set", immIndex, 1, 0)
	op(0x25, "table.get", immIndex, 1, 1)
	op(0x26, "table.set", immIndex, 2, 0)

	for i, l := range []struct {
		name  string
		align uint32
	}{
		{"i32.load", 2}, {"i64.load", 3}, {"f32.load", 2}, {"f64.load", 3},
		{"i32.load8_s", 0}, {"i32.load8_u", 0}, {"i32.load16_s", 1}, {"i32.load16_u", 1},
		{"i64.load8_s", 0}, {"i64.load8_u", 0}, {"i64.load16_s", 1}, {"i64.load16_u", 1},
		{"i64.load32_s", 2}, {"i64.load32_u", 2},
	} {
		op(0x28+byte(i), l.name, immMemarg, 1, 1).align = l.align
	}
	for i, s := range []struct {
		name  string
		align uint32
	}{
		{"i32.store", 2}, {"i64.store", 3}, {"f32.store", 2}, {"f64.store", 3},
		{"i32.store8", 0}, {"i32.store16", 1},
		{"i64.store8", 0}, {"i64.store16", 1}, {"i64.store32", 2},
	} {
		op(0x36+byte(i), s.name, immMemarg, 2, 0).align = s.align
	}
	op(0x3f, "memory.size", immMemory, 0, 1)
	op(0x40, "memory.grow", immMemory, 1, 1)
	op(0x41, "i32.const", immI32, 0, 1)
	op(0x42, "i64.const", immI64, 0, 1)
	op(0x43, "f32.const", immF32, 0, 1)
	op(0x44, "f64.const", immF64, 0, 1)

	cmpInt := []string{"eq", "ne", "lt_s", "lt_u", "gt_s", "gt_u", "le_s", "le_u", "ge_s", "ge_u"}
	cmpFloat := []string{"eq", "ne", "lt", "gt", "le", "ge"}
	arithInt := []string{"add", "sub", "mul", "div_s", "div_u", "rem_s", "rem_u", "and", "or", "xor", "shl", "shr_s", "shr_u", "rotl", "rotr"}
	unaryFloat := []string{"abs", "neg", "ceil", "floor", "trunc", "nearest", "sqrt"}
	arithFloat := []string{"add", "sub", "mul", "div", "min", "max", "copysign"}

	unary(0x45, "i32.", "eqz")
	binaryOps(0x46, "i32.", cmpInt...)
	unary(0x50, "i64.", "eqz")
	binaryOps(0x51, "i64.", cmpInt...)
	binaryOps(0x5b, "f32.", cmpFloat...)
	binaryOps(0x61, "f64.", cmpFloat...)
	unary(0x67, "i32.", "clz", "ctz", "popcnt")
	binaryOps(0x6a, "i32.", arithInt...)
	unary(0x79, "i64.", "clz", "ctz", "popcnt")
	binaryOps(0x7c, "i64.", arithInt...)
	unary(0x8b, "f32.", unaryFloat...)
	binaryOps(0x92, "f32.", arithFloat...)
	unary(0x99, "f64.", unaryFloat...)
	binaryOps(0xa0, "f64.", arithFloat...)
	unary(0xa7, "",
		"i32.wrap_i64", "i32.trunc_f32_s", "i32.trunc_f32_u", "i32.trunc_f64_s", "i32.trunc_f64_u",
		"i64.extend_i32_s", "i64.extend_i32_u", "i64.trunc_f32_s", "i64.trunc_f32_u", "i64.trunc_f64_s", "i64.trunc_f64_u",
		"f32.convert_i32_s", "f32.convert_i32_u", "f32.convert_i64_s", "f32.convert_i64_u", "f32.demote_f64",
		"f64.convert_i32_s", "f64.convert_i32_u", "f64.convert_i64_s", "f64.convert_i64_u", "f64.promote_f32",
		"i32.reinterpret_f32", "i64.reinterpret_f64", "f32.reinterpret_i32", "f64.reinterpret_i64",
		"i32.extend8_s", "i32.extend16_s", "i64.extend8_s", "i64.extend16_s", "i64.extend32_s")

	op(0xd0, "ref.null", immRefType, 0, 1)
	op(0xd1, "ref.is_null", immNone, 1, 1)
	op(0xd2, "ref.func", immFunc, 0, 1)

	for i, n := range []string{
		"i32.trunc_sat_f32_s", "i32.trunc_sat_f32_u", "i32.trunc_sat_f64_s", "i32.trunc_sat_f64_u",
		"i64.trunc_sat_f32_s", "i64.trunc_sat_f32_u", "i64.trunc_sat_f64_s", "i64.trunc_sat_f64_u",
	} {
		opsFC[uint32(i)] = &opInfo{name: n, pops: 1, pushes: 1}
	}
	opsFC[8] = &opInfo{name: "memory.init", imm: immMemInit, pops: 3}
	opsFC[9] = &opInfo{name: "data.drop", imm: immIndex}
	opsFC[10] = &opInfo{name: "memory.copy", imm: immMemPair, pops: 3}
	opsFC[11] = &opInfo{name: "memory.fill", imm: immMemory, pops: 3}
	opsFC[12] = &opInfo{name: "table.init", imm: immPair, pops: 3}
	opsFC[13] = &opInfo{name: "elem.drop", imm: immIndex}
	opsFC[14] = &opInfo{name: "table.copy", imm: immPair, pops: 3}
	opsFC[15] = &opInfo{name: "table.grow", imm: immIndex, pops: 2, pushes: 1}
	opsFC[16] = &opInfo{name: "table.size", imm: immIndex, pushes: 1}
	opsFC[17] = &opInfo{name: "table.fill", imm: immIndex, pops: 3}
}

type instr struct {
	text         string
	kind         instrKind
	pops, pushes int
}

// decode turns a function body into instructions, without the body's
// final end.
func (m *module) decode(code []byte, opts codec.Options) ([]instr, error) {
	r := &reader{b: code}
	var out []instr
	for !r.done() {
		c, err := r.byte()
		if err != nil {
			return nil, err
		}
		o := ops[c]
		if c == 0xfc {
			sub, err := r.u32()
			if err != nil {
				return nil, err
			}
			if o = opsFC[sub]; o == nil {
				return nil, fmt.Errorf("unsupported opcode 0xfc %d", sub)
			}
		}
		if o == nil {
			return nil, fmt.Errorf("unsupported opcode 0x%02x", c)
		}
		in := instr{text: o.name, kind: o.kind, pops: o.pops, pushes: o.pushes}
		imm, err := m.immediate(r, o, &in, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.name, err)
		}
		if imm != "" {
			in.text += " " + imm
		}
		out = append(out, in)
	}
	if len(out) == 0 || out[len(out)-1].kind != kindEnd {
		return nil, errShort
	}
	return out[:len(out)-1], nil
}

func (m *module) immediate(r *reader, o *opInfo, in *instr, opts codec.Options) (string, error) {
	switch o.imm {
	case immBlock:
		v, err := r.sleb(33)
		if err != nil {
			return "", err
		}
		switch {
		case v == -0x40:
			in.pushes = 0
			return "", nil
		case v < 0:
			in.pushes = 1
			return "(result " + valType(byte(v&0x7f)) + ")", nil
		default:
			in.pushes = -1
			return fmt.Sprintf("(type %d)", v), nil
		}
	case immIndex:
		v, err := r.u32()
		return strconv.FormatUint(uint64(v), 10), err
	case immBrTable:
		n, err := r.count()
		if err != nil {
			return "", err
		}
		labels := make([]string, 0, n+1)
		for i := uint32(0); i <= n; i++ {
			v, err := r.u32()
			if err != nil {
				return "", err
			}
			labels = append(labels, strconv.FormatUint(uint64(v), 10))
		}
		return strings.Join(labels, " "), nil
	case immFunc:
		idx, err := r.u32()
		if err != nil {
			return "", err
		}
		if o.name == "call" {
			if _, ft, ok := m.typeOf(idx); ok {
				in.pops, in.pushes = len(ft.params), len(ft.results)
			}
		}
		return m.funcRef(idx, opts), nil
	case immCallIndirect:
		ti, err := r.u32()
		if err != nil {
			return "", err
		}
		table, err := r.u32()
		if err != nil {
			return "", err
		}
		if int(ti) < len(m.types) {
			in.pops, in.pushes = len(m.types[ti].params)+1, len(m.types[ti].results)
		}
		if table != 0 {
			return fmt.Sprintf("%d (type %d)", table, ti), nil
		}
		return fmt.Sprintf("(type %d)", ti), nil
	case immSelectT:
		ts, err := r.vec()
		if err != nil {
			return "", err
		}
		return "(result" + valTypes(ts) + ")", nil
	case immMemarg:
		align, err := r.u32()
		if err != nil {
			return "", err
		}
		offset, err := r.u32()
		if err != nil {
			return "", err
		}
		var parts []string
		if offset != 0 {
			parts = append(parts, fmt.Sprintf("offset=%d", offset))
		}
		if align != o.align && align < 32 {
			parts = append(parts, fmt.Sprintf("align=%d", uint64(1)<<align))
		}
		return strings.Join(parts, " "), nil
	case immMemory:
		v, err := r.u32()
		if err != nil || v == 0 {
			return "", err
		}
		return strconv.FormatUint(uint64(v), 10), nil
	case immI32:
		v, err := r.sleb(32)
		return strconv.FormatInt(int64(int32(v)), 10), err
	case immI64:
		v, err := r.sleb(64)
		return strconv.FormatInt(v, 10), err
	case immF32:
		b, err := r.bytes(4)
		if err != nil {
			return "", err
		}
		return formatFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), 32), nil
	case immF64:
		b, err := r.bytes(8)
		if err != nil {
			return "", err
		}
		return formatFloat(math.Float64frombits(binary.LittleEndian.Uint64(b)), 64), nil
	case immRefType:
		t, err := r.byte()
		if err != nil {
			return "", err
		}
		switch t {
		case 0x70:
			return "func", nil
		case 0x6f:
			return "extern", nil
		}
		return fmt.Sprintf("0x%02x", t), nil
	case immPair:
		a, err := r.u32()
		if err != nil {
			return "", err
		}
		b, err := r.u32()
		return fmt.Sprintf("%d %d", a, b), err
	case immMemInit:
		d, err := r.u32()
		if err != nil {
			return "", err
		}
		_, err = r.u32()
		return strconv.FormatUint(uint64(d), 10), err
	case immMemPair:
		if _, err := r.u32(); err != nil {
			return "", err
		}
		_, err := r.u32()
		return "", err
	}
	return "", nil
}

func (m *module) funcRef(idx uint32, opts codec.Options) string {
	if name := m.funcNames[idx]; opts.DebugNames && name != "" {
		return "$" + name
	}
	return strconv.FormatUint(uint64(idx), 10)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

func valType(t byte) string {
	switch t {
	case 0x7f:
		return "i32"
	case 0x7e:
		return "i64"
	case 0x7d:
		return "f32"
	case 0x7c:
		return "f64"
	case 0x7b:
		return "v128"
	case 0x70:
		return "funcref"
	case 0x6f:
		return "externref"
	}
	return fmt.Sprintf("<0x%02x>", t)
}

// valTypes renders ts with a leading space per type.
func valTypes(ts []byte) string {
	var b strings.Builder
	for _, t := range ts {
		b.WriteString(" " + valType(t))
	}
	return b.String()
}

// flatLines renders code one instruction per line, indenting block bodies.
func flatLines(code []instr, indent string) []string {
	out := make([]string, 0, len(code))
	depth := 0
	line := func(d int, text string) {
		if d < 0 {
			d = 0
		}
		out = append(out, indent+strings.Repeat("  ", d)+text)
	}
	for _, in := range code {
		switch in.kind {
		case kindBlock, kindIf:
			line(depth, in.text)
			depth++
		case kindElse:
			line(depth-1, in.text)
		case kindEnd:
			depth--
			line(depth, in.text)
		default:
			line(depth, in.text)
		}
	}
	return out
}

// node is a folded expression: an instruction with the operand expressions
// that immediately precede it.
type node struct {
	head     string
	children []*node
	results  int
}

// fold builds expressions from code starting at *pos up to the else or end
// closing the current block.
func fold(code []instr, pos *int) ([]*node, instrKind) {
	var seq []*node
	for *pos < len(code) {
		in := code[*pos]
		*pos++
		switch in.kind {
		case kindElse, kindEnd:
			return seq, in.kind
		case kindBlock:
			inner, _ := fold(code, pos)
			seq = append(seq, &node{head: in.text, children: inner, results: in.pushes})
		case kindIf:
			n := &node{head: in.text, results: in.pushes}
			n.children = takeOperands(&seq, 1)
			then, term := fold(code, pos)
			n.children = append(n.children, &node{head: "then", children: then})
			if term == kindElse {
				els, _ := fold(code, pos)
				n.children = append(n.children, &node{head: "else", children: els})
			}
			seq = append(seq, n)
		default:
			n := &node{head: in.text, results: in.pushes}
			if in.pops > 0 {
				n.children = takeOperands(&seq, in.pops)
			}
			seq = append(seq, n)
		}
	}
	return seq, kindEnd
}

// takeOperands removes and returns the last n expressions of seq when each
// of them leaves exactly one value. Otherwise seq is left alone.
func takeOperands(seq *[]*node, n int) []*node {
	s := *seq
	if len(s) < n {
		return nil
	}
	tail := s[len(s)-n:]
	for _, t := range tail {
		if t.results != 1 {
			return nil
		}
	}
	*seq = s[:len(s)-n]
	return append([]*node(nil), tail...)
}

func (n *node) lines(indent string, out []string) []string {
	if len(n.children) == 0 {
		return append(out, indent+"("+n.head+")")
	}
	out = append(out, indent+"("+n.head)
	for _, c := range n.children {
		out = c.lines(indent+"  ", out)
	}
	out[len(out)-1] += ")"
	return out
}

func foldedLines(code []instr, indent string) []string {
	pos := 0
	var out []string
	for pos < len(code) {
		seq, _ := fold(code, &pos)
		for _, n := range seq {
			out = n.lines(indent, out)
		}
	}
	return out
}

// maxLocals bounds how many local declarations are spelled out per function.
const maxLocals = 1 << 16

func localsLine(groups []localGroup, indent string) (string, bool) {
	var b strings.Builder
	total := 0
	for _, g := range groups {
		total += int(g.n)
		if total > maxLocals {
			return fmt.Sprintf("%s(; %d+ locals ;)", indent, maxLocals), true
		}
		for i := uint32(0); i < g.n; i++ {
			b.WriteString(" " + valType(g.t))
		}
	}
	if total == 0 {
		return "", false
	}
	return indent + "(local" + b.String() + ")", true
}

// bodyLines renders the locals and instructions of one function body.
func (m *module) bodyLines(b body, opts codec.Options) []string {
	const indent = "    "
	var out []string
	if l, ok := localsLine(b.locals, indent); ok {
		out = append(out, l)
	}
	code, err := m.decode(b.code, opts)
	if err != nil {
		return append(out, indent+"(; body not shown: "+err.Error()+" ;)")
	}
	if opts.FoldExprs {
		return append(out, foldedLines(code, indent)...)
	}
	return append(out, flatLines(code, indent)...)
}
