package wazero

import (
	"errors"
	"fmt"
)

var errShort = errors.New("unexpected end of module")

// module holds what the text renderer needs beyond the compiled module:
// function types and bodies, and the name section's function names.
type module struct {
	types     []funcType
	funcTypes []uint32 // by function index, imports first
	imported  int
	bodies    []body
	funcNames map[uint32]string
}

type funcType struct {
	params, results []byte
}

type localGroup struct {
	n uint32
	t byte
}

type body struct {
	locals []localGroup
	code   []byte
}

// typeOf returns the type of the function at idx.
func (m *module) typeOf(idx uint32) (uint32, funcType, bool) {
	if int(idx) >= len(m.funcTypes) {
		return 0, funcType{}, false
	}
	ti := m.funcTypes[idx]
	if int(ti) >= len(m.types) {
		return ti, funcType{}, false
	}
	return ti, m.types[ti], true
}

func parseModule(wasm []byte) (*module, error) {
	r := &reader{b: wasm}
	if _, err := r.bytes(8); err != nil {
		return nil, err
	}
	m := &module{funcNames: map[uint32]string{}}
	for !r.done() {
		id, err := r.byte()
		if err != nil {
			return nil, err
		}
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		payload, err := r.bytes(size)
		if err != nil {
			return nil, err
		}
		s := &reader{b: payload}
		switch id {
		case 0:
			m.readCustom(s)
		case 1:
			err = m.readTypes(s)
		case 2:
			err = m.readImports(s)
		case 3:
			err = m.readFunctions(s)
		case 10:
			err = m.readCode(s)
		}
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", id, err)
		}
	}
	if len(m.bodies) != len(m.funcTypes)-m.imported {
		return nil, errors.New("function and code section counts differ")
	}
	return m, nil
}

// readCustom picks function names out of the "name" section. A malformed
// name section only loses names.
func (m *module) readCustom(s *reader) {
	name, err := s.name()
	if err != nil || name != "name" {
		return
	}
	for !s.done() {
		id, err := s.byte()
		if err != nil {
			return
		}
		size, err := s.u32()
		if err != nil {
			return
		}
		payload, err := s.bytes(size)
		if err != nil {
			return
		}
		if id != 1 {
			continue
		}
		sub := &reader{b: payload}
		n, err := sub.u32()
		if err != nil {
			return
		}
		for i := uint32(0); i < n; i++ {
			idx, err := sub.u32()
			if err != nil {
				return
			}
			fn, err := sub.name()
			if err != nil {
				return
			}
			m.funcNames[idx] = fn
		}
	}
}

func (m *module) readTypes(s *reader) error {
	n, err := s.count()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		form, err := s.byte()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return fmt.Errorf("type %d: unexpected form 0x%02x", i, form)
		}
		var ft funcType
		if ft.params, err = s.vec(); err != nil {
			return err
		}
		if ft.results, err = s.vec(); err != nil {
			return err
		}
		m.types = append(m.types, ft)
	}
	return nil
}

func (m *module) readImports(s *reader) error {
	n, err := s.count()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		if _, err := s.name(); err != nil {
			return err
		}
		if _, err := s.name(); err != nil {
			return err
		}
		kind, err := s.byte()
		if err != nil {
			return err
		}
		switch kind {
		case 0:
			ti, err := s.u32()
			if err != nil {
				return err
			}
			m.funcTypes = append(m.funcTypes, ti)
			m.imported++
		case 1:
			if _, err := s.byte(); err != nil {
				return err
			}
			err = s.limits()
		case 2:
			err = s.limits()
		case 3:
			_, err = s.bytes(2)
		default:
			return fmt.Errorf("import %d: unknown kind 0x%02x", i, kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *module) readFunctions(s *reader) error {
	n, err := s.count()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		ti, err := s.u32()
		if err != nil {
			return err
		}
		m.funcTypes = append(m.funcTypes, ti)
	}
	return nil
}

func (m *module) readCode(s *reader) error {
	n, err := s.count()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		size, err := s.u32()
		if err != nil {
			return err
		}
		raw, err := s.bytes(size)
		if err != nil {
			return err
		}
		br := &reader{b: raw}
		groups, err := br.count()
		if err != nil {
			return err
		}
		var b body
		for g := uint32(0); g < groups; g++ {
			cnt, err := br.u32()
			if err != nil {
				return err
			}
			t, err := br.byte()
			if err != nil {
				return err
			}
			b.locals = append(b.locals, localGroup{n: cnt, t: t})
		}
		b.code = raw[br.off:]
		m.bodies = append(m.bodies, b)
	}
	return nil
}

type reader struct {
	b   []byte
	off int
}

func (r *reader) done() bool { return r.off >= len(r.b) }

func (r *reader) byte() (byte, error) {
	if r.off >= len(r.b) {
		return 0, errShort
	}
	c := r.b[r.off]
	r.off++
	return c, nil
}

func (r *reader) bytes(n uint32) ([]byte, error) {
	if uint64(n) > uint64(len(r.b)-r.off) {
		return nil, errShort
	}
	out := r.b[r.off : r.off+int(n)]
	r.off += int(n)
	return out, nil
}

func (r *reader) u32() (uint32, error) {
	var v uint32
	for shift := 0; shift < 35; shift += 7 {
		c, err := r.byte()
		if err != nil {
			return 0, err
		}
		v |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, nil
		}
	}
	return 0, errors.New("varuint32 too long")
}

// count reads a vector length. Every element takes at least one byte.
func (r *reader) count() (uint32, error) {
	n, err := r.u32()
	if err != nil {
		return 0, err
	}
	if uint64(n) > uint64(len(r.b)-r.off) {
		return 0, errShort
	}
	return n, nil
}

// sleb reads a signed LEB128 value of at most bits bits.
func (r *reader) sleb(bits int) (int64, error) {
	var v int64
	limit := (bits + 6) / 7 * 7
	for shift := 0; shift < limit; {
		c, err := r.byte()
		if err != nil {
			return 0, err
		}
		v |= int64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if shift < 64 && c&0x40 != 0 {
				v |= -1 << shift
			}
			return v, nil
		}
	}
	return 0, fmt.Errorf("varint%d too long", bits)
}

func (r *reader) name() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) vec() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	return r.bytes(n)
}

func (r *reader) limits() error {
	flags, err := r.byte()
	if err != nil {
		return err
	}
	if _, err := r.u32(); err != nil {
		return err
	}
	if flags&1 != 0 {
		_, err = r.u32()
	}
	return err
}
