package wasm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
	ErrComponent      = errors.New("component model binaries are not supported")
	ErrTruncated      = errors.New("truncated wasm binary")
)

// Section locates one section inside the binary.
type Section struct {
	// Offset is the position of the section id byte.
	Offset int
	// End is the position right after the section payload.
	End int
	ID  byte
}

// Import is one entry of the import section.
type Import struct {
	Module string
	Name   string
	Kind   byte
}

// Export is one entry of the export section.
type Export struct {
	Name  string
	Index uint32
	Kind  byte
}

// Summary is the result of a header and section walk.
type Summary struct {
	Sections  []Section
	Imports   []Import
	Exports   []Export
	StartFunc uint32
	HasStart  bool
}

// Export returns the export with the given name and kind.
func (s *Summary) Export(name string, kind byte) (Export, bool) {
	for _, e := range s.Exports {
		if e.Name == name && e.Kind == kind {
			return e, true
		}
	}
	return Export{}, false
}

// Scan checks the header of a core module and walks its sections.
func Scan(data []byte) (*Summary, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("header: %w", ErrTruncated)
	}
	if binary.LittleEndian.Uint32(data[0:4]) != Magic {
		return nil, ErrInvalidMagic
	}
	switch version := binary.LittleEndian.Uint32(data[4:8]); version {
	case Version:
	case componentLayer:
		return nil, ErrComponent
	default:
		return nil, fmt.Errorf("%w: 0x%x", ErrInvalidVersion, version)
	}

	r := &reader{data: data, pos: 8}
	s := &Summary{}
	lastOrder := 0

	for r.remaining() > 0 {
		offset := r.pos
		id, err := r.readByte()
		if err != nil {
			return nil, err
		}

		// Custom sections can appear anywhere
		if id != SectionCustom {
			order := sectionOrder(id)
			if order == 0 {
				return nil, fmt.Errorf("unknown section id %d at offset %d", id, offset)
			}
			if order <= lastOrder {
				return nil, fmt.Errorf("section %d appears out of order", id)
			}
			lastOrder = order
		}

		size, err := r.readU32()
		if err != nil {
			return nil, fmt.Errorf("section %d size: %w", id, truncated(err))
		}
		payload, err := r.readBytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("section %d payload: %w", id, ErrTruncated)
		}
		s.Sections = append(s.Sections, Section{ID: id, Offset: offset, End: r.pos})

		sr := &reader{data: payload}
		switch id {
		case SectionImport:
			if s.Imports, err = parseImports(sr); err != nil {
				return nil, fmt.Errorf("import section: %w", truncated(err))
			}
		case SectionExport:
			if s.Exports, err = parseExports(sr); err != nil {
				return nil, fmt.Errorf("export section: %w", truncated(err))
			}
		case SectionStart:
			if s.StartFunc, err = sr.readU32(); err != nil {
				return nil, fmt.Errorf("start section: %w", truncated(err))
			}
			s.HasStart = true
		}
	}

	return s, nil
}

// StripStart returns data without its start section.
// The input is returned unchanged when there is nothing to strip.
func StripStart(data []byte) ([]byte, bool, error) {
	s, err := Scan(data)
	if err != nil {
		return nil, false, err
	}
	if !s.HasStart {
		return data, false, nil
	}

	out := make([]byte, 0, len(data))
	prev := 0
	for _, sec := range s.Sections {
		if sec.ID != SectionStart {
			continue
		}
		out = append(out, data[prev:sec.Offset]...)
		prev = sec.End
	}
	out = append(out, data[prev:]...)
	return out, true, nil
}

func parseImports(r *reader) ([]Import, error) {
	// module name, name, kind, descriptor
	count, err := r.readCount(4)
	if err != nil {
		return nil, err
	}
	imports := make([]Import, 0, count)
	for i := uint32(0); i < count; i++ {
		var imp Import
		if imp.Module, err = r.readName(); err != nil {
			return nil, err
		}
		if imp.Name, err = r.readName(); err != nil {
			return nil, err
		}
		if imp.Kind, err = r.readByte(); err != nil {
			return nil, err
		}
		if err := skipImportDesc(r, imp.Kind); err != nil {
			return nil, fmt.Errorf("import %s.%s: %w", imp.Module, imp.Name, err)
		}
		imports = append(imports, imp)
	}
	return imports, nil
}

func skipImportDesc(r *reader, kind byte) error {
	switch kind {
	case KindFunc:
		_, err := r.readU32()
		return err
	case KindTable:
		if _, err := r.readByte(); err != nil {
			return err
		}
		return r.skipLimits()
	case KindMemory:
		return r.skipLimits()
	case KindGlobal:
		_, err := r.readBytes(2) // valtype, mutability
		return err
	case KindTag:
		if _, err := r.readByte(); err != nil {
			return err
		}
		_, err := r.readU32()
		return err
	default:
		return fmt.Errorf("unknown import kind 0x%x", kind)
	}
}

func parseExports(r *reader) ([]Export, error) {
	// name, kind, index
	count, err := r.readCount(3)
	if err != nil {
		return nil, err
	}
	exports := make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		var exp Export
		if exp.Name, err = r.readName(); err != nil {
			return nil, err
		}
		if exp.Kind, err = r.readByte(); err != nil {
			return nil, err
		}
		if exp.Index, err = r.readU32(); err != nil {
			return nil, err
		}
		exports = append(exports, exp)
	}
	return exports, nil
}

func truncated(err error) error {
	if errors.Is(err, ErrOverflow) {
		return err
	}
	return ErrTruncated
}

// sectionOrder returns the canonical ordering for a section ID.
// WASM spec requires sections in specific order, which differs from section IDs.
func sectionOrder(id byte) int {
	switch id {
	case SectionType:
		return 1
	case SectionImport:
		return 2
	case SectionFunction:
		return 3
	case SectionTable:
		return 4
	case SectionMemory:
		return 5
	case SectionTag:
		return 6 // Tag comes after Memory, before Global
	case SectionGlobal:
		return 7
	case SectionExport:
		return 8
	case SectionStart:
		return 9
	case SectionElement:
		return 10
	case SectionDataCount:
		return 11 // DataCount must come before Code
	case SectionCode:
		return 12
	case SectionData:
		return 13
	default:
		return 0
	}
}
