package form

import (
	"errors"
	"fmt"
)

// Class is the routing decision for a part.
type Class int

const (
	ClassField Class = iota
	ClassFile
	ClassEmptyFile
)

func (c Class) String() string {
	switch c {
	case ClassField:
		return "field"
	case ClassFile:
		return "file"
	case ClassEmptyFile:
		return "empty_file"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Classify decides how a part is handled. A field with a truncated name or
// value is not a field: it yields ErrFieldNameSizeLimit or
// ErrFieldSizeLimit, which ends the whole collection.
func Classify(p Part) (Class, error) {
	switch part := p.(type) {
	case *FieldPart:
		if err := fieldLimitError(part); err != nil {
			return ClassField, err
		}
		return ClassField, nil
	case *StreamPart:
		if part.Filename == "" {
			return ClassEmptyFile, nil
		}
		return ClassFile, nil
	default:
		return ClassField, fmt.Errorf("form: unknown part type %T", p)
	}
}

// checkFile runs the configured CheckFile predicate against sp.
func checkFile(opts ParseOptions, sp *StreamPart) error {
	if opts.CheckFile == nil {
		return nil
	}
	err := opts.CheckFile(sp.FieldName, sp.Filename, sp.Encoding, sp.MimeType)
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.with(sp.FieldName, sp.Filename)
	}
	return ErrInvalidFilename.with(sp.FieldName, sp.Filename).wrap(err)
}
