package form

// errors.go defines the error vocabulary shared by the collector and the
// single-stream adapter.
//
// Every terminal condition is an *Error carrying a stable machine-readable
// code and the HTTP status the boundary layer should answer with:
//
//	Request_fieldSize_limit       413  field value longer than Limits.FieldSize
//	Request_fieldNameSize_limit   413  field name longer than Limits.FieldNameSize
//	Request_fileSize_limit        413  file part longer than Limits.FileSize
//	Request_parts_limit           413  more parts than Limits.Parts
//	Request_files_limit           413  more file parts than Limits.Files
//	Request_fields_limit          413  more field parts than Limits.Fields
//	Request_invalid_filename      400  CheckFile rejected the part
//	Request_no_file               400  single-stream mode found no file
//	Request_consumed              400  the body was already consumed
//	Request_malformed             400  body is not valid multipart/form-data
//	Request_io_error              500  directory creation or file write failed
//
// errors.Is matches on the code, so callers can test against the sentinels
// even when the returned error carries extra context (field, filename).

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind groups codes by how the request went wrong.
type ErrorKind int

const (
	KindProtocol ErrorKind = iota
	KindLimit
	KindValidation
	KindIO
	KindUsage
)

func (k ErrorKind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindLimit:
		return "limit"
	case KindValidation:
		return "validation"
	case KindIO:
		return "io"
	case KindUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// Code is the stable identifier of a terminal condition.
type Code string

const (
	CodeFieldSizeLimit     Code = "Request_fieldSize_limit"
	CodeFieldNameSizeLimit Code = "Request_fieldNameSize_limit"
	CodeFileSizeLimit      Code = "Request_fileSize_limit"
	CodePartsLimit         Code = "Request_parts_limit"
	CodeFilesLimit         Code = "Request_files_limit"
	CodeFieldsLimit        Code = "Request_fields_limit"
	CodeInvalidFilename    Code = "Request_invalid_filename"
	CodeNoFile             Code = "Request_no_file"
	CodeConsumed           Code = "Request_consumed"
	CodeMalformed          Code = "Request_malformed"
	CodeIO                 Code = "Request_io_error"
)

// Error is a terminal multipart processing error.
type Error struct {
	Kind    ErrorKind
	Code    Code
	Status  int
	Message string

	// Field and Filename identify the offending part when known.
	Field    string
	Filename string

	// Fields is the snapshot of fields collected before a stream hit its
	// size limit. Only set by the single-stream adapter.
	Fields FieldMap

	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Filename != "" {
		msg = fmt.Sprintf("%s (file %q)", msg, e.Filename)
	} else if e.Field != "" {
		msg = fmt.Sprintf("%s (field %q)", msg, e.Field)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// with returns a copy of e annotated with the part that triggered it.
func (e *Error) with(field, filename string) *Error {
	c := *e
	c.Field = field
	c.Filename = filename
	return &c
}

// wrap returns a copy of e wrapping cause.
func (e *Error) wrap(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

var (
	ErrFieldSizeLimit = &Error{
		Kind: KindLimit, Code: CodeFieldSizeLimit, Status: http.StatusRequestEntityTooLarge,
		Message: "Reach fieldSize limit",
	}
	ErrFieldNameSizeLimit = &Error{
		Kind: KindLimit, Code: CodeFieldNameSizeLimit, Status: http.StatusRequestEntityTooLarge,
		Message: "Reach fieldNameSize limit",
	}
	ErrFileSizeLimit = &Error{
		Kind: KindLimit, Code: CodeFileSizeLimit, Status: http.StatusRequestEntityTooLarge,
		Message: "Reach fileSize limit",
	}
	ErrPartsLimit = &Error{
		Kind: KindLimit, Code: CodePartsLimit, Status: http.StatusRequestEntityTooLarge,
		Message: "Reach parts limit",
	}
	ErrFilesLimit = &Error{
		Kind: KindLimit, Code: CodeFilesLimit, Status: http.StatusRequestEntityTooLarge,
		Message: "Reach files limit",
	}
	ErrFieldsLimit = &Error{
		Kind: KindLimit, Code: CodeFieldsLimit, Status: http.StatusRequestEntityTooLarge,
		Message: "Reach fields limit",
	}
	ErrInvalidFilename = &Error{
		Kind: KindValidation, Code: CodeInvalidFilename, Status: http.StatusBadRequest,
		Message: "Invalid filename",
	}
	ErrNoFile = &Error{
		Kind: KindUsage, Code: CodeNoFile, Status: http.StatusBadRequest,
		Message: "no file found in multipart request",
	}
	ErrAlreadyConsumed = &Error{
		Kind: KindUsage, Code: CodeConsumed, Status: http.StatusBadRequest,
		Message: "multipart request can't be consumed twice",
	}
	ErrMalformed = &Error{
		Kind: KindProtocol, Code: CodeMalformed, Status: http.StatusBadRequest,
		Message: "malformed multipart body",
	}
	ErrIO = &Error{
		Kind: KindIO, Code: CodeIO, Status: http.StatusInternalServerError,
		Message: "failed to store uploaded file",
	}
)

// StatusOf returns the HTTP status for err, or 500 when err is not an *Error.
func StatusOf(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the code carried by err, or "" when err is not an *Error.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsLimit reports whether err is one of the size or count limit errors.
func IsLimit(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindLimit
}
