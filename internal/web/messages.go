package web

// messages.go maps upload errors to user-facing messages.
//
// Errors raised by the form package carry a stable code and are looked up
// directly by that code, which is also what the client receives. Anything
// else falls through to a short table of support codes:
//
//	UPL002  - server busy, every parse slot is taken
//	UPL004  - client went away before the upload finished
//	UPL005  - upload did not finish within UPLOAD_TIMEOUT
//	RATE001 - client exceeded its request window
//	ERR000  - anything else; check the logs for the request id

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/formstage/internal/form"
	"github.com/JonMunkholm/formstage/internal/limiter"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var formMessages = map[form.Code]UserMessage{
	form.CodeFieldSizeLimit: {
		Message: "A form field value is too long",
		Action:  "Shorten the field value and submit again",
	},
	form.CodeFieldNameSizeLimit: {
		Message: "A form field name is too long",
		Action:  "Use shorter field names",
	},
	form.CodeFileSizeLimit: {
		Message: "The file is larger than the upload limit",
		Action:  "Compress or split the file and try again",
	},
	form.CodePartsLimit: {
		Message: "The form has too many parts",
		Action:  "Send fewer fields and files per request",
	},
	form.CodeFilesLimit: {
		Message: "Too many files were attached",
		Action:  "Upload the files in several smaller batches",
	},
	form.CodeFieldsLimit: {
		Message: "The form has too many fields",
		Action:  "Remove unused fields and submit again",
	},
	form.CodeInvalidFilename: {
		Message: "This file type is not accepted",
		Action:  "Check the list of allowed file extensions",
	},
	form.CodeNoFile: {
		Message: "No file was found in the upload",
		Action:  "Select a file before submitting",
	},
	form.CodeConsumed: {
		Message: "The upload was already processed",
		Action:  "Submit the form again",
	},
	form.CodeMalformed: {
		Message: "The upload could not be read",
		Action:  "Submit the form as multipart/form-data and try again",
	},
	form.CodeIO: {
		Message: "The server could not store the file",
		Action:  "Please try again later or contact support",
	},
}

type errorMatcher struct {
	match  func(error) bool
	status int
	msg    UserMessage
}

func errorIs(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// errorMatchers are tried in order after the form code lookup.
var errorMatchers = []errorMatcher{
	{
		match:  errorIs(limiter.ErrBusy),
		status: http.StatusServiceUnavailable,
		msg: UserMessage{
			Message: "Too many uploads in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		match:  errorIs(context.Canceled),
		status: http.StatusBadRequest,
		msg: UserMessage{
			Message: "The upload was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		match:  errorIs(context.DeadlineExceeded),
		status: http.StatusRequestTimeout,
		msg: UserMessage{
			Message: "The upload timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		match:  errorIs(errRateLimited),
		status: http.StatusTooManyRequests,
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts err to a user message and the HTTP status to answer
// with. A nil error maps to the zero message and 200.
func MapError(err error) (UserMessage, int) {
	if err == nil {
		return UserMessage{}, http.StatusOK
	}

	var fe *form.Error
	if errors.As(err, &fe) {
		msg, ok := formMessages[fe.Code]
		if !ok {
			msg = UserMessage{Message: fe.Message}
		}
		msg.Code = string(fe.Code)
		return msg, fe.Status
	}

	for _, m := range errorMatchers {
		if m.match(err) {
			return m.msg, m.status
		}
	}
	return defaultMessage, http.StatusInternalServerError
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg, _ := MapError(err)
	return msg.Code != defaultMessage.Code
}
