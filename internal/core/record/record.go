// Package record defines the error report value that flows through the
// reporter queue.
package record

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/hay-kot/errq/internal/core/model"
)

// Defaults applied when a field is missing from a source map.
const (
	DefaultLocation     = "..."
	DefaultUserID       = "-1"
	DefaultMessage      = "no"
	DefaultErrorType    = 0
	DefaultInternalCode = 10001
	DefaultAppVersion   = "1.0.0"
)

// Map keys of the persisted form.
const (
	KeyID           = "recordID"
	KeyUserID       = "userId"
	KeyMessage      = "message"
	KeyLocation     = "location"
	KeyCreatedAt    = "creatTime"
	KeyErrorType    = "errorType"
	KeyAppVersion   = "appVersion"
	KeyInternalCode = "internalCode"
)

// TypeName identifies records in model storage.
const TypeName = "SPError"

// IDAllocator hands out process-unique, strictly increasing record ids.
type IDAllocator interface {
	Next() int64
}

// Record is a single error report. Fields are fixed at construction; the
// setters exist for callers that annotate a record before reporting it and
// notify observers of the change.
type Record struct {
	model.Base

	ID           int64
	UserID       string
	Message      string
	Location     string
	CreatedAt    float64
	ErrorType    int
	AppVersion   string
	InternalCode int
}

// Fields is the field registry for Record, in persisted key order.
var Fields = model.Fields[Record]{
	{Name: KeyID, Get: func(r *Record) any { return r.ID }, Set: func(r *Record, v any) bool {
		n, ok := model.AsInt(v)
		if ok {
			r.ID = n
		}
		return ok
	}},
	{Name: KeyUserID, Get: func(r *Record) any { return r.UserID }, Set: setString(func(r *Record) *string { return &r.UserID })},
	{Name: KeyMessage, Get: func(r *Record) any { return r.Message }, Set: setString(func(r *Record) *string { return &r.Message })},
	{Name: KeyLocation, Get: func(r *Record) any { return r.Location }, Set: setString(func(r *Record) *string { return &r.Location })},
	{Name: KeyCreatedAt, Get: func(r *Record) any { return r.CreatedAt }, Set: func(r *Record, v any) bool {
		f, ok := model.AsFloat(v)
		if ok {
			r.CreatedAt = f
		}
		return ok
	}},
	{Name: KeyErrorType, Get: func(r *Record) any { return r.ErrorType }, Set: setInt(func(r *Record) *int { return &r.ErrorType })},
	{Name: KeyAppVersion, Get: func(r *Record) any { return r.AppVersion }, Set: setString(func(r *Record) *string { return &r.AppVersion })},
	{Name: KeyInternalCode, Get: func(r *Record) any { return r.InternalCode }, Set: setInt(func(r *Record) *int { return &r.InternalCode })},
}

func setString(field func(*Record) *string) func(*Record, any) bool {
	return func(r *Record, v any) bool {
		s, ok := model.AsString(v)
		if ok {
			*field(r) = s
		}
		return ok
	}
}

func setInt(field func(*Record) *int) func(*Record, any) bool {
	return func(r *Record, v any) bool {
		n, ok := model.AsInt(v)
		if ok {
			*field(r) = int(n)
		}
		return ok
	}
}

// TypeName implements model.Model.
func (r *Record) TypeName() string { return TypeName }

// ToMap returns the flat persisted form of r.
func (r *Record) ToMap() map[string]any { return Fields.ToMap(r) }

// String renders every field on its own line.
func (r *Record) String() string { return Fields.Describe(TypeName, r) }

// CreatedTime returns CreatedAt as a time.Time.
func (r *Record) CreatedTime() time.Time {
	sec := int64(r.CreatedAt)
	nsec := int64((r.CreatedAt - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// SetUserID updates the user id and notifies observers.
func (r *Record) SetUserID(id string) {
	old := r.UserID
	r.UserID = id
	r.NotifyChanged(r, KeyUserID, old)
}

// SetMessage updates the message and notifies observers.
func (r *Record) SetMessage(msg string) {
	old := r.Message
	r.Message = msg
	r.NotifyChanged(r, KeyMessage, old)
}

// SetErrorType updates the classification and notifies observers.
func (r *Record) SetErrorType(t int) {
	old := r.ErrorType
	r.ErrorType = t
	r.NotifyChanged(r, KeyErrorType, old)
}

// SetInternalCode updates the internal code and notifies observers.
func (r *Record) SetInternalCode(code int) {
	old := r.InternalCode
	r.InternalCode = code
	r.NotifyChanged(r, KeyInternalCode, old)
}

// FormatLocation builds the location string for a call site. Slashes in the
// file path become dots.
func FormatLocation(file, function string, line int) string {
	return fmt.Sprintf("%s in %s:%d", strings.ReplaceAll(file, "/", "."), function, line)
}

// CallerLocation returns the location of the caller skip frames above the
// function calling CallerLocation.
func CallerLocation(skip int) string {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return DefaultLocation
	}

	function := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		function = fn.Name()
		if i := strings.LastIndex(function, "/"); i >= 0 {
			function = function[i+1:]
		}
	}

	return FormatLocation(trimFile(file), function, line)
}

// trimFile keeps the package directory and file name, mirroring a
// module-relative file id.
func trimFile(file string) string {
	parts := strings.Split(file, "/")
	if len(parts) <= 2 {
		return file
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
