package handler

import "fmt"

// ResultStatus indicates the outcome of an action.
type ResultStatus uint8

const (
	// StatusOK indicates successful execution.
	StatusOK ResultStatus = iota
	// StatusNoOp indicates the action had no effect.
	StatusNoOp
	// StatusError indicates an error occurred.
	StatusError
	// StatusCancelled indicates a hook cancelled the action.
	StatusCancelled
)

// String returns a string representation of the status.
func (s ResultStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoOp:
		return "no-op"
	case StatusError:
		return "error"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the outcome of handling an action.
type Result struct {
	Status  ResultStatus
	Error   error
	Message string
	// Data carries action specific output, e.g. the copied text.
	Data map[string]any
}

// Success returns an OK result.
func Success() Result {
	return Result{Status: StatusOK}
}

// SuccessWithMessage returns an OK result carrying a status message.
func SuccessWithMessage(msg string) Result {
	return Result{Status: StatusOK, Message: msg}
}

// NoOp returns a result for an action that changed nothing.
func NoOp() Result {
	return Result{Status: StatusNoOp}
}

// NoOpWithMessage returns a no-op result with an explanation.
func NoOpWithMessage(msg string) Result {
	return Result{Status: StatusNoOp, Message: msg}
}

// Error returns an error result.
func Error(err error) Result {
	return Result{Status: StatusError, Error: err}
}

// Errorf returns an error result with a formatted error.
func Errorf(format string, args ...any) Result {
	return Error(fmt.Errorf(format, args...))
}

// Cancelled returns a cancelled result.
func Cancelled() Result {
	return Result{Status: StatusCancelled}
}

// WithMessage sets the message.
func (r Result) WithMessage(msg string) Result {
	r.Message = msg
	return r
}

// WithData attaches a data value. The map is copied so results stay values.
func (r Result) WithData(key string, value any) Result {
	data := make(map[string]any, len(r.Data)+1)
	for k, v := range r.Data {
		data[k] = v
	}
	data[key] = value
	r.Data = data
	return r
}

// IsOK reports whether the action succeeded, with or without effect.
func (r Result) IsOK() bool {
	return r.Status == StatusOK || r.Status == StatusNoOp
}

// IsError reports whether the action failed.
func (r Result) IsError() bool {
	return r.Status == StatusError
}

// GetDataString returns a string data value.
func (r Result) GetDataString(key string) string {
	s, _ := r.Data[key].(string)
	return s
}

// GetDataInt returns an integer data value.
func (r Result) GetDataInt(key string) int {
	n, _ := r.Data[key].(int)
	return n
}

// String returns a compact description.
func (r Result) String() string {
	switch {
	case r.Error != nil:
		return fmt.Sprintf("%s: %v", r.Status, r.Error)
	case r.Message != "":
		return fmt.Sprintf("%s: %s", r.Status, r.Message)
	}
	return r.Status.String()
}
