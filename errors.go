package purc

import "fmt"

// ErrCode is the numeric error code recorded in the instance last-error
// slot. Codes classify data-dependent failures; programming defects
// (refcount underflow, double release, corrupt indices) panic instead.
type ErrCode int

const (
	CodeOK ErrCode = iota
	CodeOutOfMemory
	CodeInvalidValue
	CodeWrongDataType
	CodeDuplicatedKey
	CodeNotFound
	CodeOutOfBounds
	CodeDuplicated
	CodeNotImplemented
	CodeNotSupported
	CodeNoData
)

// String returns the symbolic name of an error code
func (c ErrCode) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeOutOfMemory:
		return "out of memory"
	case CodeInvalidValue:
		return "invalid value"
	case CodeWrongDataType:
		return "wrong data type"
	case CodeDuplicatedKey:
		return "duplicated key"
	case CodeNotFound:
		return "not found"
	case CodeOutOfBounds:
		return "out of bounds"
	case CodeDuplicated:
		return "duplicated"
	case CodeNotImplemented:
		return "not implemented"
	case CodeNotSupported:
		return "not supported"
	case CodeNoData:
		return "no data"
	default:
		return "unknown error"
	}
}

// RuntimeError is the error value returned by every fallible operation.
// The same value is recorded in the owning instance's last-error slot.
type RuntimeError struct {
	Code   ErrCode
	Detail string
}

func (e *RuntimeError) Error() string {
	if e.Detail == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Is lets errors.Is match RuntimeError values by code.
func (e *RuntimeError) Is(target error) bool {
	t, ok := target.(*RuntimeError)
	return ok && t.Code == e.Code
}

// CodeOf extracts the error code from an error returned by this package,
// or CodeOK for nil.
func CodeOf(err error) ErrCode {
	if err == nil {
		return CodeOK
	}
	if re, ok := err.(*RuntimeError); ok {
		return re.Code
	}
	return CodeInvalidValue
}

// setError records a formatted error in the instance last-error slot and
// returns it.
func (inst *Instance) setError(code ErrCode, format string, args ...interface{}) *RuntimeError {
	err := &RuntimeError{Code: code, Detail: fmt.Sprintf(format, args...)}
	inst.mu.Lock()
	inst.lastErr = err
	inst.mu.Unlock()
	inst.logger.DebugCat(CatSystem, "error recorded: %v", err)
	return err
}

// LastError returns the most recently recorded error, or nil.
func (inst *Instance) LastError() *RuntimeError {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.lastErr
}

// ClearError clears the last-error slot.
func (inst *Instance) ClearError() {
	inst.mu.Lock()
	inst.lastErr = nil
	inst.mu.Unlock()
}
