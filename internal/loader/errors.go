package loader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// ErrorType categorizes script failures.
type ErrorType string

const (
	ErrorTypeSyntax   ErrorType = "syntax_error"
	ErrorTypeRuntime  ErrorType = "runtime_error"
	ErrorTypeTimeout  ErrorType = "timeout_error"
	ErrorTypeSecurity ErrorType = "security_error"
	ErrorTypeConfig   ErrorType = "config_error"
	ErrorTypeInternal ErrorType = "internal_error"
)

// JSError is a structured failure of an algorithm script. Line numbers refer to the
// algorithm body as the user wrote it.
type JSError struct {
	Type       ErrorType    `json:"type"`
	Message    string       `json:"message"`
	StackTrace []StackFrame `json:"stack_trace,omitempty"`
	Line       int          `json:"line,omitempty"`
	Column     int          `json:"column,omitempty"`
	Cause      error        `json:"-"`
}

// StackFrame is a single frame of a script stack trace.
type StackFrame struct {
	FunctionName string `json:"function_name,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	Line         int    `json:"line"`
	Column       int    `json:"column"`
}

const maxPrintedFrames = 10

func (e *JSError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Type, e.Message)
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
	}
	for i, frame := range e.StackTrace {
		if i == 0 {
			b.WriteString("\nStack trace:")
		}
		if i >= maxPrintedFrames {
			fmt.Fprintf(&b, "\n  ... %d more frames", len(e.StackTrace)-i)
			break
		}
		name := frame.FunctionName
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(&b, "\n  at %s (%s:%d:%d)", name, frame.FileName, frame.Line, frame.Column)
	}
	return b.String()
}

func (e *JSError) Unwrap() error { return e.Cause }

func NewSyntaxError(message string, line, column int) *JSError {
	return &JSError{Type: ErrorTypeSyntax, Message: message, Line: line, Column: column}
}

func NewTimeoutError(timeout time.Duration) *JSError {
	return &JSError{Type: ErrorTypeTimeout, Message: fmt.Sprintf("execution timeout after %s", timeout)}
}

func NewSecurityError(message string) *JSError {
	return &JSError{Type: ErrorTypeSecurity, Message: message}
}

func NewConfigError(message string) *JSError {
	return &JSError{Type: ErrorTypeConfig, Message: message}
}

func NewInternalError(message string) *JSError {
	return &JSError{Type: ErrorTypeInternal, Message: message}
}

var (
	syntaxPosition = regexp.MustCompile(`Line (\d+):(\d+)`)
	syntaxLocation = regexp.MustCompile(`:(\d+):(\d+)`)
)

// syntaxError converts a compiler error. The reported line is shifted back by the
// wrapper's opening line.
func syntaxError(err *goja.CompilerSyntaxError) *JSError {
	jsErr := NewSyntaxError(err.Message, 0, 0)
	jsErr.Cause = err
	m := syntaxPosition.FindStringSubmatch(err.Error())
	if m == nil {
		m = syntaxLocation.FindStringSubmatch(err.Error())
	}
	if m != nil {
		line, _ := strconv.Atoi(m[1])
		col, _ := strconv.Atoi(m[2])
		jsErr.Line = max(line-wrapperLines, 0)
		jsErr.Column = col
	}
	return jsErr
}

// thrownError converts a value thrown by the script into a Go error. Go errors thrown
// through a native function come back unchanged.
func thrownError(vm *goja.Runtime, thrown goja.Value) error {
	if thrown == nil || goja.IsUndefined(thrown) || goja.IsNull(thrown) {
		return &JSError{Type: ErrorTypeRuntime, Message: "script rejected without a reason"}
	}
	obj, ok := thrown.(*goja.Object)
	if !ok {
		return &JSError{Type: ErrorTypeRuntime, Message: thrown.String()}
	}
	if v := obj.Get("value"); v != nil {
		if goErr, ok := v.Export().(error); ok {
			return goErr
		}
	}

	jsErr := &JSError{Type: ErrorTypeRuntime, Message: obj.String()}
	if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
		jsErr.StackTrace = parseStackTrace(stack.String())
		for _, frame := range jsErr.StackTrace {
			if frame.FileName == scriptName {
				jsErr.Line, jsErr.Column = frame.Line, frame.Column
				break
			}
		}
	}
	return jsErr
}

func exceptionError(vm *goja.Runtime, exc *goja.Exception) error {
	if exc.Value() == nil {
		return &JSError{Type: ErrorTypeRuntime, Message: exc.Error(), Cause: exc}
	}
	return thrownError(vm, exc.Value())
}

// parseStackTrace reads goja's "at name (file:line:col(pc))" frames, skipping the
// message header.
func parseStackTrace(stack string) []StackFrame {
	var frames []StackFrame
	for _, line := range strings.Split(stack, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "at ") {
			continue
		}
		frames = append(frames, parseStackFrame(strings.TrimPrefix(line, "at ")))
	}
	return frames
}

func parseStackFrame(line string) StackFrame {
	var frame StackFrame
	location := line
	if open := strings.Index(line, " ("); open != -1 {
		frame.FunctionName = strings.TrimSpace(line[:open])
		location = strings.TrimSuffix(line[open+2:], ")")
	}

	parts := strings.Split(location, ":")
	if len(parts) >= 3 {
		frame.FileName = strings.Join(parts[:len(parts)-2], ":")
		frame.Line = leadingInt(parts[len(parts)-2])
		frame.Column = leadingInt(parts[len(parts)-1])
	} else {
		frame.FileName = location
	}
	if frame.FileName == scriptName {
		frame.Line = max(frame.Line-wrapperLines, 0)
	}
	return frame
}

func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
