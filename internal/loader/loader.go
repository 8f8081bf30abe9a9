// Package loader compiles JavaScript algorithm bodies into runner algorithms.
//
// A body sees two bindings: data, an array of integers it sorts in place, and snapshot,
// an async-friendly function it calls (usually as "await snapshot()") whenever the
// current state should be shown. The body is executed inside a sandboxed goja runtime;
// its array is copied back into the Go slice on every snapshot and when it returns.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dop251/goja"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/san-kum/sortviz/internal/runner"
)

const (
	scriptName      = "algorithm.js"
	wrapperHead     = "(async function (data, snapshot) {\n"
	wrapperTail     = "\n})"
	wrapperLines    = 1
	interruptReason = "execution interrupted"
)

// Loader turns source text into runnable algorithms.
type Loader struct {
	cfg     Config
	sandbox *Sandbox
	cache   *lru.Cache[string, *goja.Program]
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*Loader, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[string, *goja.Program](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("loader: create program cache: %w", err)
	}
	return &Loader{
		cfg:     cfg,
		sandbox: NewSandbox(cfg, logger),
		cache:   cache,
		logger:  logger,
	}, nil
}

// Compile parses an algorithm body. Results are cached by source text.
func (l *Loader) Compile(code string) (*goja.Program, error) {
	if prog, ok := l.cache.Get(code); ok {
		return prog, nil
	}
	prog, err := goja.Compile(scriptName, wrapperHead+code+wrapperTail, false)
	if err != nil {
		var syntaxErr *goja.CompilerSyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, syntaxError(syntaxErr)
		}
		return nil, &JSError{Type: ErrorTypeSyntax, Message: err.Error(), Cause: err}
	}
	l.cache.Add(code, prog)
	l.logger.Debug("algorithm compiled", zap.Int("bytes", len(code)))
	return prog, nil
}

// Load compiles code and returns it as an algorithm. Syntax errors are reported here,
// not when the algorithm runs.
func (l *Loader) Load(code string) (runner.AlgorithmFunc, error) {
	prog, err := l.Compile(code)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, data []int, snapshot runner.SnapshotFunc) error {
		return l.execute(ctx, prog, data, snapshot)
	}, nil
}

// Cached returns the number of compiled programs held.
func (l *Loader) Cached() int { return l.cache.Len() }

func (l *Loader) execute(ctx context.Context, prog *goja.Program, data []int, snapshot runner.SnapshotFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewInternalError(fmt.Sprintf("panic during execution: %v", r))
		}
	}()

	vm := goja.New()
	if err := l.sandbox.Apply(vm); err != nil {
		return NewInternalError(err.Error())
	}

	val, err := vm.RunProgram(prog)
	if err != nil {
		return l.convert(ctx, vm, err)
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		return NewInternalError("algorithm wrapper is not a function")
	}

	arr := mirror(vm, data)
	snap := func(call goja.FunctionCall) goja.Value {
		pull(arr, data)
		if err := snapshot(); err != nil {
			panic(vm.NewGoError(err))
		}
		return goja.Undefined()
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if l.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
	}
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-runCtx.Done():
			vm.Interrupt(interruptReason)
		case <-done:
		}
	}()

	res, err := fn(goja.Undefined(), arr, vm.ToValue(snap))
	pull(arr, data)
	if err != nil {
		return l.convert(ctx, vm, err)
	}
	return settle(vm, res)
}

// convert maps an error returned by goja to the loader's error types.
func (l *Loader) convert(ctx context.Context, vm *goja.Runtime, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		timeout := NewTimeoutError(l.cfg.Timeout)
		timeout.Cause = err
		return timeout
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return exceptionError(vm, exc)
	}
	return &JSError{Type: ErrorTypeInternal, Message: err.Error(), Cause: err}
}

// settle inspects the promise returned by the async wrapper. All work queued by the
// body has run by the time the outermost call returns.
func settle(vm *goja.Runtime, res goja.Value) error {
	promise, ok := res.Export().(*goja.Promise)
	if !ok {
		return nil
	}
	switch promise.State() {
	case goja.PromiseStateFulfilled:
		return nil
	case goja.PromiseStateRejected:
		return thrownError(vm, promise.Result())
	default:
		return NewInternalError("algorithm is still waiting on a promise that never settles")
	}
}

func mirror(vm *goja.Runtime, data []int) *goja.Object {
	items := make([]interface{}, len(data))
	for i, v := range data {
		items[i] = v
	}
	return vm.NewArray(items...)
}

// pull copies the script's array back into data. Holes and values beyond the original
// length are ignored.
func pull(arr *goja.Object, data []int) {
	n := len(data)
	if length := arr.Get("length"); length != nil {
		n = min(n, int(length.ToInteger()))
	}
	for i := 0; i < n; i++ {
		v := arr.Get(strconv.Itoa(i))
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			continue
		}
		data[i] = int(v.ToInteger())
	}
}
