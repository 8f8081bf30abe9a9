package loader

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Sandbox restricts what algorithm scripts can reach.
type Sandbox struct {
	securityLevel    string
	maxCallStackSize int
	logger           *zap.Logger
}

func NewSandbox(cfg Config, logger *zap.Logger) *Sandbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sandbox{
		securityLevel:    cfg.SecurityLevel,
		maxCallStackSize: cfg.MaxCallStackSize,
		logger:           logger,
	}
}

// Apply prepares a fresh runtime. It must run before any script code.
func (s *Sandbox) Apply(vm *goja.Runtime) error {
	if s.maxCallStackSize > 0 {
		vm.SetMaxCallStackSize(s.maxCallStackSize)
	}
	if err := s.removeHostGlobals(vm); err != nil {
		return fmt.Errorf("remove host globals: %w", err)
	}
	if err := s.installConsole(vm); err != nil {
		return fmt.Errorf("install console: %w", err)
	}
	if err := s.freezeBuiltins(vm); err != nil {
		return fmt.Errorf("freeze builtins: %w", err)
	}
	return nil
}

var hostGlobals = []string{
	"require",
	"module",
	"exports",
	"process",
	"global",
	"__dirname",
	"__filename",
	"Buffer",
	"setImmediate",
	"clearImmediate",
}

func (s *Sandbox) removeHostGlobals(vm *goja.Runtime) error {
	for _, name := range hostGlobals {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	if s.securityLevel != SecurityLevelStrict {
		return nil
	}
	return vm.Set("eval", func(call goja.FunctionCall) goja.Value {
		panic(vm.NewGoError(NewSecurityError("eval is not allowed in strict security mode")))
	})
}

// installConsole routes console output to the logger. In strict mode the console
// exists but discards everything.
func (s *Sandbox) installConsole(vm *goja.Runtime) error {
	console := vm.NewObject()
	logger := s.logger.Named("script")
	methods := map[string]func(string, ...zap.Field){
		"log":   logger.Info,
		"info":  logger.Info,
		"debug": logger.Debug,
		"warn":  logger.Warn,
		"error": logger.Error,
	}
	for name, logFn := range methods {
		fn := func(call goja.FunctionCall) goja.Value {
			if s.securityLevel == SecurityLevelStrict {
				return goja.Undefined()
			}
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			logFn(strings.Join(parts, " "))
			return goja.Undefined()
		}
		if err := console.Set(name, fn); err != nil {
			return err
		}
	}
	return vm.Set("console", console)
}

var frozenBuiltins = []string{
	"Object",
	"Array",
	"Function",
	"String",
	"Number",
	"Boolean",
	"Date",
	"RegExp",
	"Error",
	"Math",
	"JSON",
	"console",
}

const freezeScript = `
(function() {
	return function(obj) {
		if (obj && (typeof obj === 'object' || typeof obj === 'function')) {
			Object.freeze(obj);
			if (obj.prototype) {
				Object.freeze(obj.prototype);
			}
		}
	};
})()
`

func (s *Sandbox) freezeBuiltins(vm *goja.Runtime) error {
	if s.securityLevel == SecurityLevelPermissive {
		return nil
	}
	val, err := vm.RunString(freezeScript)
	if err != nil {
		return err
	}
	freeze, ok := goja.AssertFunction(val)
	if !ok {
		return fmt.Errorf("freeze helper is not a function")
	}
	for _, name := range frozenBuiltins {
		obj := vm.Get(name)
		if obj == nil || goja.IsUndefined(obj) {
			continue
		}
		if _, err := freeze(goja.Undefined(), obj); err != nil {
			s.logger.Debug("builtin not frozen", zap.String("name", name), zap.Error(err))
		}
	}
	return nil
}
