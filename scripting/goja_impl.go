package scripting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// GojaEngine runs scripts on one goja runtime. It is not safe for
// concurrent use.
type GojaEngine struct {
	vm      *goja.Runtime
	timeout time.Duration
}

type EngineOption func(*GojaEngine)

// WithTimeout interrupts scripts that run longer than d.
func WithTimeout(d time.Duration) EngineOption { return func(e *GojaEngine) { e.timeout = d } }

// NewEngine exposes Go fields by their json tag and methods in lower camel
// case.
func NewEngine(opts ...EngineOption) *GojaEngine {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	e := &GojaEngine{vm: vm}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs script and exports its completion value. A canceled ctx or
// an expired timeout interrupts the script and its cause is returned.
func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()
	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := e.vm.RunString(script)
	var interrupted *goja.InterruptedError
	var exception *goja.Exception
	switch {
	case err == nil:
		return val.Export(), nil
	case errors.As(err, &interrupted):
		if cause, ok := interrupted.Value().(error); ok && cause != nil {
			return nil, cause
		}
		return nil, context.Canceled
	case errors.As(err, &exception):
		return nil, fmt.Errorf("script error: %s", exception.Error())
	default:
		return nil, err
	}
}

// RegisterDOM installs the globals log, pageCount and page.
func (e *GojaEngine) RegisterDOM(dom DocumentDOM) error {
	globals := map[string]func(goja.FunctionCall) goja.Value{
		"log": func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			dom.Log(strings.Join(parts, " "))
			return goja.Undefined()
		},
		"pageCount": func(goja.FunctionCall) goja.Value {
			return e.vm.ToValue(dom.PageCount())
		},
		"page": func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) < 1 {
				return goja.Undefined()
			}
			page, err := dom.Page(int(call.Arguments[0].ToInteger()))
			if err != nil || page == nil {
				return goja.Null()
			}
			return e.vm.ToValue(page)
		},
	}
	for name, fn := range globals {
		if err := e.vm.Set(name, fn); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}
	return nil
}
