package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/sequence"
	"github.com/aretw0/sequence/pkg/deferred"
)

// Default returns a registry holding the built-in steps.
//
//	identity              returns its argument
//	add      {amount}     adds amount to a numeric argument
//	multiply {factor}     multiplies a numeric argument
//	sleep    {duration}   returns its argument after duration, asynchronously
//	fail     {message}    fails the run with message
//	resolve  {value}      resolves the run, with value when given
//	reject   {value}      rejects the run, with value when given
//	exit     {value}      leaves the enclosing loop, with value when given
//	repeat   {times}      loop condition: passes its argument times, then exits
func Default() *Registry {
	r := NewRegistry()
	r.Register("identity", identity)
	r.Register("add", arithmetic("amount", func(a, b float64) float64 { return a + b }))
	r.Register("multiply", arithmetic("factor", func(a, b float64) float64 { return a * b }))
	r.Register("sleep", sleep)
	r.Register("fail", fail)
	r.Register("resolve", control(func(c *sequence.Control, v ...any) { c.Resolve(v...) }))
	r.Register("reject", control(func(c *sequence.Control, v ...any) { c.Reject(v...) }))
	r.Register("exit", control(func(c *sequence.Control, v ...any) { c.ExitLoop(v...) }))
	r.Register("repeat", repeat)
	return r
}

func identity(params map[string]any) (sequence.StepFunc, error) {
	if err := Decode(params, &struct{}{}); err != nil {
		return nil, err
	}
	return func(_ *sequence.Control, arg any) (any, error) {
		return arg, nil
	}, nil
}

func arithmetic(key string, op func(a, b float64) float64) Factory {
	return func(params map[string]any) (sequence.StepFunc, error) {
		operand, ok := params[key]
		if !ok {
			return nil, fmt.Errorf("missing parameter %q", key)
		}
		b, err := ToFloat(operand)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		return func(_ *sequence.Control, arg any) (any, error) {
			a, err := ToFloat(arg)
			if err != nil {
				return nil, err
			}
			return op(a, b), nil
		}, nil
	}
}

func sleep(params map[string]any) (sequence.StepFunc, error) {
	var cfg struct {
		Duration time.Duration `mapstructure:"duration"`
	}
	if err := Decode(params, &cfg); err != nil {
		return nil, err
	}
	return func(_ *sequence.Control, arg any) (any, error) {
		return deferred.Go(func() (any, error) {
			time.Sleep(cfg.Duration)
			return arg, nil
		}), nil
	}, nil
}

func fail(params map[string]any) (sequence.StepFunc, error) {
	var cfg struct {
		Message string `mapstructure:"message"`
	}
	if err := Decode(params, &cfg); err != nil {
		return nil, err
	}
	if cfg.Message == "" {
		cfg.Message = "step failed"
	}
	return func(_ *sequence.Control, _ any) (any, error) {
		return nil, errors.New(cfg.Message)
	}, nil
}

func control(raise func(c *sequence.Control, v ...any)) Factory {
	return func(params map[string]any) (sequence.StepFunc, error) {
		value, hasValue := params["value"]
		rest := make(map[string]any, len(params))
		for k, v := range params {
			if k != "value" {
				rest[k] = v
			}
		}
		if err := Decode(rest, &struct{}{}); err != nil {
			return nil, err
		}
		return func(c *sequence.Control, arg any) (any, error) {
			if hasValue {
				raise(c, value)
			} else {
				raise(c)
			}
			return arg, nil
		}, nil
	}
}

// repeat passes the loop's argument through until the body has run times
// times, then exits the loop with it.
func repeat(params map[string]any) (sequence.StepFunc, error) {
	var cfg struct {
		Times int `mapstructure:"times"`
	}
	if err := Decode(params, &cfg); err != nil {
		return nil, err
	}
	if cfg.Times < 0 {
		return nil, fmt.Errorf("times must not be negative, got %d", cfg.Times)
	}

	return func(c *sequence.Control, arg any) (any, error) {
		if c.Iteration() >= cfg.Times {
			c.ExitLoop()
		}
		return arg, nil
	}, nil
}

// ToFloat converts the numeric shapes found in decoded YAML and JSON.
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("not a number: %v (%T)", v, v)
	}
}
