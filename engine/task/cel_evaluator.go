package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

const (
	defaultCostLimit  = uint64(1000)
	defaultCacheSize  = int64(256)
	cacheNumCounters  = int64(1000)
	cacheBufferItems  = int64(64)
)

// CELEvaluator compiles and evaluates boolean CEL expressions against
// signal/processor/payload/headers/query variables, used by condition gates
// (task router, collection filters) and webhook event filters alike.
type CELEvaluator struct {
	env          *cel.Env
	costLimit    uint64
	programCache *ristretto.Cache[string, cel.Program]
}

// Option configures a CELEvaluator.
type Option func(*celOptions)

type celOptions struct {
	costLimit uint64
	cacheSize int64
}

// WithCostLimit caps the interpreter cost budget per evaluation.
func WithCostLimit(limit uint64) Option {
	return func(o *celOptions) { o.costLimit = limit }
}

// WithCacheSize bounds the number of compiled programs kept in cache.
func WithCacheSize(size int64) Option {
	return func(o *celOptions) { o.cacheSize = size }
}

// NewCELEvaluator builds an evaluator with signal/processor/payload/headers/
// query declared as dynamic variables, matching every shape task conditions
// and webhook filters need to reach into.
func NewCELEvaluator(opts ...Option) (*CELEvaluator, error) {
	cfg := celOptions{costLimit: defaultCostLimit, cacheSize: defaultCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	env, err := cel.NewEnv(
		cel.Variable("signal", cel.DynType),
		cel.Variable("processor", cel.DynType),
		cel.Variable("payload", cel.DynType),
		cel.Variable("headers", cel.DynType),
		cel.Variable("query", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("cel: failed to build environment: %w", err)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, cel.Program]{
		NumCounters: cacheNumCounters,
		MaxCost:     cfg.cacheSize,
		BufferItems: cacheBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("cel: failed to build program cache: %w", err)
	}

	return &CELEvaluator{env: env, costLimit: cfg.costLimit, programCache: cache}, nil
}

// ValidateExpression compiles expr and checks it type-checks to a boolean,
// without evaluating it.
func (e *CELEvaluator) ValidateExpression(expr string) error {
	_, err := e.compile(expr)
	return err
}

// Evaluate compiles (or reuses a cached compilation of) expr and evaluates it
// against data, which may set any of signal/processor/payload/headers/query.
func (e *CELEvaluator) Evaluate(ctx context.Context, expr string, data map[string]any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("cel: context error: %w", err)
	}

	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}

	vars := map[string]any{
		"signal":    data["signal"],
		"processor": data["processor"],
		"payload":   data["payload"],
		"headers":   data["headers"],
		"query":     data["query"],
	}

	out, _, err := prg.ContextEval(ctx, vars)
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("cel: context error: %w", err)
		}
		if strings.Contains(err.Error(), "cost limit") {
			return false, fmt.Errorf("cel: expression exceeded cost limit: %w", err)
		}
		return false, fmt.Errorf("cel: evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("cel: expression must evaluate to a boolean, got %s", out.Type().TypeName())
	}
	return result, nil
}

func (e *CELEvaluator) program(expr string) (cel.Program, error) {
	if prg, ok := e.programCache.Get(expr); ok {
		return prg, nil
	}
	prg, err := e.compile(expr)
	if err != nil {
		return nil, err
	}
	e.programCache.Set(expr, prg, 1)
	e.programCache.Wait()
	return prg, nil
}

func (e *CELEvaluator) compile(expr string) (cel.Program, error) {
	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("cel: compilation error: %w", iss.Err())
	}
	if ast.OutputType() != types.BoolType && ast.OutputType() != cel.DynType {
		return nil, fmt.Errorf("cel: expression must evaluate to a boolean, got %s", ast.OutputType())
	}
	prg, err := e.env.Program(ast,
		cel.EvalOptions(cel.OptTrackCost),
		cel.CostLimit(e.costLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("cel: failed to build program: %w", err)
	}
	return prg, nil
}
