package stock

import (
	"fmt"
	"reflect"

	"github.com/google/cel-go/cel"

	"ledgercore/internal/core/id"
)

// Guard expressions shipped with the ledger.
const (
	// DenyOversellExpr lets stock grow freely but never decrease below zero.
	DenyOversellExpr = "delta >= 0 || stock_after >= 0"
	// AllowOversellExpr accepts every level.
	AllowOversellExpr = "true"
)

// Check is the input a Guard decides on.
type Check struct {
	ProductID   id.ID
	SKU         string
	StockBefore int64
	Delta       int64
	StockAfter  int64
	Source      Source
}

// Guard is a compiled boolean CEL expression that decides whether a stock
// level produced by a delta is acceptable. Programs are safe for concurrent use.
type Guard struct {
	expr    string
	program cel.Program
}

var guardEnv = func() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("product_id", cel.StringType),
		cel.Variable("sku", cel.StringType),
		cel.Variable("stock_before", cel.IntType),
		cel.Variable("delta", cel.IntType),
		cel.Variable("stock_after", cel.IntType),
		cel.Variable("source", cel.StringType),
	)
	if err != nil {
		panic(fmt.Sprintf("stock guard env: %v", err))
	}
	return env
}()

// NewGuard compiles expr. The expression must evaluate to a bool.
func NewGuard(expr string) (*Guard, error) {
	ast, issues := guardEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile stock guard %q: %w", expr, issues.Err())
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("stock guard %q must return bool, got %v", expr, ast.OutputType())
	}

	program, err := guardEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build stock guard %q: %w", expr, err)
	}
	return &Guard{expr: expr, program: program}, nil
}

// MustGuard is NewGuard that panics. Use for the built-in expressions.
func MustGuard(expr string) *Guard {
	g, err := NewGuard(expr)
	if err != nil {
		panic(err)
	}
	return g
}

// DenyOversell returns the strict no-negative-stock guard.
func DenyOversell() *Guard { return MustGuard(DenyOversellExpr) }

// AllowOversell returns a guard that accepts negative stock.
func AllowOversell() *Guard { return MustGuard(AllowOversellExpr) }

// Allow evaluates the guard for c.
func (g *Guard) Allow(c Check) (bool, error) {
	out, _, err := g.program.Eval(map[string]any{
		"product_id":   c.ProductID.String(),
		"sku":          c.SKU,
		"stock_before": c.StockBefore,
		"delta":        c.Delta,
		"stock_after":  c.StockAfter,
		"source":       string(c.Source),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate stock guard %q: %w", g.expr, err)
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("stock guard %q returned %T", g.expr, out.Value())
	}
	return allowed, nil
}

// String returns the source expression.
func (g *Guard) String() string { return g.expr }

// Policy bundles the configurable stock rules.
type Policy struct {
	// Guard decides whether a resulting level is acceptable.
	Guard *Guard
	// RejectInactive refuses movements on inactive products, except compensating ones.
	RejectInactive bool
}

// DefaultPolicy denies oversell and rejects inactive products.
func DefaultPolicy() Policy {
	return Policy{Guard: DenyOversell(), RejectInactive: true}
}
