// Package analyzer implements the security analyzer: four independent
// sub-passes — pattern matching, AST structural rules, taint analysis,
// and capability-declaration checking — run concurrently and merged into
// one deduplicated diagnostic list, kept in pass order (pattern, AST,
// taint, capability declaration) rather than sorted by severity.
//
// The pattern sub-pass is expressed as Datalog and evaluated with a
// Google Mangle engine wrapper (the AST rule sub-pass is a plain Go walk
// in ast_rules.go): facts are asserted from
// one AST walk, a small fixed rule schema decides which combinations are
// findings, and results are read back out as Diagnostics. The engine is
// re-created per compilation unit: load schema, assert one unit's facts,
// evaluate, read results, discard.
package analyzer

import (
	"bytes"
	"fmt"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	_ "github.com/google/mangle/packages"
	"github.com/google/mangle/parse"
)

// ruleEngine is a one-shot Datalog evaluator: load a fixed rule schema,
// assert facts, evaluate, query. Not safe for concurrent fact insertion —
// the analyzer driver gives each sub-pass its own instance.
type ruleEngine struct {
	store          factstore.FactStoreWithRemove
	programInfo    *analysis.ProgramInfo
	queryContext   *mengine.QueryContext
	predicateIndex map[string]ast.PredicateSym
}

func newRuleEngine(schema string) (*ruleEngine, error) {
	unit, err := parse.Unit(bytes.NewReader([]byte(schema)))
	if err != nil {
		return nil, fmt.Errorf("analyzer: parse rule schema: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(parse.SourceUnit{Clauses: unit.Clauses, Decls: unit.Decls}, nil)
	if err != nil {
		return nil, fmt.Errorf("analyzer: analyze rule schema: %w", err)
	}
	store := factstore.NewSimpleInMemoryStore()

	predIndex := make(map[string]ast.PredicateSym, len(programInfo.Decls))
	predToDecl := make(map[ast.PredicateSym]*ast.Decl, len(programInfo.Decls))
	for sym, decl := range programInfo.Decls {
		predIndex[sym.Symbol] = sym
		predToDecl[sym] = decl
	}
	predToRules := make(map[ast.PredicateSym][]ast.Clause)
	for _, clause := range programInfo.Rules {
		predToRules[clause.Head.Predicate] = append(predToRules[clause.Head.Predicate], clause)
	}

	return &ruleEngine{
		store:          store,
		programInfo:    programInfo,
		predicateIndex: predIndex,
		queryContext: &mengine.QueryContext{
			PredToRules: predToRules,
			PredToDecl:  predToDecl,
			Store:       store,
		},
	}, nil
}

// assert adds one fact for predicate built from string/int/bool args.
func (e *ruleEngine) assert(predicate string, args ...interface{}) error {
	sym, ok := e.predicateIndex[predicate]
	if !ok {
		return fmt.Errorf("analyzer: predicate %q not declared in rule schema", predicate)
	}
	if len(args) != sym.Arity {
		return fmt.Errorf("analyzer: predicate %q expects %d args, got %d", predicate, sym.Arity, len(args))
	}
	terms := make([]ast.BaseTerm, len(args))
	for i, a := range args {
		t, err := toTerm(a)
		if err != nil {
			return err
		}
		terms[i] = t
	}
	e.store.Add(ast.Atom{Predicate: sym, Args: terms})
	return nil
}

func toTerm(value interface{}) (ast.BaseTerm, error) {
	switch v := value.(type) {
	case string:
		return ast.String(v), nil
	case int:
		return ast.Number(int64(v)), nil
	case int64:
		return ast.Number(v), nil
	case bool:
		if v {
			return ast.TrueConstant, nil
		}
		return ast.FalseConstant, nil
	default:
		return nil, fmt.Errorf("analyzer: unsupported fact argument type %T", value)
	}
}

// evaluate runs the fixed-point computation over every asserted fact.
func (e *ruleEngine) evaluate() error {
	_, err := mengine.EvalProgramWithStats(e.programInfo, e.store)
	return err
}

// row is one binding of a query's variables, keyed by argument index.
type row []interface{}

// query evaluates a derived predicate and returns every matching row's
// arguments, converted back to Go values.
func (e *ruleEngine) query(predicate string) ([]row, error) {
	sym, ok := e.predicateIndex[predicate]
	if !ok {
		return nil, fmt.Errorf("analyzer: predicate %q not declared in rule schema", predicate)
	}
	var rows []row
	err := e.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		r := make(row, len(atom.Args))
		for i, arg := range atom.Args {
			r[i] = fromTerm(arg)
		}
		rows = append(rows, r)
		return nil
	})
	return rows, err
}

func fromTerm(term ast.BaseTerm) interface{} {
	c, ok := term.(ast.Constant)
	if !ok {
		return fmt.Sprintf("%v", term)
	}
	switch c.Type {
	case ast.StringType, ast.NameType, ast.BytesType:
		return c.Symbol
	case ast.NumberType:
		return int(c.NumValue)
	default:
		return c.String()
	}
}
