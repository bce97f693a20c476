package visibility

// Evaluator determines whether a field should be visible based on its rule
// string and the current response values. Implementations must be pure and
// total: a rule the evaluator cannot make sense of yields visible, never an
// error, so a broken rule can not hide content.
type Evaluator interface {
	Eval(rule string, ctx Context) bool
}

// Context provides inputs to an Evaluator. Values is the flat response map
// keyed by field name; rules reference fields only through these keys.
type Context struct {
	Values map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(rule string, ctx Context) bool

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(rule string, ctx Context) bool {
	return fn(rule, ctx)
}
