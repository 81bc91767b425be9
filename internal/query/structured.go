// Package query provides the two compiler backends for filter expression
// trees: a structured query object consumed by embedded event stores, and
// a parameterized textual query for relational backends.
package query

import (
	"fmt"

	"github.com/soliform/notifeed/internal/expr"
	"github.com/soliform/notifeed/internal/types"
)

/*
 * Structured query representation and compiler.
 *
 * Structured is an ordered list of typed conditions plus ordered sort
 * clauses. The top-level And spine of the expression tree becomes the
 * condition list (implicit AND, generator-visible ordering); everything
 * below it compiles to nested group conditions whose nesting is preserved
 * exactly as built.
 *
 * Negation is supported only where the embedded stores can evaluate it:
 * around membership tests (negated IN), subquery membership, and equality
 * comparisons (operator flip). Any other negated shape is a compilation
 * error, surfaced before anything is executed.
 *
 * Why an exhaustive type switch: the expression union is closed, so a new
 * node kind fails loudly here instead of falling through a runtime
 * component lookup.
 */

// CompareOp identifies a structured comparison operator.
type CompareOp int

const (
	OpEquals CompareOp = iota
	OpNotEquals
	OpGreaterOrEquals
	OpLessOrEquals
	OpGreater
	OpLess
	OpStartsWith
)

// PropertyRef marks a condition value that references another event
// property instead of a literal.
type PropertyRef string

// EntityRef marks a literal that is a serialized entity reference.
type EntityRef string

// Condition is one typed condition of a structured query. The set of
// implementations is closed: comparison, group, membership, subquery
// membership.
type Condition interface {
	isCondition()
}

// CompareCondition compares an event property against a literal or another
// property.
//
// Implicit carries the diagnostic flag of the engine-generated
// hidden-content exclusion.
type CompareCondition struct {
	Property string
	Op       CompareOp
	Value    any
	Implicit bool
}

// GroupCondition nests conditions combined with AND, or with OR when Or is
// set.
type GroupCondition struct {
	Or         bool
	Conditions []Condition
}

// InCondition tests membership of a property in a literal value list.
type InCondition struct {
	Property string
	Values   []any
	Negated  bool
}

// SubqueryCondition tests membership of a property in the result of an
// opaque textual subquery, embedded verbatim. Stores without a relational
// side table reject it at execution time.
type SubqueryCondition struct {
	Property  string
	Statement string
	Params    map[string]any
	Negated   bool
}

func (CompareCondition) isCondition()  {}
func (GroupCondition) isCondition()    {}
func (InCondition) isCondition()       {}
func (SubqueryCondition) isCondition() {}

// Sort is one ordered sort clause.
type Sort struct {
	Property   string
	Descending bool
}

// Structured is the query representation consumed by embedded event
// stores.
type Structured struct {
	Conditions []Condition
	Sorts      []Sort
	Limit      int
	Offset     int
}

// CompileStructured translates an expression tree into a structured query.
// An Empty root yields a query with no conditions (no restriction).
func CompileStructured(root expr.Node) (*Structured, error) {
	q := &Structured{}

	filter, err := collectSorts(root, &q.Sorts)
	if err != nil {
		return nil, err
	}

	if err := compileSpine(filter, &q.Conditions); err != nil {
		return nil, err
	}
	return q, nil
}

// collectSorts peels OrderBy wrappers off the root, outermost first, and
// returns the remaining filter expression.
func collectSorts(n expr.Node, sorts *[]Sort) (expr.Node, error) {
	for {
		ob, ok := n.(expr.OrderBy)
		if !ok {
			return n, nil
		}
		*sorts = append(*sorts, Sort{
			Property:   ob.Property.Name,
			Descending: ob.Direction == expr.SortDesc,
		})
		n = ob.Child
	}
}

// compileSpine flattens the top-level And chain into the ordered condition
// list. Nested expressions keep their grouping.
func compileSpine(n expr.Node, out *[]Condition) error {
	if expr.IsEmpty(n) {
		return nil
	}
	if and, ok := n.(expr.And); ok {
		if err := compileSpine(and.Left, out); err != nil {
			return err
		}
		return compileSpine(and.Right, out)
	}
	cond, ok, err := compileCondition(n)
	if err != nil {
		return err
	}
	if ok {
		*out = append(*out, cond)
	}
	return nil
}

// compileCondition translates one non-spine node. The boolean result is
// false when the node is neutral (Empty) and contributes nothing.
func compileCondition(n expr.Node) (Condition, bool, error) {
	switch node := n.(type) {
	case expr.Empty:
		return nil, false, nil

	case expr.Compare:
		return compileCompare(node)

	case expr.And:
		group := GroupCondition{}
		if err := appendGroup(&group, node.Left); err != nil {
			return nil, false, err
		}
		if err := appendGroup(&group, node.Right); err != nil {
			return nil, false, err
		}
		return group, true, nil

	case expr.Or:
		group := GroupCondition{Or: true}
		if err := appendGroup(&group, node.Left); err != nil {
			return nil, false, err
		}
		if err := appendGroup(&group, node.Right); err != nil {
			return nil, false, err
		}
		return group, true, nil

	case expr.In:
		return compileIn(node, false)

	case expr.InSubquery:
		return compileSubquery(node, false)

	case expr.StartsWith:
		prop, ok := node.Left.(expr.Property)
		if !ok {
			return nil, false, fmt.Errorf("%w: prefix match requires a property operand", types.ErrCompile)
		}
		prefix, ok := node.Right.(expr.Value)
		if !ok || prefix.Kind != expr.ValueString {
			return nil, false, fmt.Errorf("%w: prefix match requires a string literal", types.ErrCompile)
		}
		return CompareCondition{Property: prop.Name, Op: OpStartsWith, Value: prefix.String}, true, nil

	case expr.Not:
		return compileNot(node)

	case expr.Property, expr.Value, expr.Concat:
		return nil, false, fmt.Errorf("%w: %T is not a condition in the structured backend", types.ErrCompile, n)

	case expr.OrderBy:
		return nil, false, fmt.Errorf("%w: ordering must wrap the expression root", types.ErrCompile)

	default:
		return nil, false, fmt.Errorf("%w: unhandled node %T", types.ErrCompile, n)
	}
}

// appendGroup compiles a child into a group, dropping neutral children.
func appendGroup(group *GroupCondition, n expr.Node) error {
	cond, ok, err := compileCondition(n)
	if err != nil {
		return err
	}
	if ok {
		group.Conditions = append(group.Conditions, cond)
	}
	return nil
}

func compileCompare(node expr.Compare) (Condition, bool, error) {
	prop, ok := node.Left.(expr.Property)
	if !ok {
		return nil, false, fmt.Errorf("%w: comparison requires a property on the left", types.ErrCompile)
	}

	value, err := operandValue(node.Right)
	if err != nil {
		return nil, false, err
	}

	var op CompareOp
	switch node.Kind {
	case expr.CompareEquals:
		op = OpEquals
	case expr.CompareNotEquals:
		op = OpNotEquals
	case expr.CompareGreaterOrEquals:
		op = OpGreaterOrEquals
	case expr.CompareLessOrEquals:
		op = OpLessOrEquals
	case expr.CompareGreater:
		op = OpGreater
	case expr.CompareLess:
		op = OpLess
	default:
		return nil, false, fmt.Errorf("%w: unknown comparison kind %d", types.ErrCompile, node.Kind)
	}

	return CompareCondition{Property: prop.Name, Op: op, Value: value, Implicit: node.Implicit}, true, nil
}

func compileIn(node expr.In, negated bool) (Condition, bool, error) {
	prop, ok := node.Left.(expr.Property)
	if !ok {
		return nil, false, fmt.Errorf("%w: membership requires a property operand", types.ErrCompile)
	}
	if len(node.Values) == 0 {
		return nil, false, fmt.Errorf("%w: membership list is empty", types.ErrCompile)
	}
	values := make([]any, 0, len(node.Values))
	for _, v := range node.Values {
		value, err := operandValue(v)
		if err != nil {
			return nil, false, err
		}
		values = append(values, value)
	}
	return InCondition{Property: prop.Name, Values: values, Negated: negated}, true, nil
}

func compileSubquery(node expr.InSubquery, negated bool) (Condition, bool, error) {
	prop, ok := node.Left.(expr.Property)
	if !ok {
		return nil, false, fmt.Errorf("%w: subquery membership requires a property operand", types.ErrCompile)
	}
	return SubqueryCondition{
		Property:  prop.Name,
		Statement: node.Statement,
		Params:    node.Params,
		Negated:   negated,
	}, true, nil
}

// compileNot lowers the supported negated shapes: membership, subquery
// membership, and equality comparisons (operator flip).
func compileNot(node expr.Not) (Condition, bool, error) {
	switch child := node.Child.(type) {
	case expr.In:
		return compileIn(child, true)
	case expr.InSubquery:
		return compileSubquery(child, true)
	case expr.Compare:
		flipped := child
		switch child.Kind {
		case expr.CompareEquals:
			flipped.Kind = expr.CompareNotEquals
		case expr.CompareNotEquals:
			flipped.Kind = expr.CompareEquals
		default:
			return nil, false, fmt.Errorf("%w: cannot negate ordering comparison", types.ErrCompile)
		}
		return compileCompare(flipped)
	default:
		return nil, false, fmt.Errorf("%w: cannot negate %T in the structured backend", types.ErrCompile, node.Child)
	}
}

// operandValue lowers a value or property operand to its Go representation.
func operandValue(n expr.Node) (any, error) {
	switch node := n.(type) {
	case expr.Value:
		switch node.Kind {
		case expr.ValueString:
			return node.String, nil
		case expr.ValueBool:
			return node.Bool, nil
		case expr.ValueDate:
			return node.Date, nil
		case expr.ValueEntity:
			return EntityRef(node.Entity), nil
		default:
			return nil, fmt.Errorf("%w: literal kind %d", types.ErrBadLiteral, node.Kind)
		}
	case expr.Property:
		return PropertyRef(node.Name), nil
	default:
		return nil, fmt.Errorf("%w: operand %T is not a literal or property", types.ErrCompile, n)
	}
}
