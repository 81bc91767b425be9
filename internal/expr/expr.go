// Package expr provides the filter expression tree compiled by the query
// backends.
package expr

import "time"

/*
 * Expression AST for notification queries.
 *
 * A closed tagged union of immutable nodes: comparisons, boolean
 * combinators, property/value references, membership tests and ordering.
 * The two compiler backends in internal/query visit the union with
 * exhaustive type switches, so an unhandled node kind is a compile-time
 * gap in the backend rather than a runtime lookup failure.
 *
 * Invariants:
 *   - Nodes are never mutated after construction; combinators return new
 *     nodes and share children.
 *   - Empty compiles to "no restriction" in both backends: omitted from
 *     AND chains, neutral in OR chains.
 *   - And/Or nesting is preserved exactly as built (no flattening);
 *     downstream consumers rely on positional condition ordering.
 */

// Node is one node of the expression tree. The set of implementations is
// closed; backends must handle every kind.
type Node interface {
	isNode()
}

// Empty is the neutral expression. It compiles to no condition.
type Empty struct{}

// Property references a named event property ("type", "date", "user", or
// a free-form attribute name).
type Property struct {
	Name string
}

// ValueKind discriminates the literal kinds a Value can hold.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueBool
	ValueDate
	ValueEntity
)

// Value is a literal leaf: a string, boolean, date, or entity reference.
// Exactly one field matching Kind is meaningful.
type Value struct {
	Kind   ValueKind
	String string
	Bool   bool
	Date   time.Time
	Entity string
}

// CompareKind identifies a comparison operator.
type CompareKind int

const (
	CompareEquals CompareKind = iota
	CompareNotEquals
	CompareGreaterOrEquals
	CompareLessOrEquals
	CompareGreater
	CompareLess
)

// Compare is a binary comparison between two sub-expressions.
//
// Implicit marks the single engine-generated comparison (the hidden-content
// exclusion) so diagnostics can tell it apart from user-authored
// comparisons. It does not change evaluation semantics.
type Compare struct {
	Kind     CompareKind
	Left     Node
	Right    Node
	Implicit bool
}

// And requires both children to hold.
type And struct {
	Left  Node
	Right Node
}

// Or requires at least one child to hold.
type Or struct {
	Left  Node
	Right Node
}

// Not negates its child. Backends support negation only around In and
// Equals shapes; anything else is a compilation error.
type Not struct {
	Child Node
}

// In tests membership of Left in a literal value list.
type In struct {
	Left   Node
	Values []Node
}

// InSubquery tests membership of Left in the result of an opaque textual
// subquery. Statement and Params are embedded verbatim; the compiler never
// parses or optimizes them.
type InSubquery struct {
	Left      Node
	Statement string
	Params    map[string]any
}

// StartsWith is a prefix match. Backends must escape their wildcard
// characters so the prefix is matched literally.
type StartsWith struct {
	Left  Node
	Right Node
}

// Concat is string concatenation of two sub-expressions.
type Concat struct {
	Left  Node
	Right Node
}

// SortDirection orders a sort clause.
type SortDirection int

const (
	SortAsc SortDirection = iota
	SortDesc
)

// OrderBy attaches a sort clause to a child expression. Multiple OrderBy
// wrappers stack; the outermost is the primary sort.
type OrderBy struct {
	Child     Node
	Property  Property
	Direction SortDirection
}

func (Empty) isNode()      {}
func (Property) isNode()   {}
func (Value) isNode()      {}
func (Compare) isNode()    {}
func (And) isNode()        {}
func (Or) isNode()         {}
func (Not) isNode()        {}
func (In) isNode()         {}
func (InSubquery) isNode() {}
func (StartsWith) isNode() {}
func (Concat) isNode()     {}
func (OrderBy) isNode()    {}

// IsEmpty reports whether the node is the neutral expression.
func IsEmpty(n Node) bool {
	_, ok := n.(Empty)
	return ok || n == nil
}
