package expr

import "time"

/*
 * Constructor helpers for expression trees.
 *
 * Why function-based: expressions are built in one pass by the query
 * generator and the filters; free functions compose better than a fluent
 * builder carrying hidden state, and they keep the node structs plain
 * data.
 *
 * AndOf/OrOf left-fold their operands, so the nesting produced for a given
 * argument list is deterministic. Empty operands are dropped before
 * folding: the neutral element contributes nothing to either combinator.
 */

// Prop references a named event property.
func Prop(name string) Property {
	return Property{Name: name}
}

// String builds a string literal.
func String(v string) Value {
	return Value{Kind: ValueString, String: v}
}

// Bool builds a boolean literal.
func Bool(v bool) Value {
	return Value{Kind: ValueBool, Bool: v}
}

// Date builds a date literal. The instant is normalized to UTC so the
// textual backend derives identical parameter names for equal instants in
// different zones.
func Date(t time.Time) Value {
	return Value{Kind: ValueDate, Date: t.UTC()}
}

// Entity builds an entity-reference literal from its serialized form.
func Entity(ref string) Value {
	return Value{Kind: ValueEntity, Entity: ref}
}

// Eq builds an equality comparison.
func Eq(left, right Node) Compare {
	return Compare{Kind: CompareEquals, Left: left, Right: right}
}

// Neq builds an inequality comparison.
func Neq(left, right Node) Compare {
	return Compare{Kind: CompareNotEquals, Left: left, Right: right}
}

// Gte builds a greater-or-equal comparison.
func Gte(left, right Node) Compare {
	return Compare{Kind: CompareGreaterOrEquals, Left: left, Right: right}
}

// Lte builds a less-or-equal comparison.
func Lte(left, right Node) Compare {
	return Compare{Kind: CompareLessOrEquals, Left: left, Right: right}
}

// Gt builds a strict greater-than comparison.
func Gt(left, right Node) Compare {
	return Compare{Kind: CompareGreater, Left: left, Right: right}
}

// Lt builds a strict less-than comparison, used for exclusive date
// bounds.
func Lt(left, right Node) Compare {
	return Compare{Kind: CompareLess, Left: left, Right: right}
}

// ImplicitEq builds the engine-generated equality used for the
// hidden-content exclusion. Semantics are identical to Eq; the flag only
// feeds diagnostics.
func ImplicitEq(left, right Node) Compare {
	return Compare{Kind: CompareEquals, Left: left, Right: right, Implicit: true}
}

// AndOf left-folds non-empty operands with And. Returns Empty for no
// operands and the operand itself for exactly one.
func AndOf(nodes ...Node) Node {
	return fold(nodes, func(l, r Node) Node { return And{Left: l, Right: r} })
}

// OrOf left-folds non-empty operands with Or. Returns Empty for no
// operands and the operand itself for exactly one.
func OrOf(nodes ...Node) Node {
	return fold(nodes, func(l, r Node) Node { return Or{Left: l, Right: r} })
}

func fold(nodes []Node, combine func(l, r Node) Node) Node {
	var acc Node = Empty{}
	for _, n := range nodes {
		if IsEmpty(n) {
			continue
		}
		if IsEmpty(acc) {
			acc = n
			continue
		}
		acc = combine(acc, n)
	}
	return acc
}

// InValues builds a membership test against literal values.
func InValues(left Node, values ...Node) In {
	return In{Left: left, Values: values}
}

// NotInValues builds a negated membership test.
func NotInValues(left Node, values ...Node) Not {
	return Not{Child: InValues(left, values...)}
}

// NotInSubquery builds a negated membership test against an opaque
// subquery.
func NotInSubquery(left Node, statement string, params map[string]any) Not {
	return Not{Child: InSubquery{Left: left, Statement: statement, Params: params}}
}

// Prefix builds a literal prefix match.
func Prefix(left, right Node) StartsWith {
	return StartsWith{Left: left, Right: right}
}

// ConcatOf builds string concatenation.
func ConcatOf(left, right Node) Concat {
	return Concat{Left: left, Right: right}
}

// SortBy wraps a child expression with a sort clause.
func SortBy(child Node, property string, direction SortDirection) OrderBy {
	return OrderBy{Child: child, Property: Prop(property), Direction: direction}
}
