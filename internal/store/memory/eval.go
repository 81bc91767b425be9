package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/soliform/notifeed/internal/query"
	"github.com/soliform/notifeed/internal/types"
)

/*
 * In-process condition evaluation.
 *
 * Comparison rules mirror what the relational backend's SQL semantics
 * give: numeric types mix freely (attributes come from JSON), dates
 * compare by instant, prefix matching is literal, and an absent
 * attribute reads as the empty string. Ordering comparisons over
 * incomparable operands are false. Subquery conditions need a
 * relational side table and are rejected with ErrWrongQueryKind.
 *
 * Why function-based: a handful of operators via switch statement is
 * cleaner than interface polymorphism with minimal behavior variation.
 */

// evalAll evaluates the implicit top-level AND of a condition list.
func evalAll(conditions []query.Condition, e types.Event) (bool, error) {
	for _, cond := range conditions {
		ok, err := eval(cond, e)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func eval(cond query.Condition, e types.Event) (bool, error) {
	switch c := cond.(type) {
	case query.CompareCondition:
		return evalCompare(c, e)

	case query.GroupCondition:
		if !c.Or {
			return evalAll(c.Conditions, e)
		}
		if len(c.Conditions) == 0 {
			return true, nil
		}
		for _, sub := range c.Conditions {
			ok, err := eval(sub, e)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case query.InCondition:
		value := fieldValue(e, c.Property)
		found := false
		for _, candidate := range c.Values {
			if compareEqual(value, resolve(candidate, e)) {
				found = true
				break
			}
		}
		return found != c.Negated, nil

	case query.SubqueryCondition:
		return false, fmt.Errorf("%w: subquery conditions need a relational backend", types.ErrWrongQueryKind)

	default:
		return false, fmt.Errorf("%w: unhandled condition %T", types.ErrCompile, cond)
	}
}

func evalCompare(c query.CompareCondition, e types.Event) (bool, error) {
	value := fieldValue(e, c.Property)
	target := resolve(c.Value, e)

	switch c.Op {
	case query.OpEquals:
		return compareEqual(value, target), nil
	case query.OpNotEquals:
		return !compareEqual(value, target), nil
	case query.OpGreaterOrEquals:
		cmp, ok := compareOrder(value, target)
		return ok && cmp >= 0, nil
	case query.OpLessOrEquals:
		cmp, ok := compareOrder(value, target)
		return ok && cmp <= 0, nil
	case query.OpGreater:
		cmp, ok := compareOrder(value, target)
		return ok && cmp > 0, nil
	case query.OpLess:
		cmp, ok := compareOrder(value, target)
		return ok && cmp < 0, nil
	case query.OpStartsWith:
		vs, ok1 := value.(string)
		ps, ok2 := target.(string)
		return ok1 && ok2 && strings.HasPrefix(vs, ps), nil
	default:
		return false, fmt.Errorf("%w: unhandled comparison operator %d", types.ErrCompile, c.Op)
	}
}

// fieldValue maps an event property name to its value. Unknown names
// fall through to the open attribute set.
func fieldValue(e types.Event, property string) any {
	switch property {
	case "id":
		return string(e.ID)
	case "type":
		return e.Type
	case "document":
		return e.Document
	case "date":
		return e.Date
	case "groupId":
		return e.GroupID
	case "wiki":
		return e.Wiki
	case "user":
		return e.User
	case "hidden":
		return e.Hidden
	default:
		return e.Attribute(property)
	}
}

// resolve lowers condition values: property references read the event,
// entity references become their serialized string.
func resolve(v any, e types.Event) any {
	switch value := v.(type) {
	case query.PropertyRef:
		return fieldValue(e, string(value))
	case query.EntityRef:
		return string(value)
	default:
		return v
	}
}

// compareEqual performs equality with numeric type mixing and
// instant-based date comparison. An absent attribute reads as the empty
// string, matching the relational backend's coalesced JSON access.
func compareEqual(a, b any) bool {
	if a == nil {
		a = ""
	}
	if b == nil {
		b = ""
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	return a == b
}

// compareOrder performs three-way comparison (-1/0/1). The second result
// reports whether the operands are comparable at all; absent attributes
// and mixed non-numeric types are not, and every ordering comparison
// over them is false.
func compareOrder(a, b any) (int, bool) {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		switch {
		case ta.Before(tb):
			return -1, true
		case ta.After(tb):
			return 1, true
		default:
			return 0, true
		}
	}
	if na, nb, ok := asNumbers(a, b); ok {
		switch {
		case na < nb:
			return -1, true
		case na > nb:
			return 1, true
		default:
			return 0, true
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb), true
		}
	}
	return 0, false
}

// asNumbers attempts to convert both values to float64 for numeric
// comparison. Handles float64/int/int64 mixing from JSON attributes.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	return na, nb, oka && okb
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
