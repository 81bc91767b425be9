package query

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/soliform/notifeed/internal/expr"
	"github.com/soliform/notifeed/internal/types"
)

/*
 * Textual query backend.
 *
 * Compiles an expression tree into a WHERE/ORDER BY fragment pair with
 * named bound parameters, spliced into base statements by the relational
 * store adapter. The fragment syntax targets ANSI-ish SQL shared by
 * SQLite and PostgreSQL (string concatenation via ||, LIKE ... ESCAPE).
 *
 * Parameter names are content-addressed: p_ + the first 16 hex chars of
 * the BLAKE3 hash of the literal's canonical string form. Identical
 * literals therefore reuse one bound parameter anywhere in the same call,
 * and compiling the same tree twice yields byte-identical output.
 *
 * Property-to-column mapping is the adapter's business: the compiler
 * receives a FieldMapper and never hardcodes column names.
 */

// FieldMapper translates an event property name into the backend's column
// expression. Returning an error aborts compilation.
type FieldMapper func(property string) (string, error)

// Textual is the query representation consumed by relational stores.
type Textual struct {
	// Where is the filter fragment, "" when the query is unrestricted.
	Where string

	// Order is the comma-separated sort fragment, "" when unsorted.
	Order string

	// Params maps bound-parameter names to values.
	Params map[string]any
}

// Statement joins the fragments into a single trailing clause, e.g.
// " WHERE ... ORDER BY ...".
func (t *Textual) Statement() string {
	var b strings.Builder
	if t.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(t.Where)
	}
	if t.Order != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(t.Order)
	}
	return b.String()
}

// CompileTextual translates an expression tree into a textual query using
// the given property-to-column mapper.
func CompileTextual(root expr.Node, mapper FieldMapper) (*Textual, error) {
	c := &textualCompiler{mapper: mapper, params: map[string]any{}}

	filter := root
	var orders []string
	for {
		ob, ok := filter.(expr.OrderBy)
		if !ok {
			break
		}
		column, err := mapper(ob.Property.Name)
		if err != nil {
			return nil, err
		}
		dir := "ASC"
		if ob.Direction == expr.SortDesc {
			dir = "DESC"
		}
		orders = append(orders, column+" "+dir)
		filter = ob.Child
	}

	where, err := c.compileBool(filter)
	if err != nil {
		return nil, err
	}

	return &Textual{
		Where:  where,
		Order:  strings.Join(orders, ", "),
		Params: c.params,
	}, nil
}

type textualCompiler struct {
	mapper FieldMapper
	params map[string]any
}

// compileBool compiles a boolean-valued node. Empty yields "" so AND
// chains can omit it; OR chains substitute the neutral "true".
func (c *textualCompiler) compileBool(n expr.Node) (string, error) {
	switch node := n.(type) {
	case expr.Empty:
		return "", nil

	case expr.Compare:
		return c.compileCompare(node)

	case expr.And:
		left, err := c.compileBool(node.Left)
		if err != nil {
			return "", err
		}
		right, err := c.compileBool(node.Right)
		if err != nil {
			return "", err
		}
		switch {
		case left == "":
			return right, nil
		case right == "":
			return left, nil
		}
		return "(" + left + ") AND (" + right + ")", nil

	case expr.Or:
		left, err := c.compileBool(node.Left)
		if err != nil {
			return "", err
		}
		right, err := c.compileBool(node.Right)
		if err != nil {
			return "", err
		}
		if left == "" {
			left = "true"
		}
		if right == "" {
			right = "true"
		}
		return "(" + left + ") OR (" + right + ")", nil

	case expr.Not:
		child, err := c.compileBool(node.Child)
		if err != nil {
			return "", err
		}
		if child == "" {
			return "", fmt.Errorf("%w: cannot negate the neutral expression", types.ErrCompile)
		}
		return "NOT (" + child + ")", nil

	case expr.In:
		return c.compileIn(node)

	case expr.InSubquery:
		return c.compileSubquery(node)

	case expr.StartsWith:
		return c.compileStartsWith(node)

	case expr.Property, expr.Value, expr.Concat:
		return "", fmt.Errorf("%w: %T is not a boolean expression", types.ErrCompile, n)

	case expr.OrderBy:
		return "", fmt.Errorf("%w: ordering must wrap the expression root", types.ErrCompile)

	default:
		return "", fmt.Errorf("%w: unhandled node %T", types.ErrCompile, n)
	}
}

func (c *textualCompiler) compileCompare(node expr.Compare) (string, error) {
	left, err := c.compileOperand(node.Left)
	if err != nil {
		return "", err
	}
	right, err := c.compileOperand(node.Right)
	if err != nil {
		return "", err
	}

	var op string
	switch node.Kind {
	case expr.CompareEquals:
		op = "="
	case expr.CompareNotEquals:
		op = "<>"
	case expr.CompareGreaterOrEquals:
		op = ">="
	case expr.CompareLessOrEquals:
		op = "<="
	case expr.CompareGreater:
		op = ">"
	case expr.CompareLess:
		op = "<"
	default:
		return "", fmt.Errorf("%w: unknown comparison kind %d", types.ErrCompile, node.Kind)
	}

	return left + " " + op + " " + right, nil
}

func (c *textualCompiler) compileIn(node expr.In) (string, error) {
	if len(node.Values) == 0 {
		return "", fmt.Errorf("%w: membership list is empty", types.ErrCompile)
	}
	left, err := c.compileOperand(node.Left)
	if err != nil {
		return "", err
	}
	placeholders := make([]string, 0, len(node.Values))
	for _, v := range node.Values {
		operand, err := c.compileOperand(v)
		if err != nil {
			return "", err
		}
		placeholders = append(placeholders, operand)
	}
	return left + " IN (" + strings.Join(placeholders, ", ") + ")", nil
}

// compileSubquery embeds the statement and its parameters verbatim.
func (c *textualCompiler) compileSubquery(node expr.InSubquery) (string, error) {
	left, err := c.compileOperand(node.Left)
	if err != nil {
		return "", err
	}
	for name, value := range node.Params {
		c.params[name] = value
	}
	return left + " IN (" + node.Statement + ")", nil
}

// compileStartsWith emits a LIKE prefix match with LIKE wildcards escaped
// so the prefix is matched literally.
func (c *textualCompiler) compileStartsWith(node expr.StartsWith) (string, error) {
	left, err := c.compileOperand(node.Left)
	if err != nil {
		return "", err
	}
	prefix, ok := node.Right.(expr.Value)
	if !ok || prefix.Kind != expr.ValueString {
		return "", fmt.Errorf("%w: prefix match requires a string literal", types.ErrCompile)
	}
	pattern := escapeLike(prefix.String) + "%"
	name := c.bind("l:"+pattern, pattern)
	return left + " LIKE :" + name + " ESCAPE '!'", nil
}

func (c *textualCompiler) compileOperand(n expr.Node) (string, error) {
	switch node := n.(type) {
	case expr.Property:
		return c.mapper(node.Name)

	case expr.Value:
		return c.compileValue(node)

	case expr.Concat:
		left, err := c.compileOperand(node.Left)
		if err != nil {
			return "", err
		}
		right, err := c.compileOperand(node.Right)
		if err != nil {
			return "", err
		}
		return "(" + left + " || " + right + ")", nil

	default:
		return "", fmt.Errorf("%w: %T is not a value expression", types.ErrCompile, n)
	}
}

func (c *textualCompiler) compileValue(v expr.Value) (string, error) {
	switch v.Kind {
	case expr.ValueString:
		return ":" + c.bind("s:"+v.String, v.String), nil
	case expr.ValueBool:
		if v.Bool {
			return ":" + c.bind("b:true", true), nil
		}
		return ":" + c.bind("b:false", false), nil
	case expr.ValueDate:
		canonical := v.Date.UTC().Format(time.RFC3339Nano)
		return ":" + c.bind("d:"+canonical, v.Date.UTC()), nil
	case expr.ValueEntity:
		return ":" + c.bind("e:"+v.Entity, v.Entity), nil
	default:
		return "", fmt.Errorf("%w: literal kind %d", types.ErrBadLiteral, v.Kind)
	}
}

// bind registers a bound parameter under its content-addressed name and
// returns the name. Equal canonical forms always share one parameter.
func (c *textualCompiler) bind(canonical string, value any) string {
	sum := blake3.Sum256([]byte(canonical))
	name := "p_" + hex.EncodeToString(sum[:8])
	c.params[name] = value
	return name
}

// escapeLike escapes LIKE pattern characters with '!' so they match
// themselves.
func escapeLike(s string) string {
	replacer := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return replacer.Replace(s)
}
