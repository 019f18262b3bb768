package golang

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/broady/proxykit"
)

// FormatLiteral formats a default value as a Go expression that ParseLiteral
// reads back. Slices and arrays become []any{...}; maps become
// map[any]any{...}, with Go map keys sorted and proxykit.Map order kept.
func FormatLiteral(v any) (string, error) {
	var b strings.Builder
	if err := formatLiteral(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func formatLiteral(b *strings.Builder, v any) error {
	switch x := v.(type) {
	case nil:
		b.WriteString("nil")
		return nil
	case bool:
		b.WriteString(strconv.FormatBool(x))
		return nil
	case string:
		b.WriteString(strconv.Quote(x))
		return nil
	case float32:
		return formatFloat(b, float64(x), 32)
	case float64:
		return formatFloat(b, x, 64)
	case rune:
		if utf8.ValidRune(x) {
			b.WriteString(strconv.QuoteRune(x))
		} else {
			b.WriteString(strconv.FormatInt(int64(x), 10))
		}
		return nil
	case proxykit.Map:
		return formatMapEntries(b, x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.String:
		b.WriteString(strconv.Quote(rv.String()))
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(rv.Bool()))
	case reflect.Float32, reflect.Float64:
		return formatFloat(b, rv.Float(), rv.Type().Bits())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			b.WriteString("nil")
			return nil
		}
		b.WriteString("[]any{")
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := formatLiteral(b, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		b.WriteString("}")
	case reflect.Map:
		if rv.IsNil() {
			b.WriteString("nil")
			return nil
		}
		entries := make(proxykit.Map, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, proxykit.MapEntry{Key: iter.Key().Interface(), Value: iter.Value().Interface()})
		}
		keys := make([]string, len(entries))
		for i, e := range entries {
			k, err := FormatLiteral(e.Key)
			if err != nil {
				return err
			}
			keys[i] = k
		}
		sort.Sort(byKey{entries, keys})
		return formatMapEntries(b, entries)
	default:
		return fmt.Errorf("unsupported default value of type %T", v)
	}
	return nil
}

type byKey struct {
	entries proxykit.Map
	keys    []string
}

func (s byKey) Len() int           { return len(s.keys) }
func (s byKey) Less(i, j int) bool { return s.keys[i] < s.keys[j] }
func (s byKey) Swap(i, j int) {
	s.entries[i], s.entries[j] = s.entries[j], s.entries[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}

func formatMapEntries(b *strings.Builder, m proxykit.Map) error {
	b.WriteString("map[any]any{")
	for i, e := range m {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := formatLiteral(b, e.Key); err != nil {
			return err
		}
		b.WriteString(": ")
		if err := formatLiteral(b, e.Value); err != nil {
			return err
		}
	}
	b.WriteString("}")
	return nil
}

// formatFloat always produces a literal that parses back as a float.
func formatFloat(b *strings.Builder, f float64, bits int) error {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return fmt.Errorf("unsupported default value %v", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	b.WriteString(s)
	return nil
}

// ParseLiteral evaluates a Go expression produced by FormatLiteral.
// Integer literals yield int, or uint64 above math.MaxInt64. Float literals
// yield float64 and character literals rune. []any{...} yields []any and map[any]any{...} yields proxykit.Map.
func ParseLiteral(src string) (any, error) {
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("parse literal %q: %w", src, err)
	}
	v, err := evalLiteral(expr)
	if err != nil {
		return nil, fmt.Errorf("literal %q: %w", src, err)
	}
	return v, nil
}

func evalLiteral(expr ast.Expr) (any, error) {
	switch e := expr.(type) {
	case *ast.ParenExpr:
		return evalLiteral(e.X)
	case *ast.Ident:
		switch e.Name {
		case "nil":
			return nil, nil
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("unsupported identifier %s in literal", e.Name)
	case *ast.BasicLit:
		return evalBasic(e)
	case *ast.UnaryExpr:
		// The magnitude of math.MinInt64 does not fit in an int.
		if lit, ok := e.X.(*ast.BasicLit); ok && lit.Kind == token.INT && e.Op == token.SUB {
			n, err := strconv.ParseInt("-"+lit.Value, 0, 64)
			if err != nil {
				return nil, err
			}
			return int(n), nil
		}
		v, err := evalLiteral(e.X)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case token.ADD:
			switch v.(type) {
			case int, uint64, float64:
				return v, nil
			}
		case token.SUB:
			switch n := v.(type) {
			case int:
				return -n, nil
			case float64:
				return -n, nil
			}
		}
		return nil, fmt.Errorf("unsupported unary %s in literal", e.Op)
	case *ast.CompositeLit:
		return evalComposite(e)
	}
	return nil, fmt.Errorf("unsupported expression %T in literal", expr)
}

func evalBasic(lit *ast.BasicLit) (any, error) {
	switch lit.Kind {
	case token.INT:
		n, err := strconv.ParseInt(lit.Value, 0, 64)
		if err == nil {
			return int(n), nil
		}
		u, uerr := strconv.ParseUint(lit.Value, 0, 64)
		if uerr != nil {
			return nil, err
		}
		return u, nil
	case token.FLOAT:
		return strconv.ParseFloat(lit.Value, 64)
	case token.STRING:
		return strconv.Unquote(lit.Value)
	case token.CHAR:
		r, _, _, err := strconv.UnquoteChar(lit.Value[1:len(lit.Value)-1], '\'')
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("unsupported literal %s", lit.Value)
}

func evalComposite(lit *ast.CompositeLit) (any, error) {
	switch t := lit.Type.(type) {
	case *ast.ArrayType:
		if t.Len != nil || !isAnyType(t.Elt) {
			break
		}
		out := make([]any, 0, len(lit.Elts))
		for _, elt := range lit.Elts {
			v, err := evalLiteral(elt)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case *ast.MapType:
		if !isAnyType(t.Key) || !isAnyType(t.Value) {
			break
		}
		out := make(proxykit.Map, 0, len(lit.Elts))
		for _, elt := range lit.Elts {
			kv, ok := elt.(*ast.KeyValueExpr)
			if !ok {
				return nil, fmt.Errorf("map literal element is not a key-value pair")
			}
			k, err := evalLiteral(kv.Key)
			if err != nil {
				return nil, err
			}
			v, err := evalLiteral(kv.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, proxykit.MapEntry{Key: k, Value: v})
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported composite literal type")
}

func isAnyType(expr ast.Expr) bool {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name == "any"
	case *ast.InterfaceType:
		return t.Methods == nil || len(t.Methods.List) == 0
	}
	return false
}
