package sparql

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cayleygraph/quad"

	"github.com/ha1tch/ecotour/pkg/graph"
)

// errType marks an expression evaluation error; a filter whose expression
// errors drops the solution.
var errType = errors.New("type error")

var (
	trueValue  = quad.TypedString{Value: "true", Type: graph.XSDBoolean}
	falseValue = quad.TypedString{Value: "false", Type: graph.XSDBoolean}
)

func boolValue(b bool) quad.Value {
	if b {
		return trueValue
	}
	return falseValue
}

func effectiveBool(b Binding, e Expr) bool {
	v, err := evalExpr(b, e)
	if err != nil {
		return false
	}
	ok, err := ebv(v)
	return err == nil && ok
}

// ebv computes the effective boolean value of a term.
func ebv(v quad.Value) (bool, error) {
	switch t := v.(type) {
	case quad.TypedString:
		if t.Type == graph.XSDBoolean {
			return t.Value == "true" || t.Value == "1", nil
		}
		if graph.IsNumeric(t) {
			f, ok := graph.AsFloat(t)
			return ok && f != 0, nil
		}
		return t.Value != "", nil
	case quad.String:
		return t != "", nil
	case quad.LangString:
		return t.Value != "", nil
	}
	return false, errType
}

func evalExpr(b Binding, e Expr) (quad.Value, error) {
	switch x := e.(type) {
	case VarExpr:
		v, ok := b[x.Name]
		if !ok {
			return nil, errType
		}
		return v, nil
	case ConstExpr:
		return x.Value, nil
	case UnaryExpr:
		v, err := evalExpr(b, x.X)
		if err != nil {
			return nil, err
		}
		if x.Op == "!" {
			ok, err := ebv(v)
			if err != nil {
				return nil, err
			}
			return boolValue(!ok), nil
		}
		f, ok := graph.AsFloat(v)
		if !ok {
			return nil, errType
		}
		return graph.Float(-f), nil
	case BinaryExpr:
		return evalBinary(b, x)
	case CallExpr:
		return evalCall(b, x)
	}
	return nil, errType
}

func evalBinary(b Binding, x BinaryExpr) (quad.Value, error) {
	switch x.Op {
	case "||":
		l, lerr := evalBool(b, x.Left)
		if lerr == nil && l {
			return trueValue, nil
		}
		r, rerr := evalBool(b, x.Right)
		if rerr == nil && r {
			return trueValue, nil
		}
		if lerr != nil || rerr != nil {
			return nil, errType
		}
		return falseValue, nil
	case "&&":
		l, lerr := evalBool(b, x.Left)
		if lerr == nil && !l {
			return falseValue, nil
		}
		r, rerr := evalBool(b, x.Right)
		if rerr == nil && !r {
			return falseValue, nil
		}
		if lerr != nil || rerr != nil {
			return nil, errType
		}
		return trueValue, nil
	}

	l, err := evalExpr(b, x.Left)
	if err != nil {
		return nil, err
	}
	r, err := evalExpr(b, x.Right)
	if err != nil {
		return nil, err
	}

	switch x.Op {
	case "+", "-", "*", "/":
		fl, okL := graph.AsFloat(l)
		fr, okR := graph.AsFloat(r)
		if !okL || !okR {
			return nil, errType
		}
		switch x.Op {
		case "+":
			return graph.Float(fl + fr), nil
		case "-":
			return graph.Float(fl - fr), nil
		case "*":
			return graph.Float(fl * fr), nil
		default:
			if fr == 0 {
				return nil, errType
			}
			return graph.Float(fl / fr), nil
		}
	}

	c, err := compare(l, r, x.Op == "=" || x.Op == "!=")
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case "=":
		return boolValue(c == 0), nil
	case "!=":
		return boolValue(c != 0), nil
	case "<":
		return boolValue(c < 0), nil
	case ">":
		return boolValue(c > 0), nil
	case "<=":
		return boolValue(c <= 0), nil
	case ">=":
		return boolValue(c >= 0), nil
	}
	return nil, errType
}

func evalBool(b Binding, e Expr) (bool, error) {
	v, err := evalExpr(b, e)
	if err != nil {
		return false, err
	}
	return ebv(v)
}

// compare returns -1, 0 or 1. Literals compare numerically when both parse
// as numbers, otherwise by lexical form. IRIs only support equality.
func compare(l, r quad.Value, equality bool) (int, error) {
	if graph.IsLiteral(l) && graph.IsLiteral(r) {
		fl, okL := graph.AsFloat(l)
		fr, okR := graph.AsFloat(r)
		if okL && okR {
			switch {
			case fl < fr:
				return -1, nil
			case fl > fr:
				return 1, nil
			}
			return 0, nil
		}
		return strings.Compare(graph.Lexical(l), graph.Lexical(r)), nil
	}
	if !equality {
		return 0, errType
	}
	if l == r {
		return 0, nil
	}
	return 1, nil
}

func stringArg(b Binding, e Expr) (string, error) {
	v, err := evalExpr(b, e)
	if err != nil {
		return "", err
	}
	if !graph.IsLiteral(v) {
		return "", errType
	}
	return graph.Lexical(v), nil
}

func evalCall(b Binding, c CallExpr) (quad.Value, error) {
	switch c.Name {
	case "BOUND":
		_, ok := b[c.Args[0].(VarExpr).Name]
		return boolValue(ok), nil
	case "STR":
		v, err := evalExpr(b, c.Args[0])
		if err != nil {
			return nil, err
		}
		return quad.String(graph.Lexical(v)), nil
	case "LANG":
		v, err := evalExpr(b, c.Args[0])
		if err != nil {
			return nil, err
		}
		if ls, ok := v.(quad.LangString); ok {
			return quad.String(ls.Lang), nil
		}
		return quad.String(""), nil
	case "ISIRI", "ISURI":
		v, err := evalExpr(b, c.Args[0])
		if err != nil {
			return nil, err
		}
		return boolValue(graph.IsIRI(v)), nil
	case "ISLITERAL":
		v, err := evalExpr(b, c.Args[0])
		if err != nil {
			return nil, err
		}
		return boolValue(graph.IsLiteral(v)), nil
	}

	s, err := stringArg(b, c.Args[0])
	if err != nil {
		return nil, err
	}
	switch c.Name {
	case "LCASE":
		return quad.String(strings.ToLower(s)), nil
	case "UCASE":
		return quad.String(strings.ToUpper(s)), nil
	case "STRLEN":
		return graph.Int(int64(utf8.RuneCountInString(s))), nil
	}

	arg, err := stringArg(b, c.Args[1])
	if err != nil {
		return nil, err
	}
	switch c.Name {
	case "CONTAINS":
		return boolValue(strings.Contains(s, arg)), nil
	case "STRSTARTS":
		return boolValue(strings.HasPrefix(s, arg)), nil
	case "STRENDS":
		return boolValue(strings.HasSuffix(s, arg)), nil
	case "REGEX":
		flags := ""
		if len(c.Args) == 3 {
			if flags, err = stringArg(b, c.Args[2]); err != nil {
				return nil, err
			}
		}
		re, err := compileRegex(arg, flags)
		if err != nil {
			return nil, errType
		}
		return boolValue(re.MatchString(s)), nil
	}
	return nil, errType
}

func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	var goFlags strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			goFlags.WriteRune(f)
		case 'x':
			// extended syntax is not supported by RE2; ignore
		default:
			return nil, errors.New("unsupported regex flag " + strconv.QuoteRune(f))
		}
	}
	if goFlags.Len() > 0 {
		pattern = "(?" + goFlags.String() + ")" + pattern
	}
	return regexp.Compile(pattern)
}
