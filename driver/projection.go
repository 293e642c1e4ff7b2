package driver

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownSelection is returned when a selector names a response field or
// parameter the operation does not have. It is raised before any call is made.
var ErrUnknownSelection = errors.New("unknown selection")

// Mode is the kind of projection applied to every response.
type Mode int

const (
	WholeResponse Mode = iota + 1 // --select '*'
	NamedField                    // --select Models
	EchoParameter                 // --select '^ModelName'
)

func (m Mode) String() string {
	switch m {
	case WholeResponse:
		return "whole-response"
	case NamedField:
		return "named-field"
	case EchoParameter:
		return "echo-parameter"
	default:
		return "default"
	}
}

// Selector is a parsed --select value. The zero Selector means "use the
// operation's default".
type Selector struct {
	Mode Mode
	Name string
}

// ParseSelector parses '*', '^Param' or 'Field'. An empty string yields the
// zero Selector.
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Selector{}, nil
	case s == "*":
		return Selector{Mode: WholeResponse, Name: "*"}, nil
	case strings.HasPrefix(s, "^"):
		name := strings.TrimPrefix(s, "^")
		if name == "" || strings.ContainsAny(name, " \t.") {
			return Selector{}, fmt.Errorf("%w: invalid parameter selector %q", ErrUnknownSelection, s)
		}
		return Selector{Mode: EchoParameter, Name: name}, nil
	default:
		if strings.ContainsAny(s, " \t^*") {
			return Selector{}, fmt.Errorf("%w: invalid field selector %q", ErrUnknownSelection, s)
		}
		return Selector{Mode: NamedField, Name: s}, nil
	}
}

// String returns the selector in --select syntax.
func (s Selector) String() string {
	switch s.Mode {
	case WholeResponse:
		return "*"
	case EchoParameter:
		return "^" + s.Name
	default:
		return s.Name
	}
}

// Fields maps selectable response field names to accessors.
type Fields[Out any] map[string]func(out *Out) any

// Params maps echo-able parameter names to the value the caller supplied.
type Params map[string]func() any

// Projection is a resolved selector bound to one operation's response type.
type Projection[Out any] struct {
	mode  Mode
	name  string
	field func(out *Out) any
	echo  func() any
}

// Mode returns the projection kind.
func (p Projection[Out]) Mode() Mode {
	return p.mode
}

// Name returns the selected field or parameter name ('*' for whole response).
func (p Projection[Out]) Name() string {
	return p.name
}

// Apply projects a response. In echo mode the response is ignored and may be nil.
func (p Projection[Out]) Apply(out *Out) any {
	switch p.mode {
	case NamedField:
		if out == nil {
			return nil
		}
		return p.field(out)
	case EchoParameter:
		return p.echo()
	default:
		return out
	}
}

// Resolve binds a selector to an operation. A zero selector falls back to
// def, which uses the same syntax as --select. Field and parameter names
// match case-insensitively.
func Resolve[Out any](sel Selector, def string, fields Fields[Out], params Params) (Projection[Out], error) {
	if sel == (Selector{}) {
		var err error
		if sel, err = ParseSelector(def); err != nil {
			return Projection[Out]{}, err
		}
		if sel == (Selector{}) {
			sel = Selector{Mode: WholeResponse, Name: "*"}
		}
	}

	switch sel.Mode {
	case WholeResponse:
		return Projection[Out]{mode: WholeResponse, name: "*"}, nil
	case NamedField:
		for name, fn := range fields {
			if strings.EqualFold(name, sel.Name) {
				return Projection[Out]{mode: NamedField, name: name, field: fn}, nil
			}
		}
		return Projection[Out]{}, fmt.Errorf("%w: response has no field %q (valid: %s)",
			ErrUnknownSelection, sel.Name, strings.Join(keys(fields), ", "))
	case EchoParameter:
		for name, fn := range params {
			if strings.EqualFold(name, sel.Name) {
				return Projection[Out]{mode: EchoParameter, name: name, echo: fn}, nil
			}
		}
		return Projection[Out]{}, fmt.Errorf("%w: no parameter %q (valid: %s)",
			ErrUnknownSelection, sel.Name, strings.Join(keys(params), ", "))
	default:
		return Projection[Out]{}, fmt.Errorf("%w: unsupported selector mode %d", ErrUnknownSelection, sel.Mode)
	}
}

func keys[M ~map[string]V, V any](m M) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
