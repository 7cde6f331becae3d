package ir

import (
	"fmt"
	"slices"
	"strings"
)

// ValidTypes are the argument type names an ActionSig may declare.
var ValidTypes = map[string]bool{
	"string": true,
	"int":    true,
	"bool":   true,
	"array":  true,
	"object": true,
}

// NamedArg is one declared argument of an action.
type NamedArg struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
}

// ActionSig describes an action's arguments and the output cases it can
// complete with.
type ActionSig struct {
	URI     ActionURI  `json:"uri"`
	Args    []NamedArg `json:"args"`
	Outputs []string   `json:"outputs"`
}

// ValidationError is a problem at a field path.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate reports every structural problem in the signature.
func (a *ActionSig) Validate() []ValidationError {
	var errs []ValidationError

	if !strings.Contains(string(a.URI), ".") {
		errs = append(errs, ValidationError{"uri", fmt.Sprintf("%q is not of the form Contract.action", a.URI)})
	}
	if len(a.Outputs) == 0 || a.Outputs[0] != SuccessCase {
		errs = append(errs, ValidationError{"outputs", "first output case must be " + SuccessCase})
	}
	seen := make(map[string]bool)
	for i, out := range a.Outputs {
		if seen[out] {
			errs = append(errs, ValidationError{fmt.Sprintf("outputs[%d]", i), fmt.Sprintf("duplicate output case %q", out)})
		}
		seen[out] = true
	}
	names := make(map[string]bool)
	for i, arg := range a.Args {
		if names[arg.Name] {
			errs = append(errs, ValidationError{fmt.Sprintf("args[%d].name", i), fmt.Sprintf("duplicate arg %q", arg.Name)})
		}
		names[arg.Name] = true
		if !ValidTypes[arg.Type] {
			errs = append(errs, ValidationError{fmt.Sprintf("args[%d].type", i), fmt.Sprintf("invalid type %q for arg %q", arg.Type, arg.Name)})
		}
	}
	return errs
}

// HasOutput reports whether c is a declared output case.
func (a *ActionSig) HasOutput(c string) bool {
	return slices.Contains(a.Outputs, c)
}

// CheckArgs verifies args against the declared arguments: no unknown keys,
// no missing required keys, and matching value types.
func (a *ActionSig) CheckArgs(args IRObject) error {
	declared := make(map[string]NamedArg, len(a.Args))
	for _, arg := range a.Args {
		declared[arg.Name] = arg
		v, ok := args[arg.Name]
		if !ok {
			if arg.Optional {
				continue
			}
			return fmt.Errorf("%s: missing arg %q", a.URI, arg.Name)
		}
		if got := TypeName(v); got != arg.Type {
			return fmt.Errorf("%s: arg %q is %s, want %s", a.URI, arg.Name, got, arg.Type)
		}
	}
	for _, k := range args.SortedKeys() {
		if _, ok := declared[k]; !ok {
			return fmt.Errorf("%s: unknown arg %q", a.URI, k)
		}
	}
	return nil
}

// TypeName returns the ValidTypes name of v, or "null".
func TypeName(v IRValue) string {
	switch v.(type) {
	case IRString:
		return "string"
	case IRInt:
		return "int"
	case IRBool:
		return "bool"
	case IRArray:
		return "array"
	case IRObject:
		return "object"
	default:
		return "null"
	}
}
