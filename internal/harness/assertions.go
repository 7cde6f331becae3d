package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/guardvault/internal/chain"
	"github.com/roach88/guardvault/internal/engine"
	"github.com/roach88/guardvault/internal/ir"
)

// AssertionError is a failed assertion with the signal log for context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Signals  []ir.Signal
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Signals) > 0 {
		fmt.Fprintf(&buf, "\nSignals:\n")
		for _, s := range e.Signals {
			fmt.Fprintf(&buf, "  [%d] %s.%s %s\n", s.Seq, s.Source, s.Name, formatArgs(s.Args))
		}
	}
	return buf.String()
}

// AssertionContext gives state assertions access to the final world.
type AssertionContext struct {
	World *engine.World
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	signals := result.Signals()

	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertSignalEmitted:
			err = assertSignalEmitted(signals, a)
		case AssertSignalOrder:
			err = assertSignalOrder(signals, a)
		case AssertSignalCount:
			err = assertSignalCount(signals, a)
		case AssertOwnerOf, AssertVaultOwnerOf, AssertOwnedAmount, AssertVersion:
			if actx == nil || actx.World == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a world", i, a.Type)
			} else {
				err = assertState(actx.World, a)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func signalMatches(s ir.Signal, name, source string) bool {
	return s.Name == name && (source == "" || s.Source == source)
}

// assertSignalEmitted looks for a signal whose leading args equal a.Args.
func assertSignalEmitted(signals []ir.Signal, a Assertion) error {
	want, err := ir.FromAny(a.Args)
	if err != nil {
		return fmt.Errorf("signal_emitted %s: %w", a.Signal, err)
	}
	prefix := want.(ir.IRArray)

	for _, s := range signals {
		if signalMatches(s, a.Signal, a.Source) && argsHavePrefix(s.Args, prefix) {
			return nil
		}
	}
	expected := a.Signal
	if a.Source != "" {
		expected = a.Source + "." + a.Signal
	}
	if len(prefix) > 0 {
		expected += " " + formatArgs(prefix)
	}
	return &AssertionError{
		Type:     AssertSignalEmitted,
		Expected: expected,
		Actual:   "not emitted",
		Signals:  signals,
	}
}

func argsHavePrefix(args, prefix ir.IRArray) bool {
	if len(prefix) > len(args) {
		return false
	}
	for i := range prefix {
		if !reflect.DeepEqual(args[i], prefix[i]) {
			return false
		}
	}
	return true
}

// assertSignalOrder checks first occurrences. Other signals may come in
// between.
func assertSignalOrder(signals []ir.Signal, a Assertion) error {
	positions := make(map[string]int)
	for i, s := range signals {
		if _, seen := positions[s.Name]; !seen {
			positions[s.Name] = i + 1
		}
	}

	for _, name := range a.Signals {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertSignalOrder,
				Expected: fmt.Sprintf("all signals present: %v", a.Signals),
				Actual:   fmt.Sprintf("missing signal: %s", name),
				Signals:  signals,
			}
		}
	}
	for i := 1; i < len(a.Signals); i++ {
		prev, curr := a.Signals[i-1], a.Signals[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertSignalOrder,
				Expected: fmt.Sprintf("signals in order: %v", a.Signals),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Signals: signals,
			}
		}
	}
	return nil
}

func assertSignalCount(signals []ir.Signal, a Assertion) error {
	count := 0
	for _, s := range signals {
		if signalMatches(s, a.Signal, a.Source) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertSignalCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Signal),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Signals:  signals,
		}
	}
	return nil
}

func assertState(w *engine.World, a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual}
	}

	switch a.Type {
	case AssertOwnerOf, AssertVaultOwnerOf:
		want, err := chain.ParseAddress(a.Owner)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Type, err)
		}
		var got chain.Address
		if a.Type == AssertOwnerOf {
			got, err = w.Protector.OwnerOf(chain.TokenID(a.ID))
		} else {
			got, err = w.Vault.OwnerOf(chain.TokenID(a.ID))
		}
		if err != nil {
			return fail(fmt.Sprintf("#%d owned by %s", a.ID, want), err.Error())
		}
		if got != want {
			return fail(fmt.Sprintf("#%d owned by %s", a.ID, want), fmt.Sprintf("owned by %s", got))
		}

	case AssertOwnedAmount:
		contract, err := chain.ParseAddress(a.Asset)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Type, err)
		}
		got := w.Vault.OwnedAssetAmount(chain.TokenID(a.ID), contract, chain.TokenID(a.AssetID))
		if uint64(got) != a.Amount {
			return fail(fmt.Sprintf("vault %d holds %d of %s #%d", a.ID, a.Amount, contract, a.AssetID),
				fmt.Sprintf("holds %d", got))
		}

	case AssertVersion:
		if got := w.Protector.Version(); got != a.Version {
			return fail("version "+a.Version, "version "+got)
		}
	}
	return nil
}

func formatArgs(args ir.IRArray) string {
	b, err := ir.MarshalCanonical(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(b)
}
