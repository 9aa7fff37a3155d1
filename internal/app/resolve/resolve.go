// Package resolve turns human-readable references into platform resources.
//
// Two matching rules are used. Policies match by case-insensitive equality.
// Asset lists and credentials match when the folded reference is a substring
// of the folded resource name. Scans and instances match by exact,
// case-sensitive equality. When several resources match, the first one in
// listing order wins; the Ambiguity setting decides whether that is logged or
// refused.
package resolve

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/openctemio/scanctl/pkg/domain/assetlist"
	"github.com/openctemio/scanctl/pkg/domain/credential"
	"github.com/openctemio/scanctl/pkg/domain/policy"
	"github.com/openctemio/scanctl/pkg/domain/scan"
	"github.com/openctemio/scanctl/pkg/domain/shared"
	"github.com/openctemio/scanctl/pkg/logger"
)

// Ambiguity selects what happens when a reference matches several resources.
type Ambiguity string

const (
	// AmbiguityWarn logs every candidate and keeps the first.
	AmbiguityWarn Ambiguity = "warn"
	// AmbiguityError refuses the reference.
	AmbiguityError Ambiguity = "error"
)

// ParseAmbiguity parses an ambiguity policy. Empty means AmbiguityWarn.
func ParseAmbiguity(s string) (Ambiguity, error) {
	switch Ambiguity(strings.ToLower(strings.TrimSpace(s))) {
	case "", AmbiguityWarn:
		return AmbiguityWarn, nil
	case AmbiguityError:
		return AmbiguityError, nil
	default:
		return "", fmt.Errorf("%w: unknown ambiguity policy %q", shared.ErrInvalidInput, s)
	}
}

// Mode is a matching rule.
type Mode int

const (
	// Exact is case-sensitive equality.
	Exact Mode = iota
	// ExactFold is case-insensitive equality.
	ExactFold
	// SubstringFold is case-insensitive containment of the reference.
	SubstringFold
)

// Matches reports whether name satisfies ref under mode.
func (m Mode) Matches(name, ref string) bool {
	switch m {
	case ExactFold:
		return fold(name) == fold(ref)
	case SubstringFold:
		return strings.Contains(fold(name), fold(ref))
	default:
		return name == ref
	}
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// Resolver resolves references against already-listed resources.
type Resolver struct {
	ambiguity Ambiguity
	logger    *logger.Logger
}

// New creates a Resolver.
func New(ambiguity Ambiguity, log *logger.Logger) *Resolver {
	if ambiguity == "" {
		ambiguity = AmbiguityWarn
	}
	return &Resolver{ambiguity: ambiguity, logger: log}
}

// Policy resolves a policy by case-insensitive name.
func (r *Resolver) Policy(items []policy.Policy, name string) (policy.Policy, error) {
	p, ok, err := pick(r, "policy", items, func(p policy.Policy) string { return p.Name }, name, ExactFold)
	if err != nil {
		return policy.Policy{}, err
	}
	if !ok {
		return policy.Policy{}, policy.NotFoundError(name)
	}
	return p, nil
}

// AssetList resolves an asset list by case-insensitive name fragment.
func (r *Resolver) AssetList(items []assetlist.AssetList, fragment string) (assetlist.AssetList, error) {
	a, ok, err := pick(r, "asset list", items, func(a assetlist.AssetList) string { return a.Name }, fragment, SubstringFold)
	if err != nil {
		return assetlist.AssetList{}, err
	}
	if !ok {
		return assetlist.AssetList{}, assetlist.NotFoundError(fragment)
	}
	return a, nil
}

// AssetLists resolves each fragment in order, failing on the first miss.
func (r *Resolver) AssetLists(items []assetlist.AssetList, fragments []string) ([]assetlist.AssetList, error) {
	out := make([]assetlist.AssetList, 0, len(fragments))
	for _, f := range fragments {
		a, err := r.AssetList(items, f)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Credential resolves a credential by case-insensitive name fragment.
func (r *Resolver) Credential(items []credential.Credential, fragment string) (credential.Credential, error) {
	c, ok, err := pick(r, "credential", items, func(c credential.Credential) string { return c.Name }, fragment, SubstringFold)
	if err != nil {
		return credential.Credential{}, err
	}
	if !ok {
		return credential.Credential{}, credential.NotFoundError(fragment)
	}
	return c, nil
}

// Credentials resolves each fragment in order, failing on the first miss.
func (r *Resolver) Credentials(items []credential.Credential, fragments []string) ([]credential.Credential, error) {
	out := make([]credential.Credential, 0, len(fragments))
	for _, f := range fragments {
		c, err := r.Credential(items, f)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Scan resolves a scan definition by exact name.
func (r *Resolver) Scan(items []scan.Definition, name string) (scan.Definition, error) {
	d, ok, err := pick(r, "scan", items, func(d scan.Definition) string { return d.Name }, name, Exact)
	if err != nil {
		return scan.Definition{}, err
	}
	if !ok {
		return scan.Definition{}, scan.NotFoundError(name)
	}
	return d, nil
}

// All returns every item whose name satisfies ref under mode, in listing order.
func All[T any](items []T, nameOf func(T) string, ref string, mode Mode) []T {
	var out []T
	for _, item := range items {
		if mode.Matches(nameOf(item), ref) {
			out = append(out, item)
		}
	}
	return out
}

// Last returns the last item whose name satisfies ref under mode.
func Last[T any](items []T, nameOf func(T) string, ref string, mode Mode) (T, bool) {
	for i := len(items) - 1; i >= 0; i-- {
		if mode.Matches(nameOf(items[i]), ref) {
			return items[i], true
		}
	}
	var zero T
	return zero, false
}

func pick[T any](r *Resolver, kind string, items []T, nameOf func(T) string, ref string, mode Mode) (T, bool, error) {
	var zero T
	matches := All(items, nameOf, ref, mode)
	if len(matches) == 0 {
		return zero, false, nil
	}
	if len(matches) > 1 {
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = nameOf(m)
		}
		if r.ambiguity == AmbiguityError {
			return zero, false, AmbiguousError(kind, ref, names)
		}
		r.logger.Warn("reference matches several resources, using the first",
			"kind", kind,
			"reference", ref,
			"candidates", names,
			"selected", names[0],
		)
	}
	return matches[0], true, nil
}

// AmbiguousError reports a reference that matched several resources.
func AmbiguousError(kind, ref string, candidates []string) error {
	return shared.NewDomainError("AMBIGUOUS_REFERENCE",
		fmt.Sprintf("%s reference [%s] matches %d resources: %s", kind, ref, len(candidates), strings.Join(candidates, ", ")),
		shared.ErrAmbiguous)
}
