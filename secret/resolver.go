package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const refPrefix = "secretref:"

var inlineRef = regexp.MustCompile(`secretref:([^:\s]+):([^\s]+)`)

// Resolver resolves secret references with its registered providers.
//
// Contract:
//   - Concurrency: safe for concurrent use after construction.
//   - Errors: wrap ErrMissingEnv, ErrInvalidRef, ErrUnknownProvider,
//     ErrNotFound or ErrEmpty. Error text never contains a secret value.
//   - Nil: a nil *Resolver only expands environment variables.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver. In strict mode a reference that resolves
// to an empty string is an error.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider), strict: strict}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// ResolveValue expands environment variables in value, then replaces every
// secret reference it contains.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil || r == nil {
		return expanded, err
	}

	if provider, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolve(ctx, provider, ref)
	}

	matches := inlineRef.FindAllStringSubmatchIndex(expanded, -1)
	if len(matches) == 0 && strings.HasPrefix(expanded, refPrefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, expanded)
	}
	out := expanded
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		v, err := r.resolve(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + v + out[m[1]:]
	}
	return out, nil
}

// ResolveAll resolves each pointed-to value in place. Empty values are
// left alone. Errors name the field, never the value.
func (r *Resolver) ResolveAll(ctx context.Context, fields map[string]*string) error {
	var errs []error
	for name, v := range fields {
		if v == nil || *v == "" {
			continue
		}
		resolved, err := r.ResolveValue(ctx, *v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		*v = resolved
	}
	return errors.Join(errs...)
}

// Close closes every provider.
func (r *Resolver) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, p := range r.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// ParseSecretRef parses a whole-value reference secretref:<provider>:<ref>.
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" || strings.ContainsAny(value, " \t\n") {
		return "", "", false
	}
	return provider, ref, true
}

func (r *Resolver) resolve(ctx context.Context, providerName, ref string) (string, error) {
	p, ok := r.providers[providerName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, providerName)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("%w: %s:%s", ErrEmpty, providerName, ref)
	}
	return v, nil
}
