package secret

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSecretsDir is where container runtimes mount secret files.
const DefaultSecretsDir = "/run/secrets"

// Provider resolves secrets by reference string.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: a missing secret returns an error wrapping ErrNotFound.
//   - Values must never be logged.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves a reference as the name of an environment variable.
type EnvProvider struct{}

var _ Provider = EnvProvider{}

func (EnvProvider) Name() string { return "env" }

func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: env %s", ErrNotFound, ref)
	}
	return v, nil
}

func (EnvProvider) Close() error { return nil }

// FileProvider resolves a reference as a file name under Dir. Trailing
// newlines are trimmed.
type FileProvider struct {
	Dir string
}

var _ Provider = FileProvider{}

// NewFileProvider creates a FileProvider. An empty dir uses
// DefaultSecretsDir.
func NewFileProvider(dir string) FileProvider {
	if dir == "" {
		dir = DefaultSecretsDir
	}
	return FileProvider{Dir: dir}
}

func (FileProvider) Name() string { return "file" }

func (p FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	if ref == "" || filepath.IsAbs(ref) || !filepath.IsLocal(ref) {
		return "", fmt.Errorf("%w: file %q", ErrInvalidRef, ref)
	}
	data, err := os.ReadFile(filepath.Join(p.Dir, ref))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: file %s", ErrNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("secret: read %s: %w", ref, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (FileProvider) Close() error { return nil }
