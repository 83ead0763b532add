package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	hooks "github.com/goliatone/go-hooks"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	SourceLabel = "go-hooks"

	rootPath   = "data/sql/migrations"
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// FilesystemSpec is the migration set for one SQL dialect. Versions lists the
// migration names (without suffix) in apply order.
type FilesystemSpec struct {
	Dialect  string
	Path     string
	FS       fs.FS
	Versions []string
}

type Registration struct {
	SourceLabel string
	Dialects    []string
	Filesystems []FilesystemSpec
}

// RegisterFunc hands one dialect's migrations to a migration runner, usually
// go-persistence-bun's RegisterSQLMigrations.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithValidationTargets limits registration to the given dialects.
func WithValidationTargets(dialects ...string) Option {
	return func(r *Registration) {
		if normalized := normalizeDialects(dialects); len(normalized) > 0 {
			r.Dialects = normalized
		}
	}
}

// Filesystems returns the postgres and sqlite migration sets found under
// data/sql/migrations of source, or of the embedded schema when no source is
// given. Every up migration must ship with its down migration.
func Filesystems(sources ...fs.FS) ([]FilesystemSpec, error) {
	root := hooks.GetMigrationsFS()
	if len(sources) > 0 && sources[0] != nil {
		root = sources[0]
	}
	base, err := fs.Sub(root, rootPath)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", rootPath, err)
	}
	sqliteFS, err := fs.Sub(base, DialectSQLite)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite migrations: %w", err)
	}

	out := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: rootPath, FS: base},
		{Dialect: DialectSQLite, Path: rootPath + "/" + DialectSQLite, FS: sqliteFS},
	}
	for i := range out {
		versions, err := versions(out[i])
		if err != nil {
			return nil, err
		}
		out[i].Versions = versions
	}
	if !slices.Equal(out[0].Versions, out[1].Versions) {
		return nil, fmt.Errorf("migrations: postgres %v and sqlite %v migrations diverge", out[0].Versions, out[1].Versions)
	}
	return out, nil
}

// ForDialect returns the embedded migration set for dialect.
func ForDialect(dialect string) (FilesystemSpec, error) {
	target := strings.ToLower(strings.TrimSpace(dialect))
	filesystems, err := Filesystems()
	if err != nil {
		return FilesystemSpec{}, err
	}
	for _, spec := range filesystems {
		if spec.Dialect == target {
			return spec, nil
		}
	}
	return FilesystemSpec{}, fmt.Errorf("migrations: unsupported dialect %q", dialect)
}

// Register passes every selected dialect's migrations to registerFn.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel: SourceLabel,
		Dialects:    []string{DialectPostgres, DialectSQLite},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}

	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	for _, spec := range filesystems {
		if !slices.Contains(reg.Dialects, spec.Dialect) {
			continue
		}
		if err := registerFn(ctx, spec.Dialect, reg.SourceLabel, spec.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s: %w", spec.Dialect, err)
		}
		reg.Filesystems = append(reg.Filesystems, spec)
	}
	if len(reg.Filesystems) == 0 {
		return reg, fmt.Errorf("migrations: no migrations for dialects %v", reg.Dialects)
	}
	return reg, nil
}

func versions(spec FilesystemSpec) ([]string, error) {
	ups, err := fs.Glob(spec.FS, "*"+upSuffix)
	if err != nil {
		return nil, fmt.Errorf("migrations: glob %s: %w", spec.Path, err)
	}
	if len(ups) == 0 {
		return nil, fmt.Errorf("migrations: %s has no %s files", spec.Path, upSuffix)
	}
	out := make([]string, 0, len(ups))
	for _, up := range ups {
		version := strings.TrimSuffix(up, upSuffix)
		if _, err := fs.Stat(spec.FS, version+downSuffix); err != nil {
			return nil, fmt.Errorf("migrations: %s/%s has no down migration", spec.Path, version)
		}
		out = append(out, version)
	}
	slices.Sort(out)
	return out, nil
}

func normalizeDialects(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		dialect := strings.ToLower(strings.TrimSpace(value))
		if dialect == "" || slices.Contains(out, dialect) {
			continue
		}
		out = append(out, dialect)
	}
	return out
}
