package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
)

var (
	sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
)

// ValidateDir validates migration filenames + basic SQL headers on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	_, err := validateFS(os.DirFS(dir), ".")
	return err
}

// ValidateEmbedded validates both embedded dialects and checks they declare the
// same migration versions.
func ValidateEmbedded() error {
	pgDir, _ := EmbeddedDir(DialectPostgres)
	liteDir, _ := EmbeddedDir(DialectSQLite)

	pg, err := validateFS(embedded, pgDir)
	if err != nil {
		return fmt.Errorf("%s: %w", DialectPostgres, err)
	}
	lite, err := validateFS(embedded, liteDir)
	if err != nil {
		return fmt.Errorf("%s: %w", DialectSQLite, err)
	}
	return compareVersions(pg, lite)
}

func validateFS(fsys fs.FS, dir string) (map[string]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{} // version -> filename

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}

		version := m[1]
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		b, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", name, err)
		}

		txt := string(b)
		if !strings.Contains(txt, "-- +goose Up") {
			return nil, fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
		}
		if !strings.Contains(txt, "-- +goose Down") {
			return nil, fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
		}
	}

	return seen, nil
}

func compareVersions(a, b map[string]string) error {
	var missing []string
	for v, name := range a {
		if other, ok := b[v]; !ok || other != name {
			missing = append(missing, name)
		}
	}
	for v, name := range b {
		if _, ok := a[v]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("dialect migrations out of sync: %s", strings.Join(missing, ", "))
}
