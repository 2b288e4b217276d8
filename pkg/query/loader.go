package query

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// LoadDir loads every *.sql file in dir as a named query. The query name is
// the file name without its extension. A missing directory yields no queries.
func LoadDir(fsys fs.FS, dir string) (map[string]Query, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Query{}, nil
		}
		return nil, fmt.Errorf("failed to read query directory %s: %w", dir, err)
	}

	queries := make(map[string]Query)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read query %s: %w", entry.Name(), err)
		}

		stmt := strings.TrimSpace(string(content))
		name := strings.TrimSuffix(entry.Name(), ".sql")
		queries[name] = Query{
			Name:      name,
			Statement: stmt,
			Kind:      Classify(stmt),
		}
	}
	return queries, nil
}
