// assets/embed.go
//
// Files compiled into the server binary:
//   - sql/*.sql: schema migrations, applied in lexical order.
//   - catalog.yaml: game types and achievement definitions.

package assets

import (
	"embed"
	"io/fs"
)

//go:embed sql/*.sql catalog.yaml
var FS embed.FS

// Migrations returns the migration files rooted at "sql".
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		panic(err) // embedded path is fixed at compile time
	}
	return sub
}

// Catalog returns the raw catalog YAML.
func Catalog() ([]byte, error) {
	return FS.ReadFile("catalog.yaml")
}
