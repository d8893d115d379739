package matching

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

//go:embed tables.json
var defaultTablesJSON []byte

// Alias rewrites every occurrence of From into To.
type Alias struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// KnownProduct maps a name substring to an exact CPE vendor and product.
type KnownProduct struct {
	Needle  string `json:"needle"`
	Vendor  string `json:"vendor"`
	Product string `json:"product"`
}

// Tables holds the ordered alias and known-product tables.
// Order is priority. Tables is immutable once built.
type Tables struct {
	aliases  []Alias
	products []KnownProduct
}

type tablesFile struct {
	Aliases  []Alias        `json:"aliases"`
	Products []KnownProduct `json:"products"`
}

// DefaultTables returns the tables compiled into the binary.
func DefaultTables() *Tables {
	t, err := ParseTables(defaultTablesJSON)
	if err != nil {
		panic(fmt.Sprintf("matching: embedded tables are invalid: %v", err))
	}
	return t
}

// LoadTables reads tables from a JSON file. An empty path yields the defaults.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	return ParseTables(data)
}

// ParseTables decodes and validates a tables document. Alias keys,
// alias targets and needles are normalized so they compare against
// normalized names.
func ParseTables(data []byte) (*Tables, error) {
	var f tablesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode tables: %w", err)
	}
	for i, a := range f.Aliases {
		f.Aliases[i] = Alias{From: Normalize(a.From), To: Normalize(a.To)}
		if f.Aliases[i].From == "" {
			return nil, fmt.Errorf("alias %d: empty key", i)
		}
	}
	for i, p := range f.Products {
		f.Products[i].Needle = Normalize(p.Needle)
		if f.Products[i].Needle == "" || p.Vendor == "" || p.Product == "" {
			return nil, fmt.Errorf("product %d: needle, vendor and product are required", i)
		}
	}
	return &Tables{aliases: f.Aliases, products: f.Products}, nil
}

// Alias normalizes name and applies every matching alias in table order.
// A later alias sees the text produced by earlier ones.
func (t *Tables) Alias(name string) string {
	n := Normalize(name)
	for _, a := range t.aliases {
		if strings.Contains(n, a.From) {
			n = strings.ReplaceAll(n, a.From, a.To)
		}
	}
	return n
}

// Lookup returns the first known product whose needle occurs in the
// normalized name.
func (t *Tables) Lookup(normalized string) (KnownProduct, bool) {
	for _, p := range t.products {
		if strings.Contains(normalized, p.Needle) {
			return p, true
		}
	}
	return KnownProduct{}, false
}

// Len reports the number of aliases and known products.
func (t *Tables) Len() (aliases, products int) {
	return len(t.aliases), len(t.products)
}
