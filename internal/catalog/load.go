package catalog

import (
	"bytes"
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a catalog file. Entries is a sequence so the
// file order is the evaluation order.
//
//	entries:
//	  - trigger: blue badge
//	    text: Blue Badges help people ...
//	    link: {href: /transport-and-roads/blue-badges/, label: Apply for a Blue Badge}
//	default:
//	  text: I can help you find council services ...
type File struct {
	Entries []Entry `yaml:"entries"`
	Default Entry   `yaml:"default"`
}

// Load reads and validates a catalog YAML file.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a catalog document. Unknown keys are rejected so a typo in
// a field name does not silently drop a link.
func Parse(b []byte) (*Catalog, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return New(f.Entries, f.Default)
}

// Marshal renders c in the File layout, e.g. to seed a CATALOG_FILE from
// the built-in table.
func Marshal(c *Catalog) ([]byte, error) {
	f := File{Entries: c.Entries(), Default: c.Fallback()}
	f.Default.Trigger = ""
	return yaml.Marshal(f)
}

// Holder is the catalog currently in use. Readers never see a partially
// reloaded table.
type Holder struct {
	p atomic.Pointer[Catalog]
}

func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.p.Store(c)
	return h
}

func (h *Holder) Get() *Catalog { return h.p.Load() }

func (h *Holder) Set(c *Catalog) {
	if c != nil {
		h.p.Store(c)
	}
}
