package yaml

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"gopkg.in/yaml.v3"
)

// DocumentSpec is the on-disk shape of the table contract document.
//
//	tables:
//	  users:
//	    schema:
//	      required_fields: [id, email]
//	      fields:
//	        id: STRING!
//	        email:
//	          type: STRING
type DocumentSpec struct {
	Version     string                `yaml:"version,omitempty"`
	Description string                `yaml:"description,omitempty"`
	Tables      map[string]*TableSpec `yaml:"tables"`
}

// TableSpec declares the structural contract of one table.
type TableSpec struct {
	Description string     `yaml:"description,omitempty"`
	Schema      SchemaSpec `yaml:"schema"`
}

// SchemaSpec lists required columns and declared column types.
type SchemaSpec struct {
	RequiredFields []string           `yaml:"required_fields"`
	Fields         map[string]*Column `yaml:"fields"`
}

// Column defines a single declared column.
//
// Columns support two declaration styles:
//
//	Shorthand (scalar): created_at: TIMESTAMP!
//	Long form (mapping): created_at:
//	                        type: TIMESTAMP
//	                        required: true
//
// Append "!" to the type to mark the column as required. An empty type
// declares presence only.
type Column struct {
	// Type is the canonical warehouse type (STRING, INT64, ...), or "".
	Type string `yaml:"type"`

	// Required adds the column to the table's required set.
	Required bool `yaml:"required,omitempty"`

	Description string `yaml:"description,omitempty"`
	Mode        string `yaml:"mode,omitempty"` // NULLABLE | REQUIRED | REPEATED, informational
}

// UnmarshalYAML implements custom unmarshaling to support both shorthand
// and long-form column declarations.
func (c *Column) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return c.parseTypeString(value.Value)
	}

	// Long form: decode struct fields via alias (avoids infinite recursion),
	// then normalize the type string.
	type columnAlias Column
	var alias columnAlias
	if err := value.Decode(&alias); err != nil {
		return err
	}
	*c = Column(alias)

	if strings.EqualFold(c.Mode, "REQUIRED") {
		c.Required = true
	}
	return c.parseTypeString(c.Type)
}

// parseTypeString parses a user-facing type name like "INTEGER!" and sets
// Type and (if "!" is present) Required on the receiver.
func (c *Column) parseTypeString(s string) error {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "!") {
		c.Required = true
		s = strings.TrimSuffix(s, "!")
	}
	if s == "" {
		c.Type = ""
		return nil
	}

	canonical, ok := schema.CanonicalType(s)
	if !ok {
		return fmt.Errorf("unsupported type %q (must be: STRING, INT64, FLOAT64, NUMERIC, BOOL, TIMESTAMP, DATE, JSON or an alias)", s)
	}
	c.Type = canonical
	return nil
}

// Validate checks if the document is structurally valid.
func (d *DocumentSpec) Validate() error {
	for name, table := range d.Tables {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("table name cannot be empty")
		}
		if table == nil {
			continue
		}
		if err := table.Validate(); err != nil {
			return fmt.Errorf("table %q: %w", name, err)
		}
	}
	return nil
}

// Validate checks one table declaration.
func (t *TableSpec) Validate() error {
	seen := make(map[string]bool, len(t.Schema.RequiredFields))
	for i, f := range t.Schema.RequiredFields {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("required_fields[%d] cannot be empty", i)
		}
		if seen[f] {
			return fmt.Errorf("required field %q listed twice", f)
		}
		seen[f] = true
	}
	for name, col := range t.Schema.Fields {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("field name cannot be empty")
		}
		if col == nil {
			return fmt.Errorf("field %q: declaration cannot be empty", name)
		}
	}
	return nil
}

// toContract flattens the declaration into a schema.TableContract.
// Required columns keep the required_fields order, followed by columns
// flagged required in their declaration, sorted by name.
func (t *TableSpec) toContract(table string) *schema.TableContract {
	tc := &schema.TableContract{
		Table:  table,
		Fields: make(map[string]string, len(t.Schema.Fields)),
		Source: "document",
	}
	required := make(map[string]bool)
	for _, f := range t.Schema.RequiredFields {
		tc.RequiredFields = append(tc.RequiredFields, f)
		required[f] = true
	}

	names := make([]string, 0, len(t.Schema.Fields))
	for name := range t.Schema.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		col := t.Schema.Fields[name]
		tc.Fields[name] = col.Type
		if col.Required && !required[name] {
			tc.RequiredFields = append(tc.RequiredFields, name)
			required[name] = true
		}
	}
	return tc
}
