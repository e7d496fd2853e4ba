package schemas

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/taxonflow/taxonflow/internal/domain"
)

// Package-level validator instance for catalog validation.
var validate = validator.New()

// catalogFile is the on-disk shape of a schema catalog.
type catalogFile struct {
	Schemas []schemaSpec `yaml:"schemas" validate:"required,min=1,dive"`
}

type schemaSpec struct {
	Name   string      `yaml:"name" validate:"required"`
	Fields []fieldSpec `yaml:"fields" validate:"required,min=1,dive"`
}

type fieldSpec struct {
	Name string `yaml:"name" validate:"required"`
	// Type names a domain value type; empty means string.
	Type string `yaml:"type"`
	// DataKey is the external column name when it differs from Name.
	DataKey string `yaml:"dataKey"`
	// Export marks the column as always emitted by sinks.
	Export bool   `yaml:"export"`
	URI    string `yaml:"uri" validate:"omitempty,uri"`
}

// LoadCatalog reads a YAML schema catalog and builds the schemas it
// declares, keyed by catalog name. Decoding is strict: unknown YAML
// fields, duplicate schema names, duplicate field names, and unknown
// field types are all errors.
func LoadCatalog(r io.Reader) (map[string]*domain.Schema, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("schema catalog is empty")
		}
		return nil, fmt.Errorf("decode schema catalog: %w", err)
	}
	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("validate schema catalog: %w", err)
	}

	catalog := make(map[string]*domain.Schema, len(file.Schemas))
	for _, spec := range file.Schemas {
		if _, ok := catalog[spec.Name]; ok {
			return nil, fmt.Errorf("duplicate schema %q in catalog", spec.Name)
		}
		s, err := buildSchema(spec)
		if err != nil {
			return nil, fmt.Errorf("schema %q: %w", spec.Name, err)
		}
		catalog[spec.Name] = s
	}
	return catalog, nil
}

// LoadCatalogFile is LoadCatalog over a file path.
func LoadCatalogFile(path string) (map[string]*domain.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

func buildSchema(spec schemaSpec) (*domain.Schema, error) {
	fields := make([]domain.Field, 0, len(spec.Fields))
	for _, fs := range spec.Fields {
		typ := domain.StringType
		if fs.Type != "" {
			var err error
			if typ, err = domain.ParseType(fs.Type); err != nil {
				return nil, fmt.Errorf("field %q: %w", fs.Name, err)
			}
		}
		f := domain.NewField(fs.Name, typ)
		if fs.DataKey != "" {
			f = f.WithDataKey(fs.DataKey)
		}
		if fs.Export {
			f = f.WithExport()
		}
		if fs.URI != "" {
			f = f.WithURI(fs.URI)
		}
		fields = append(fields, f)
	}
	return domain.NewSchema(fields...)
}
