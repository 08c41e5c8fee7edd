package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/bigquery"
)

const (
	ModeNullable = "NULLABLE"
	ModeRequired = "REQUIRED"
	ModeRepeated = "REPEATED"
)

var ErrInvalidDescriptor = errors.New("invalid schema descriptor")

// Field is one column descriptor as written in a schema file.
type Field struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Mode        string  `json:"mode,omitempty"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// DescriptorError points at the offending descriptor, e.g. "[3]" or "[3].fields[0]".
type DescriptorError struct {
	Path   string
	Name   string
	Reason string
}

func (e *DescriptorError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("descriptor %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("descriptor %s (%s): %s", e.Path, e.Name, e.Reason)
}

func (e *DescriptorError) Unwrap() error {
	return ErrInvalidDescriptor
}

var typeAliases = map[string]bigquery.FieldType{
	"STRING":     bigquery.StringFieldType,
	"BYTES":      bigquery.BytesFieldType,
	"INTEGER":    bigquery.IntegerFieldType,
	"INT64":      bigquery.IntegerFieldType,
	"FLOAT":      bigquery.FloatFieldType,
	"FLOAT64":    bigquery.FloatFieldType,
	"BOOLEAN":    bigquery.BooleanFieldType,
	"BOOL":       bigquery.BooleanFieldType,
	"TIMESTAMP":  bigquery.TimestampFieldType,
	"RECORD":     bigquery.RecordFieldType,
	"STRUCT":     bigquery.RecordFieldType,
	"DATE":       bigquery.DateFieldType,
	"TIME":       bigquery.TimeFieldType,
	"DATETIME":   bigquery.DateTimeFieldType,
	"NUMERIC":    bigquery.NumericFieldType,
	"DECIMAL":    bigquery.NumericFieldType,
	"BIGNUMERIC": bigquery.BigNumericFieldType,
	"BIGDECIMAL": bigquery.BigNumericFieldType,
	"GEOGRAPHY":  bigquery.GeographyFieldType,
	"INTERVAL":   bigquery.IntervalFieldType,
	"JSON":       bigquery.JSONFieldType,
}

// Load reads a JSON array of field descriptors from path and validates it.
// The returned fields keep the file order, with type and mode normalized.
func Load(path string) ([]Field, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	fields, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", path, err)
	}
	return fields, nil
}

func Parse(data []byte) ([]Field, error) {
	var fields []Field
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if len(fields) == 0 {
		return nil, errors.New("schema has no fields")
	}
	if err := normalize(fields, ""); err != nil {
		return nil, err
	}
	return fields, nil
}

func normalize(fields []Field, parent string) error {
	seen := make(map[string]int, len(fields))
	for i := range fields {
		f := &fields[i]
		path := fmt.Sprintf("%s[%d]", parent, i)

		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			return &DescriptorError{Path: path, Reason: "name is required"}
		}
		key := strings.ToLower(f.Name)
		if prev, ok := seen[key]; ok {
			return &DescriptorError{Path: path, Name: f.Name, Reason: fmt.Sprintf("duplicates the name of %s[%d]", parent, prev)}
		}
		seen[key] = i

		if strings.TrimSpace(f.Type) == "" {
			return &DescriptorError{Path: path, Name: f.Name, Reason: "type is required"}
		}
		fieldType, ok := typeAliases[strings.ToUpper(strings.TrimSpace(f.Type))]
		if !ok {
			return &DescriptorError{Path: path, Name: f.Name, Reason: fmt.Sprintf("unknown type %q", f.Type)}
		}
		f.Type = string(fieldType)

		switch mode := strings.ToUpper(strings.TrimSpace(f.Mode)); mode {
		case "":
			f.Mode = ModeNullable
		case ModeNullable, ModeRequired, ModeRepeated:
			f.Mode = mode
		default:
			return &DescriptorError{Path: path, Name: f.Name, Reason: fmt.Sprintf("unknown mode %q", f.Mode)}
		}

		isRecord := fieldType == bigquery.RecordFieldType
		if isRecord && len(f.Fields) == 0 {
			return &DescriptorError{Path: path, Name: f.Name, Reason: "RECORD requires nested fields"}
		}
		if !isRecord && len(f.Fields) > 0 {
			return &DescriptorError{Path: path, Name: f.Name, Reason: "nested fields are only allowed on RECORD"}
		}
		if isRecord {
			if err := normalize(f.Fields, path+".fields"); err != nil {
				return err
			}
		}
	}
	return nil
}

// ToBigQuery converts normalized fields into the BigQuery client's schema, in order.
func ToBigQuery(fields []Field) bigquery.Schema {
	out := make(bigquery.Schema, 0, len(fields))
	for _, f := range fields {
		fs := &bigquery.FieldSchema{
			Name:        f.Name,
			Type:        bigquery.FieldType(f.Type),
			Description: f.Description,
			Required:    f.Mode == ModeRequired,
			Repeated:    f.Mode == ModeRepeated,
		}
		if len(f.Fields) > 0 {
			fs.Schema = ToBigQuery(f.Fields)
		}
		out = append(out, fs)
	}
	return out
}

// LoadBigQuery is Load followed by ToBigQuery.
func LoadBigQuery(path string) (bigquery.Schema, error) {
	fields, err := Load(path)
	if err != nil {
		return nil, err
	}
	return ToBigQuery(fields), nil
}
