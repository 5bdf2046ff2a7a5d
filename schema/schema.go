package schema

import (
	"math"

	"github.com/mortdb/mort/record"
)

/*
The schema package models the reader and writer schemas used to decode log
block payloads and to project records into the shape the caller asked for.
The writer schema describes the fields a block's records were written with;
the reader schema describes the fields the caller wants back. Projection
drops fields absent from the reader schema and fails on fields the reader
schema requires but the record does not carry.

Log payloads are JSON-encoded, so integer fields arrive as float64 after
decoding. Validation accepts integral floats for int fields.
*/

////////////////////////////////////////////////////////////////////////////////

// FieldType is the type of a schema field.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
)

// Field is one named, typed field of a schema.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Nullable bool      `json:"nullable,omitempty"`
}

// Schema is an ordered list of fields.
type Schema struct {
	Fields []Field `json:"fields"`
}

// NewSchema returns a schema over the given fields.
func NewSchema(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

// Lookup returns the field with the given name, if present.
func (s *Schema) Lookup(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func compatible(t FieldType, value any) bool {
	switch t {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeInt:
		switch v := value.(type) {
		case int, int32, int64, uint, uint32, uint64:
			return true
		case float64:
			return v == math.Trunc(v)
		default:
			return false
		}
	case TypeFloat:
		switch value.(type) {
		case float32, float64, int, int64:
			return true
		default:
			return false
		}
	case TypeBool:
		_, ok := value.(bool)
		return ok
	default:
		return false
	}
}

// Validate checks that every field of the record is present in the schema
// with a compatible type. Tombstones carry no fields and always validate.
func (s *Schema) Validate(rec record.Record) error {
	if rec.Deleted {
		return nil
	}
	for name, value := range rec.Fields {
		field, ok := s.Lookup(name)
		if !ok {
			return MismatchError{Field: name, Reason: "not in schema"}
		}
		if value == nil {
			if !field.Nullable {
				return MismatchError{Field: name, Reason: "null value for non-nullable field"}
			}
			continue
		}
		if !compatible(field.Type, value) {
			return MismatchError{Field: name, Reason: "incompatible value type"}
		}
	}
	return nil
}

// Project converts a record written with the writer schema into the reader
// schema's shape. Reader fields missing from the record are an error unless
// nullable, in which case they are filled with nil. Record fields absent from
// the reader schema are dropped.
func Project(reader *Schema, rec record.Record) (record.Record, error) {
	if rec.Deleted {
		return rec, nil
	}
	fields := make(map[string]any, len(reader.Fields))
	for _, field := range reader.Fields {
		value, ok := rec.Fields[field.Name]
		if !ok {
			if !field.Nullable {
				return record.Record{}, MismatchError{Field: field.Name, Reason: "missing from record"}
			}
			fields[field.Name] = nil
			continue
		}
		if value != nil && !compatible(field.Type, value) {
			return record.Record{}, MismatchError{Field: field.Name, Reason: "incompatible value type"}
		}
		fields[field.Name] = value
	}
	rec.Fields = fields
	return rec, nil
}
