package finder

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-shards/internal/faults"
	"github.com/goliatone/go-repository-shards/shardset"
)

// Lookup is one of the supported lookup shapes: ByID, ByField, ByFields2 or
// ByFields3. The set is closed.
type Lookup interface {
	// Method names the shape; it leads derived cache keys.
	Method() string
	// Fields lists the field/value pairs of the lookup in argument order.
	Fields() []shardset.FieldValue
	sealed()
}

// IDField is the field name ByID reports.
const IDField = "id"

// ByID finds an entity by its identity. Identity always routes directly.
type ByID struct {
	ID string
}

// ByField finds an entity by one unique field.
type ByField struct {
	Field string
	Value any
}

// ByFields2 finds an entity by a conjunction of two unique fields.
type ByFields2 struct {
	Field1 string
	Value1 any
	Field2 string
	Value2 any
}

// ByFields3 finds an entity by a conjunction of three unique fields.
type ByFields3 struct {
	Field1 string
	Value1 any
	Field2 string
	Value2 any
	Field3 string
	Value3 any
}

func (ByID) Method() string      { return "ByID" }
func (ByField) Method() string   { return "ByField" }
func (ByFields2) Method() string { return "ByFields2" }
func (ByFields3) Method() string { return "ByFields3" }

func (l ByID) Fields() []shardset.FieldValue {
	return []shardset.FieldValue{{Name: IDField, Value: l.ID}}
}

func (l ByField) Fields() []shardset.FieldValue {
	return []shardset.FieldValue{{Name: l.Field, Value: l.Value}}
}

func (l ByFields2) Fields() []shardset.FieldValue {
	return []shardset.FieldValue{
		{Name: l.Field1, Value: l.Value1},
		{Name: l.Field2, Value: l.Value2},
	}
}

func (l ByFields3) Fields() []shardset.FieldValue {
	return []shardset.FieldValue{
		{Name: l.Field1, Value: l.Value1},
		{Name: l.Field2, Value: l.Value2},
		{Name: l.Field3, Value: l.Value3},
	}
}

func (ByID) sealed()      {}
func (ByField) sealed()   {}
func (ByFields2) sealed() {}
func (ByFields3) sealed() {}

// normalize dereferences pointer variants so *ByID routes like ByID. Nil
// lookups are rejected.
func normalize(lookup Lookup) (Lookup, error) {
	var out Lookup
	switch l := lookup.(type) {
	case *ByID:
		if l != nil {
			out = *l
		}
	case *ByField:
		if l != nil {
			out = *l
		}
	case *ByFields2:
		if l != nil {
			out = *l
		}
	case *ByFields3:
		if l != nil {
			out = *l
		}
	default:
		out = lookup
	}
	if out == nil {
		return nil, faults.New(goerrors.CategoryValidation, faults.CodeInvalidConfig, "nil lookup")
	}
	return out, nil
}
