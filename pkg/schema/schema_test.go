package schema

import (
	"math/rand"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/ingestor/pkg/metadata"
)

func TestResolveTypeTable(t *testing.T) {
	tests := []struct {
		dtype string
		want  arrow.DataType
	}{
		{"int", arrow.PrimitiveTypes.Int64},
		{"Integer", arrow.PrimitiveTypes.Int64},
		{"BIGINT", arrow.PrimitiveTypes.Int64},
		{"float", arrow.PrimitiveTypes.Float64},
		{"double", arrow.PrimitiveTypes.Float64},
		{"string", arrow.BinaryTypes.String},
		{"text", arrow.BinaryTypes.String},
		{"boolean", arrow.FixedWidthTypes.Boolean},
		{"datetime", arrow.FixedWidthTypes.Timestamp_s},
		{"timestamp", arrow.FixedWidthTypes.Timestamp_s},
		{"date", arrow.FixedWidthTypes.Date32},
		{"", arrow.BinaryTypes.String},
		{"geometry", arrow.BinaryTypes.String},
	}

	for _, tt := range tests {
		t.Run(tt.dtype, func(t *testing.T) {
			s := Resolve([]metadata.Feature{{Name: "c", DType: tt.dtype}})
			require.Len(t, s.Fields, 1)
			assert.True(t, arrow.TypeEqual(tt.want, s.Fields[0].Type()), "got %s", s.Fields[0].Type())
		})
	}
}

func TestResolveUnmapped(t *testing.T) {
	s := Resolve([]metadata.Feature{{Name: "a", DType: "int"}, {Name: "shape", DType: "geometry"}, {Name: "b"}})

	unmapped := s.Unmapped()
	require.Len(t, unmapped, 1)
	assert.Equal(t, "shape", unmapped[0].Name)
	assert.Equal(t, KindString, unmapped[0].Kind)
	assert.Equal(t, "string", s.Fields[2].Logical)
	assert.True(t, s.Fields[2].Mapped)
}

func TestResolveDeterministic(t *testing.T) {
	features := []metadata.Feature{
		{Name: "id", DType: "int"},
		{Name: "price", DType: "float"},
		{Name: "at", DType: "datetime"},
	}
	assert.Equal(t, Resolve(features), Resolve(features))
}

func TestResolvePreservesOrder(t *testing.T) {
	dtypes := []string{"int", "float", "string", "date", "datetime", "bool", "text"}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 20; i++ {
		features := make([]metadata.Feature, len(dtypes))
		for j, idx := range rng.Perm(len(dtypes)) {
			features[j] = metadata.Feature{Name: dtypes[idx] + "_col", DType: dtypes[idx]}
		}

		s := Resolve(features)
		arrowSchema := s.Arrow()
		for j, f := range features {
			assert.Equal(t, f.Name, s.Fields[j].Name)
			assert.Equal(t, f.Name, arrowSchema.Field(j).Name)
		}
	}
}

func TestArrowFieldsNullable(t *testing.T) {
	s := Resolve([]metadata.Feature{{Name: "id", DType: "int"}})
	assert.True(t, s.Arrow().Field(0).Nullable)
	assert.Equal(t, []string{"id"}, s.Names())
}
