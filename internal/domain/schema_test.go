package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchema(t *testing.T) {
	tests := []struct {
		name      string
		fields    []Field
		wantError bool
		errorMsg  string
	}{
		{
			name:   "ordered fields",
			fields: []Field{StringField("taxonID"), StringField("scientificName"), IntegerField("year")},
		},
		{
			name:      "duplicate field name",
			fields:    []Field{StringField("taxonID"), StringField("taxonID")},
			wantError: true,
			errorMsg:  "duplicate field",
		},
		{name: "empty schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSchema(tt.fields...)
			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.fields), s.Len())
			for i, f := range s.Fields() {
				assert.Equal(t, tt.fields[i].Name(), f.Name(), "declaration order preserved")
			}
		})
	}
}

func TestFieldModifiers(t *testing.T) {
	f := StringField("class_").WithDataKey("class").WithExport().
		WithURI("http://rs.tdwg.org/dwc/terms/class")

	assert.Equal(t, "class_", f.Name())
	assert.Equal(t, "class", f.DataKey())
	assert.True(t, f.Export())
	assert.Equal(t, "http://rs.tdwg.org/dwc/terms/class", f.URI())

	plain := StringField("kingdom")
	assert.Equal(t, "kingdom", plain.DataKey(), "data key falls back to name")
	assert.False(t, plain.Export())
}

func TestSchemaMerged(t *testing.T) {
	left := MustSchema(StringField("id").WithExport(), StringField("name"))
	right := MustSchema(StringField("name").WithDataKey("label"), StringField("rank"))

	merged := left.Merged(right)

	require.Equal(t, []string{"id", "name", "rank"}, merged.Names())
	f, ok := merged.Field("name")
	require.True(t, ok)
	assert.Equal(t, "name", f.DataKey(), "left field wins on collision")
}

func TestSchemaProjected(t *testing.T) {
	s := MustSchema(StringField("id"), StringField("name"), StringField("rank"))

	p, err := s.Projected("rank", "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"rank", "id"}, p.Names())

	_, err = s.Projected("nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSchemaWithErrorFields(t *testing.T) {
	s := MustSchema(StringField("id"))
	e := s.WithErrorFields()

	require.Equal(t, []string{"id", LineField, MessagesField}, e.Names())
	line, _ := e.Field(LineField)
	assert.Equal(t, IntegerType, line.Type())

	again := e.WithErrorFields()
	assert.Equal(t, e.Names(), again.Names(), "idempotent")
}

func TestFieldDeserialize(t *testing.T) {
	tests := []struct {
		name      string
		field     Field
		input     string
		want      any
		wantError bool
	}{
		{name: "string", field: StringField("x"), input: "Acacia dealbata", want: "Acacia dealbata"},
		{name: "empty string is nil", field: StringField("x"), input: "", want: nil},
		{name: "whitespace only is nil", field: IntegerField("x"), input: "   ", want: nil},
		{name: "integer", field: IntegerField("x"), input: "42", want: 42},
		{name: "bad integer", field: IntegerField("x"), input: "forty", wantError: true},
		{name: "float", field: FloatField("x"), input: "3.25", want: 3.25},
		{name: "boolean true", field: BooleanField("x"), input: "True", want: true},
		{name: "boolean zero", field: BooleanField("x"), input: "0", want: false},
		{name: "bad boolean", field: BooleanField("x"), input: "maybe", wantError: true},
		{
			name:  "date",
			field: DateField("x"),
			input: "2013-06-01",
			want:  time.Date(2013, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{name: "bad date", field: DateField("x"), input: "June", wantError: true},
		{name: "uuid passes through", field: UUIDField("x"), input: "a-b-c", want: "a-b-c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Deserialize(tt.input)
			if tt.wantError {
				require.Error(t, err)
				var conv *ConversionError
				assert.ErrorAs(t, err, &conv)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldSerialize(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value any
		want  string
	}{
		{name: "nil is empty", field: StringField("x"), value: nil, want: ""},
		{name: "string", field: StringField("x"), value: "Acacia", want: "Acacia"},
		{name: "integer", field: IntegerField("x"), value: 7, want: "7"},
		{name: "float", field: FloatField("x"), value: 0.5, want: "0.5"},
		{name: "boolean", field: BooleanField("x"), value: true, want: "true"},
		{
			name:  "date",
			field: DateField("x"),
			value: time.Date(2013, 6, 1, 0, 0, 0, 0, time.UTC),
			want:  "2013-06-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Serialize(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("type mismatch", func(t *testing.T) {
		_, err := IntegerField("x").Serialize("seven")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})
}

func TestParseType(t *testing.T) {
	for name, want := range map[string]Type{
		"string": StringType, "Integer": IntegerType, "int": IntegerType,
		"float": FloatType, "boolean": BooleanType, "date": DateType,
		"datetime": DateTimeType, "uri": URIType, "uuid": UUIDType,
	} {
		got, err := ParseType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseType("blob")
	assert.Error(t, err)
}
