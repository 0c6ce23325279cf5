package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleModel struct {
	Code      int64   `gorm:"primaryKey;autoIncrement:false"`
	Name      string  `gorm:"size:100"`
	Rate      float64 // Float
	Count     uint    // Unsigned integers coerce like integers
	Enabled   bool
	CreatedAt time.Time
	Skipped   string `gorm:"-"`
}

type noKeyModel struct {
	Label string
}

func TestFromModel(t *testing.T) {
	s, err := FromModel(&sampleModel{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "sample_models", s.Table)
	assert.Equal(t, "code", s.PrimaryKey)
	assert.Equal(t, []string{"code", "name", "rate", "count", "enabled", "created_at"}, s.FieldNames())

	expected := map[string]Type{
		"code":       Integer,
		"name":       Text,
		"rate":       Float,
		"count":      Integer,
		"enabled":    Boolean,
		"created_at": Unknown,
	}
	for name, typ := range expected {
		f, ok := s.Field(name)
		require.True(t, ok, name)
		assert.Equal(t, typ, f.Type, name)
	}

	_, ok := s.Field("skipped")
	assert.False(t, ok)
}

func TestFromModel_WithoutPrimaryKey(t *testing.T) {
	// The default primary key is not a column of the model, so the schema is rejected.
	_, err := FromModel(&noKeyModel{}, nil)
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr bool
	}{
		{
			name: "valid",
			schema: Schema{Table: "t", PrimaryKey: "id", Fields: []Field{
				{Name: "id", Type: Integer}, {Name: "name", Type: Text},
			}},
		},
		{
			name:    "missing table",
			schema:  Schema{PrimaryKey: "id", Fields: []Field{{Name: "id", Type: Integer}}},
			wantErr: true,
		},
		{
			name:    "no fields",
			schema:  Schema{Table: "t", PrimaryKey: "id"},
			wantErr: true,
		},
		{
			name: "duplicate field",
			schema: Schema{Table: "t", PrimaryKey: "id", Fields: []Field{
				{Name: "id", Type: Integer}, {Name: "id", Type: Text},
			}},
			wantErr: true,
		},
		{
			name:    "primary key not declared",
			schema:  Schema{Table: "t", PrimaryKey: "code", Fields: []Field{{Name: "id", Type: Integer}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSchema)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
