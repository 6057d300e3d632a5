package validation

import (
	"strings"
	"testing"
)

type observationSpec struct {
	Path string `validate:"required"`
	Type string `validate:"omitempty,oneof=Attractor FixedPoint TimeSeries"`
}

type sketchSpec struct {
	Name         string            `validate:"required,identifier"`
	Witnesses    int               `validate:"gte=0,lte=1000"`
	Observations []observationSpec `validate:"dive"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name        string
		spec        sketchSpec
		expectError bool
		errorField  string
	}{
		{
			name: "Valid sketch",
			spec: sketchSpec{Name: "tlgl", Witnesses: 5, Observations: []observationSpec{{Path: "a.txt", Type: "Attractor"}}},
		},
		{
			name:        "Missing name",
			spec:        sketchSpec{},
			expectError: true,
			errorField:  "Name",
		},
		{
			name:        "Name with spaces",
			spec:        sketchSpec{Name: "my sketch"},
			expectError: true,
			errorField:  "Name",
		},
		{
			name:        "Too many witnesses",
			spec:        sketchSpec{Name: "s", Witnesses: 1001},
			expectError: true,
			errorField:  "Witnesses",
		},
		{
			name:        "Unknown observation type",
			spec:        sketchSpec{Name: "s", Observations: []observationSpec{{Path: "a.txt", Type: "Trajectory"}}},
			expectError: true,
			errorField:  "Observations[0].Type",
		},
		{
			name:        "Observation without path",
			spec:        sketchSpec{Name: "s", Observations: []observationSpec{{}}},
			expectError: true,
			errorField:  "Observations[0].Path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.spec)
			if tt.expectError && err == nil {
				t.Fatal("Expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if tt.expectError && !strings.Contains(err.Error(), tt.errorField) {
				t.Errorf("Expected error to mention %s, got: %v", tt.errorField, err)
			}
		})
	}
}

func TestStruct_Nil(t *testing.T) {
	if err := Struct(nil); err == nil {
		t.Error("Expected error for nil value")
	}
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		expectError bool
	}{
		{"Simple", "attractor", false},
		{"Underscore start", "_p1", false},
		{"Digits inside", "f_5", false},
		{"Empty", "", true},
		{"Digit start", "1a", true},
		{"Dash", "a-b", true},
		{"Too long", strings.Repeat("a", MaxNameLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.value)
			if tt.expectError != (err != nil) {
				t.Errorf("expectError=%v, got %v", tt.expectError, err)
			}
		})
	}
}
