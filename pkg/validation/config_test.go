package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidator_ExactlyOne(t *testing.T) {
	tests := map[string]struct {
		fields  map[string]string
		wantErr string
	}{
		"none set":  {map[string]string{"model": "", "model_file": ""}, "got []"},
		"both set":  {map[string]string{"model": "a -> a", "model_file": "m.aeon"}, "got [model model_file]"},
		"one set":   {map[string]string{"model": "", "model_file": "m.aeon"}, ""},
		"no fields": {map[string]string{}, "exactly one of []"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := NewConfigValidator("sketch").ExactlyOne(tt.fields).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidField)
		})
	}
}

func TestConfigValidator_AtMostOne(t *testing.T) {
	ok := NewConfigValidator("sketch").AtMostOne(map[string]string{"report.dir": "", "report.postgres_dsn": ""})
	assert.NoError(t, ok.Validate())

	bad := NewConfigValidator("sketch").AtMostOne(map[string]string{"report.dir": "out", "report.postgres_dsn": "postgres://x"})
	assert.EqualError(t, bad.Validate(),
		"sketch: at most one of [report.dir report.postgres_dsn] may be set, got [report.dir report.postgres_dsn]")
}

func TestConfigValidator_RangeInt(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		wantErr bool
	}{
		{"below", 0, true},
		{"above", 11, true},
		{"at min", 1, false},
		{"at max", 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfigValidator("sketch").RangeInt("extra_slots", tt.value, 1, 10).Validate()
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestConfigValidator_MinDuration(t *testing.T) {
	err := NewConfigValidator("sketch").MinDuration("timeout", 500*time.Millisecond, time.Second).Validate()
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "timeout", fe.Field)
	assert.Equal(t, "sketch.timeout: duration 500ms is below minimum 1s", fe.Error())

	assert.NoError(t, NewConfigValidator("sketch").MinDuration("timeout", time.Minute, time.Second).Validate())
}

func TestConfigValidator_CustomAndWhen(t *testing.T) {
	cv := NewConfigValidator("sketch").
		Custom("properties", func() error { return errors.New(`duplicate property "p"`) }).
		Custom("observations", func() error { return nil }).
		When(false, func(v *ConfigValidator) { v.RangeInt("summary_limit", 5, 0, 0) }).
		When(true, func(v *ConfigValidator) { v.RangeInt("witnesses", -1, 0, 10) })

	err := cv.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, `sketch.properties: duplicate property "p"`)
	assert.ErrorContains(t, err, "sketch.witnesses")
	assert.NotContains(t, err.Error(), "summary_limit")
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestDefaultOr(t *testing.T) {
	assert.Equal(t, "info", DefaultOr("", "info"))
	assert.Equal(t, "debug", DefaultOr("debug", "info"))
	assert.Equal(t, 100, DefaultOr(0, 100))
	assert.Equal(t, 3, DefaultOr(3, 100))
}
