package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"proxy-checker/internal/config"
	"proxy-checker/internal/domain"
)

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name        string
		targets     []domain.ProbeTarget
		primary     int
		expectError bool
	}{
		{name: "Defaults", targets: config.DefaultProbeTargets(), primary: 0},
		{name: "Empty", targets: nil, expectError: true},
		{
			name:        "Primary out of range",
			targets:     []domain.ProbeTarget{{Name: "A", URL: "http://a.test"}},
			primary:     1,
			expectError: true,
		},
		{
			name: "Duplicate names",
			targets: []domain.ProbeTarget{
				{Name: "A", URL: "http://a.test"},
				{Name: "A", URL: "http://b.test"},
			},
			expectError: true,
		},
		{
			name:        "Non http scheme",
			targets:     []domain.ProbeTarget{{Name: "A", URL: "ftp://a.test"}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := NewRegistry(tt.targets, tt.primary)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.targets), reg.Len())
			assert.Equal(t, tt.primary, reg.Primary())
		})
	}
}

func TestRegistryIsImmutable(t *testing.T) {
	src := []domain.ProbeTarget{{Name: "A", URL: "http://a.test"}}
	reg, err := NewRegistry(src, 0)
	require.NoError(t, err)

	src[0].Name = "changed"
	got := reg.Targets()
	got[0].URL = "http://other.test"

	assert.Equal(t, "A", reg.At(0).Name)
	assert.Equal(t, "http://a.test", reg.At(0).URL)
}
