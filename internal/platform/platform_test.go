package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/audiotopo/internal/platform/fixture"
	"github.com/smazurov/audiotopo/internal/platform/hda"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		cfg     Config
		want    string
		wantErr bool
	}{
		{Config{}, BackendHDA, false},
		{Config{FixtureFile: "x.toml"}, BackendFixture, false},
		{Config{Backend: "HDA", FixtureFile: "x.toml"}, BackendHDA, false},
		{Config{Backend: "fixture"}, BackendFixture, false},
		{Config{Backend: "wasapi"}, "", true},
	}
	for _, tt := range tests {
		got, err := tt.cfg.Resolve()
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestOpen(t *testing.T) {
	cat, err := Open(Config{ProcRoot: "hda/testdata/asound"})
	require.NoError(t, err)
	hdaCat, ok := cat.(*hda.Catalog)
	require.True(t, ok)
	assert.Equal(t, "hda/testdata/asound", hdaCat.Root())

	cat, err = Open(Config{FixtureFile: "fixture/testdata/laptop.toml"})
	require.NoError(t, err)
	_, ok = cat.(*fixture.Catalog)
	assert.True(t, ok)

	_, err = Open(Config{Backend: BackendFixture})
	assert.Error(t, err)

	_, err = Open(Config{FixtureFile: "fixture/testdata/missing.toml"})
	assert.Error(t, err)
}
