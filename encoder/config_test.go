package encoder_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugarme/osvos/encoder"
)

func TestParseStages(t *testing.T) {
	stages, err := encoder.ParseStages(encoder.DefaultStageTokens)
	require.NoError(t, err)
	require.Len(t, stages, 5)

	assert.Equal(t, encoder.StageConfig{{Channels: 64}, {Channels: 64}}, stages[0])
	assert.Equal(t, encoder.StageConfig{{Pool: true}, {Channels: 128}, {Channels: 128}}, stages[1])
	assert.Equal(t, []string{"M", "512", "512", "512"}, stages[4].Tokens())

	wantOut := []int64{64, 128, 256, 512, 512}
	cIn := int64(3)
	for i, s := range stages {
		cIn = s.OutChannels(cIn)
		assert.Equal(t, wantOut[i], cIn, "stage %d", i)
	}
}

func TestParseStages_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		tokens [][]string
	}{
		{"no stages", nil},
		{"empty stage", [][]string{{"64"}, {}}},
		{"unknown token", [][]string{{"64", "X"}}},
		{"zero width", [][]string{{"0"}}},
		{"negative width", [][]string{{"-8"}}},
		{"pool only", [][]string{{"64"}, {"M"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := encoder.ParseStages(tt.tokens)
			assert.True(t, errors.Is(err, encoder.ErrInvalidConfig), "got %v", err)
		})
	}

	assert.Panics(t, func() { encoder.MustParseStages([][]string{{"m"}}) })
}

func TestParseStage_LowerCasePool(t *testing.T) {
	stage, err := encoder.ParseStage([]string{"m", " 32 "})
	require.NoError(t, err)
	assert.Equal(t, encoder.StageConfig{{Pool: true}, {Channels: 32}}, stage)
}

func TestFlatten(t *testing.T) {
	features := encoder.Flatten(encoder.DefaultStages)
	want := []string{
		"64", "64", "M",
		"128", "128", "M",
		"256", "256", "256", "M",
		"512", "512", "512", "M",
		"512", "512", "512", "M",
	}
	assert.Equal(t, want, features.Tokens())
	assert.Equal(t, features, encoder.VGG16Config.Features)
}
