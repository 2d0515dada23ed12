package encoder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidConfig is returned for a malformed stage configuration.
var ErrInvalidConfig = errors.New("invalid stage config")

// PoolToken marks a 2x2, stride 2 max pooling in a textual stage config.
const PoolToken = "M"

// LayerSpec is one entry of a stage: either a max pooling or a 3x3
// convolution (padding 1) followed by a ReLU.
type LayerSpec struct {
	Pool     bool
	Channels int64
}

func (s LayerSpec) String() string {
	if s.Pool {
		return PoolToken
	}
	return strconv.FormatInt(s.Channels, 10)
}

// StageConfig lists the layers of one stage in forward order.
type StageConfig []LayerSpec

// OutChannels returns the channel depth produced by the stage when fed
// cIn channels.
func (c StageConfig) OutChannels(cIn int64) int64 {
	out := cIn
	for _, s := range c {
		if !s.Pool {
			out = s.Channels
		}
	}
	return out
}

// Tokens returns the textual form of the stage, e.g. [M 128 128].
func (c StageConfig) Tokens() []string {
	tokens := make([]string, len(c))
	for i, s := range c {
		tokens[i] = s.String()
	}
	return tokens
}

// convs counts the convolutions in the stage.
func (c StageConfig) convs() int {
	n := 0
	for _, s := range c {
		if !s.Pool {
			n++
		}
	}
	return n
}

// DefaultStageTokens is the OSVOS backbone: VGG16 features split before
// every pooling, last pooling dropped.
var DefaultStageTokens = [][]string{
	{"64", "64"},
	{"M", "128", "128"},
	{"M", "256", "256", "256"},
	{"M", "512", "512", "512"},
	{"M", "512", "512", "512"},
}

// DefaultStages is DefaultStageTokens parsed.
var DefaultStages = MustParseStages(DefaultStageTokens)

// ParseStage parses one stage such as [M 128 128].
func ParseStage(tokens []string) (StageConfig, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty stage", ErrInvalidConfig)
	}

	stage := make(StageConfig, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if strings.EqualFold(tok, PoolToken) {
			stage = append(stage, LayerSpec{Pool: true})
			continue
		}
		c, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown token %q", ErrInvalidConfig, tok)
		}
		if c <= 0 {
			return nil, fmt.Errorf("%w: non-positive channel width %d", ErrInvalidConfig, c)
		}
		stage = append(stage, LayerSpec{Channels: c})
	}

	return stage, nil
}

// ParseStages parses a nested textual stage config. Every stage must
// hold at least one convolution.
func ParseStages(tokens [][]string) ([]StageConfig, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no stages", ErrInvalidConfig)
	}

	stages := make([]StageConfig, len(tokens))
	for i, t := range tokens {
		stage, err := ParseStage(t)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		if stage.convs() == 0 {
			return nil, fmt.Errorf("stage %d: %w: no convolution", i, ErrInvalidConfig)
		}
		stages[i] = stage
	}

	return stages, nil
}

// MustParseStages is ParseStages but panics on error.
func MustParseStages(tokens [][]string) []StageConfig {
	stages, err := ParseStages(tokens)
	if err != nil {
		panic(err)
	}
	return stages
}

// Flatten joins stages into the single feature config of a plain VGG
// and appends the final pooling.
func Flatten(stages []StageConfig) StageConfig {
	var features StageConfig
	for _, s := range stages {
		features = append(features, s...)
	}
	return append(features, LayerSpec{Pool: true})
}
