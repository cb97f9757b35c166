package postprocess

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_StopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0

	p := NewPipeline(
		func(ctx context.Context, text string) (string, error) {
			calls++
			return text + "a", nil
		},
		func(ctx context.Context, text string) (string, error) {
			calls++
			return "", boom
		},
		func(ctx context.Context, text string) (string, error) {
			calls++
			return text + "c", nil
		},
	)

	out, err := p.Process(context.Background(), "x")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "xa", out)
	assert.Equal(t, 2, calls)
}

func TestPipeline_NilPassesThrough(t *testing.T) {
	var p *Pipeline

	out, err := p.Process(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "text", out)
}
