package postprocess

import (
	"context"
	"fmt"
	"log/slog"
)

// Processor transforms text on its way to the clipboard
type Processor func(ctx context.Context, text string) (string, error)

// Pipeline runs a series of processors in sequence. A nil or empty
// pipeline returns its input unchanged.
type Pipeline struct {
	processors []Processor
}

// NewPipeline creates a new processing pipeline
func NewPipeline(processors ...Processor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs all processors in order and stops at the first error,
// returning the text as produced by the last successful stage.
func (p *Pipeline) Process(ctx context.Context, text string) (string, error) {
	if p == nil {
		return text, nil
	}

	result := text
	for i, proc := range p.processors {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		out, err := proc(ctx, result)
		if err != nil {
			slog.Error("Processor failed", "stage", i, "error", err)
			return result, fmt.Errorf("processor %d failed: %w", i, err)
		}
		result = out
	}

	return result, nil
}

// AddProcessor appends a stage to the pipeline
func (p *Pipeline) AddProcessor(proc Processor) {
	p.processors = append(p.processors, proc)
}
