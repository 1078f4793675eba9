// Package commands post-processes the model's raw answer: each processor
// detects an actionable intent in the user's original message, optionally
// performs one external side effect, and appends structured result text.
package commands

import (
	"context"
	"fmt"
	"log"
)

// Processor is one pipeline stage. Process receives the user's original
// message and the answer text as produced by the preceding stages, and
// returns the text to append ("" when its trigger did not match). Prior
// output is never modified: stages only ever contribute a suffix.
type Processor interface {
	Name() string
	Process(ctx context.Context, userMessage, answer string) (string, error)
}

// Pipeline runs its processors in a fixed order. A stage that returns an
// error or panics contributes a failure block instead of breaking the
// answer; one misbehaving side effect never blocks the rest.
type Pipeline struct {
	procs []Processor
}

func NewPipeline(procs ...Processor) *Pipeline {
	return &Pipeline{procs: procs}
}

func (p *Pipeline) Run(ctx context.Context, userMessage, answer string) string {
	out := answer
	for _, proc := range p.procs {
		out += p.runStage(ctx, proc, userMessage, out)
	}
	return out
}

func (p *Pipeline) runStage(ctx context.Context, proc Processor, userMessage, answer string) (suffix string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("commands: %s panicked: %v", proc.Name(), r)
			suffix = failureBlock(proc.Name(), fmt.Sprintf("%v", r))
		}
	}()

	suffix, err := proc.Process(ctx, userMessage, answer)
	if err != nil {
		log.Printf("commands: %s failed: %v", proc.Name(), err)
		return failureBlock(proc.Name(), err.Error())
	}
	return suffix
}

func failureBlock(stage, cause string) string {
	return fmt.Sprintf("\n\n⚠️ No pude completar la acción (%s): %s", stage, cause)
}
