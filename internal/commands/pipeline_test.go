package commands

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubProcessor struct {
	name   string
	suffix string
	err    error
	panics bool
	seen   []string
}

func (s *stubProcessor) Name() string { return s.name }

func (s *stubProcessor) Process(_ context.Context, _, answer string) (string, error) {
	s.seen = append(s.seen, answer)
	if s.panics {
		panic("boom")
	}
	return s.suffix, s.err
}

func TestPipelineOnlyAppends(t *testing.T) {
	t.Parallel()

	a := &stubProcessor{name: "a", suffix: "\n\nbloque A"}
	b := &stubProcessor{name: "b", suffix: "\n\nbloque B"}
	p := NewPipeline(a, b)

	out := p.Run(context.Background(), "mensaje", "respuesta base")

	// Each stage receives the text produced by the previous one, and the
	// final text is a strict superstring of every intermediate output.
	assert.Equal(t, []string{"respuesta base"}, a.seen)
	assert.Equal(t, []string{"respuesta base\n\nbloque A"}, b.seen)
	assert.Equal(t, "respuesta base\n\nbloque A\n\nbloque B", out)
	assert.True(t, strings.HasPrefix(out, b.seen[0]))
}

func TestPipelineStageErrorBecomesFailureBlock(t *testing.T) {
	t.Parallel()

	bad := &stubProcessor{name: "calendario", err: errors.New("servicio caído")}
	after := &stubProcessor{name: "after", suffix: "\n\nsigo vivo"}
	p := NewPipeline(bad, after)

	out := p.Run(context.Background(), "mensaje", "respuesta")

	assert.True(t, strings.HasPrefix(out, "respuesta"))
	assert.Contains(t, out, "No pude completar la acción (calendario)")
	assert.Contains(t, out, "servicio caído")
	// The failing stage does not block later stages.
	assert.Contains(t, out, "sigo vivo")
}

func TestPipelineStagePanicIsContained(t *testing.T) {
	t.Parallel()

	p := NewPipeline(&stubProcessor{name: "tareas", panics: true})

	out := p.Run(context.Background(), "mensaje", "respuesta")
	assert.True(t, strings.HasPrefix(out, "respuesta"))
	assert.Contains(t, out, "No pude completar la acción (tareas)")
}

func TestPipelineNoTriggerLeavesAnswerUntouched(t *testing.T) {
	t.Parallel()

	p := NewPipeline(&stubProcessor{name: "a"}, &stubProcessor{name: "b"})
	out := p.Run(context.Background(), "mensaje", "respuesta")
	assert.Equal(t, "respuesta", out)
}
