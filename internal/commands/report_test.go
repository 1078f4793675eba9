package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norahq/nora/internal/project"
	"github.com/norahq/nora/internal/report"
)

type fakeReport struct {
	dataErr error
	docErr  error
	periods []report.Period
}

func (f *fakeReport) GenerateData(_ context.Context, period report.Period) (*report.Data, error) {
	f.periods = append(f.periods, period)
	if f.dataErr != nil {
		return nil, f.dataErr
	}
	return &report.Data{
		Period: period,
		From:   wednesday.AddDate(0, 0, -7),
		To:     wednesday,
		Summary: project.Summary{
			TotalTasks:     20,
			CompletedTasks: 15,
			CompletionRate: 0.75,
			TopPerformers:  []string{"Lucía", "Marcos"},
			Gaps:           []string{"3 tareas sin responsable"},
		},
	}, nil
}

func (f *fakeReport) ToDocument(data *report.Data) (report.Artifact, error) {
	if f.docErr != nil {
		return report.Artifact{}, f.docErr
	}
	return report.Artifact{Name: "informe-semanal-2025-06-04.md", MIMEType: "text/markdown"}, nil
}

func (f *fakeReport) ToTable(data *report.Data) (report.Artifact, error) {
	return report.Artifact{Name: "informe-semanal-2025-06-04.csv", MIMEType: "text/csv"}, nil
}

func TestClassifyReportPeriods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg        string
		wantMatch  bool
		wantPeriod report.Period
	}{
		{"dame el reporte", true, report.PeriodWeekly},
		{"quiero el informe mensual", true, report.PeriodMonthly},
		{"genera el informe de este mes", true, report.PeriodMonthly},
		{"cuántas tareas hay", false, ""},
	}

	for _, tc := range tests {
		period, ok := classifyReport(tc.msg)
		assert.Equal(t, tc.wantMatch, ok, tc.msg)
		assert.Equal(t, tc.wantPeriod, period, tc.msg)
	}
}

func TestReportDefaultsToWeeklyAndListsArtifacts(t *testing.T) {
	t.Parallel()

	f := &fakeReport{}
	p := NewReportProcessor(f)

	suffix, err := p.Process(context.Background(), "dame el reporte", "respuesta")
	require.NoError(t, err)

	assert.Equal(t, []report.Period{report.PeriodWeekly}, f.periods)
	assert.Contains(t, suffix, "Informe semanal")
	assert.Contains(t, suffix, "Tareas totales: 20")
	assert.Contains(t, suffix, "75%")
	assert.Contains(t, suffix, "Lucía, Marcos")
	assert.Contains(t, suffix, "3 tareas sin responsable")
	assert.Contains(t, suffix, "informe-semanal-2025-06-04.md")
	assert.Contains(t, suffix, "informe-semanal-2025-06-04.csv")
}

func TestReportCollaboratorFailureAppendsErrorBlock(t *testing.T) {
	t.Parallel()

	f := &fakeReport{dataErr: errors.New("planner no responde")}
	p := NewReportProcessor(f)

	suffix, err := p.Process(context.Background(), "dame el informe", "respuesta")
	require.NoError(t, err)
	assert.Contains(t, suffix, "No pude generar el informe")
	assert.Contains(t, suffix, "planner no responde")
}

func TestReportDocumentFailureAppendsErrorBlock(t *testing.T) {
	t.Parallel()

	f := &fakeReport{docErr: errors.New("plantilla rota")}
	p := NewReportProcessor(f)

	suffix, err := p.Process(context.Background(), "dame el informe", "respuesta")
	require.NoError(t, err)
	assert.Contains(t, suffix, "No pude generar el documento")
}
