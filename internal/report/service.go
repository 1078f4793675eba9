// Package report builds periodic activity reports from planner aggregates
// and renders them as a printable document plus a tabular export.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/norahq/nora/internal/project"
)

type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Data is one fully resolved report: the aggregates plus the window they
// cover.
type Data struct {
	Period  Period
	From    time.Time
	To      time.Time
	Summary project.Summary
}

// Artifact is a generated report file.
type Artifact struct {
	Name     string
	MIMEType string
	Content  []byte
}

type Service struct {
	projects *project.Client
	now      func() time.Time
}

func NewService(projects *project.Client, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{projects: projects, now: clock}
}

// GenerateData resolves the reporting window for the period and fetches the
// planner aggregates for it.
func (s *Service) GenerateData(ctx context.Context, period Period) (*Data, error) {
	to := s.now()
	var from time.Time
	switch period {
	case PeriodMonthly:
		from = to.AddDate(0, -1, 0)
	default:
		period = PeriodWeekly
		from = to.AddDate(0, 0, -7)
	}

	summary, err := s.projects.ReportSummary(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("report data for %s: %w", period, err)
	}

	return &Data{Period: period, From: from, To: to, Summary: *summary}, nil
}

// ToDocument renders the printable markdown document.
func (s *Service) ToDocument(data *Data) (Artifact, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Informe %s de actividad\n\n", periodLabel(data.Period))
	fmt.Fprintf(&b, "Periodo: %s — %s\n\n", data.From.Format("02/01/2006"), data.To.Format("02/01/2006"))
	fmt.Fprintf(&b, "- Tareas totales: %d\n", data.Summary.TotalTasks)
	fmt.Fprintf(&b, "- Tareas completadas: %d\n", data.Summary.CompletedTasks)
	fmt.Fprintf(&b, "- Tareas vencidas: %d\n", data.Summary.OverdueTasks)
	fmt.Fprintf(&b, "- Tasa de finalización: %.0f%%\n", data.Summary.CompletionRate*100)

	if len(data.Summary.TopPerformers) > 0 {
		b.WriteString("\n## Mejores contribuidores\n")
		for _, p := range data.Summary.TopPerformers {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	if len(data.Summary.Gaps) > 0 {
		b.WriteString("\n## Puntos de atención\n")
		for _, g := range data.Summary.Gaps {
			fmt.Fprintf(&b, "- %s\n", g)
		}
	}

	return Artifact{
		Name:     s.artifactName(data, "md"),
		MIMEType: "text/markdown",
		Content:  []byte(b.String()),
	}, nil
}

// ToTable renders the CSV export.
func (s *Service) ToTable(data *Data) (Artifact, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"metrica", "valor"},
		{"tareas_totales", fmt.Sprintf("%d", data.Summary.TotalTasks)},
		{"tareas_completadas", fmt.Sprintf("%d", data.Summary.CompletedTasks)},
		{"tareas_vencidas", fmt.Sprintf("%d", data.Summary.OverdueTasks)},
		{"tasa_finalizacion", fmt.Sprintf("%.2f", data.Summary.CompletionRate)},
		{"mejores_contribuidores", strings.Join(data.Summary.TopPerformers, "; ")},
		{"puntos_atencion", strings.Join(data.Summary.Gaps, "; ")},
	}
	if err := w.WriteAll(rows); err != nil {
		return Artifact{}, fmt.Errorf("writing csv: %w", err)
	}

	return Artifact{
		Name:     s.artifactName(data, "csv"),
		MIMEType: "text/csv",
		Content:  buf.Bytes(),
	}, nil
}

func (s *Service) artifactName(data *Data, ext string) string {
	return fmt.Sprintf("informe-%s-%s.%s", periodLabel(data.Period), data.To.Format("2006-01-02"), ext)
}

func periodLabel(p Period) string {
	if p == PeriodMonthly {
		return "mensual"
	}
	return "semanal"
}
