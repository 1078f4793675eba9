package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/norahq/nora/internal/report"
)

// ReportService is the report collaborator contract.
type ReportService interface {
	GenerateData(ctx context.Context, period report.Period) (*report.Data, error)
	ToDocument(data *report.Data) (report.Artifact, error)
	ToTable(data *report.Data) (report.Artifact, error)
}

var (
	reportTriggers  = []string{"informe", "reporte"}
	monthlyKeywords = []string{"mensual", "del mes", "este mes", "último mes", "ultimo mes"}
)

// ReportProcessor builds the periodic activity report on request and emits
// the printable document plus the tabular export.
type ReportProcessor struct {
	svc ReportService
}

func NewReportProcessor(svc ReportService) *ReportProcessor {
	return &ReportProcessor{svc: svc}
}

func (p *ReportProcessor) Name() string { return "informes" }

// classifyReport resolves the requested period; weekly unless a monthly
// keyword appears.
func classifyReport(msg string) (report.Period, bool) {
	if !containsAny(msg, reportTriggers...) {
		return "", false
	}
	if containsAny(msg, monthlyKeywords...) {
		return report.PeriodMonthly, true
	}
	return report.PeriodWeekly, true
}

func (p *ReportProcessor) Process(ctx context.Context, userMessage, _ string) (string, error) {
	period, ok := classifyReport(userMessage)
	if !ok {
		return "", nil
	}

	data, err := p.svc.GenerateData(ctx, period)
	if err != nil {
		return fmt.Sprintf("\n\n⚠️ No pude generar el informe: %v", err), nil
	}

	doc, err := p.svc.ToDocument(data)
	if err != nil {
		return fmt.Sprintf("\n\n⚠️ No pude generar el documento del informe: %v", err), nil
	}
	table, err := p.svc.ToTable(data)
	if err != nil {
		return fmt.Sprintf("\n\n⚠️ No pude generar la tabla del informe: %v", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n\n📊 *Informe %s*\n", periodLabel(period))
	fmt.Fprintf(&b, "• Tareas totales: %d\n", data.Summary.TotalTasks)
	fmt.Fprintf(&b, "• Completadas: %d (%.0f%%)\n", data.Summary.CompletedTasks, data.Summary.CompletionRate*100)
	if len(data.Summary.TopPerformers) > 0 {
		fmt.Fprintf(&b, "• Mejores contribuidores: %s\n", strings.Join(data.Summary.TopPerformers, ", "))
	}
	if len(data.Summary.Gaps) > 0 {
		fmt.Fprintf(&b, "• Puntos de atención: %s\n", strings.Join(data.Summary.Gaps, ", "))
	}
	fmt.Fprintf(&b, "Archivos generados: %s y %s", doc.Name, table.Name)

	return b.String(), nil
}

func periodLabel(p report.Period) string {
	if p == report.PeriodMonthly {
		return "mensual"
	}
	return "semanal"
}
