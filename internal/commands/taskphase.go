package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/norahq/nora/internal/project"
)

// ProjectService is the planner collaborator contract.
type ProjectService interface {
	Search(ctx context.Context, nameFragment string) ([]project.Project, error)
	CreateTask(ctx context.Context, projectID string, fields project.TaskFields, actorID string) (*project.Task, error)
	CreatePhase(ctx context.Context, projectID string, fields project.PhaseFields, actorID string) (*project.Phase, error)
	NextPhaseOrder(ctx context.Context, projectID string) (int, error)
}

var (
	taskTriggers  = []string{"crear tarea", "crea una tarea", "nueva tarea", "añade una tarea", "añadir tarea", "agregar tarea", "agrega una tarea"}
	phaseTriggers = []string{"crear fase", "crea una fase", "nueva fase", "añadir fase", "agregar fase", "agrega una fase"}
)

const defaultPriority = "medium"

// taskIntent carries the extracted parameters; missing lists the required
// fields that could not be extracted.
type taskIntent struct {
	projectRef string
	title      string
	priority   string
	due        *time.Time
	missing    []string
}

// TaskPhaseProcessor creates tasks and phases in the planner. Task and
// phase triggers are checked independently: both may fire on one message.
type TaskPhaseProcessor struct {
	svc     ProjectService
	actorID string
	now     func() time.Time
}

func NewTaskPhaseProcessor(svc ProjectService, actorID string, clock func() time.Time) *TaskPhaseProcessor {
	if clock == nil {
		clock = time.Now
	}
	return &TaskPhaseProcessor{svc: svc, actorID: actorID, now: clock}
}

func (p *TaskPhaseProcessor) Name() string { return "tareas" }

// classifyTask is pure extraction; it never touches the planner.
func classifyTask(msg string, now time.Time) (taskIntent, bool) {
	if !containsAny(msg, taskTriggers...) {
		return taskIntent{}, false
	}

	intent := taskIntent{
		projectRef: projectReference(msg),
		title:      extractTitle(msg),
		priority:   inferPriority(msg),
	}
	if due, ok := resolveDate(msg, now); ok {
		intent.due = &due
	}

	if intent.projectRef == "" {
		intent.missing = append(intent.missing, "proyecto")
	}
	if intent.title == "" {
		intent.missing = append(intent.missing, "título")
	}
	return intent, true
}

// extractTitle takes the quoted substring if present, else everything after
// the first colon.
func extractTitle(msg string) string {
	if t := quotedText(msg); t != "" {
		return t
	}
	if _, after, found := strings.Cut(msg, ":"); found {
		return strings.TrimSpace(after)
	}
	return ""
}

func inferPriority(msg string) string {
	switch {
	case containsAny(msg, "urgente", "crítico", "critico"):
		return "urgent"
	case containsAny(msg, "alta prioridad", "prioridad alta", "importante"):
		return "high"
	case containsAny(msg, "baja prioridad", "prioridad baja", "cuando puedas", "sin prisa"):
		return "low"
	default:
		return defaultPriority
	}
}

func (p *TaskPhaseProcessor) Process(ctx context.Context, userMessage, _ string) (string, error) {
	var out strings.Builder

	if intent, ok := classifyTask(userMessage, p.now()); ok {
		out.WriteString(p.handleTask(ctx, intent))
	}
	if name, ref, ok := classifyPhase(userMessage); ok {
		out.WriteString(p.handlePhase(ctx, name, ref))
	}

	return out.String(), nil
}

func (p *TaskPhaseProcessor) handleTask(ctx context.Context, intent taskIntent) string {
	if len(intent.missing) > 0 {
		return fmt.Sprintf("\n\n📝 Para crear la tarea me falta: %s. "+
			"Indícame el proyecto y el título, por ejemplo: crear tarea para el proyecto Atlas: \"Configurar CI\".",
			strings.Join(intent.missing, ", "))
	}

	proj, block := p.resolveProject(ctx, intent.projectRef)
	if block != "" {
		return block
	}

	task, err := p.svc.CreateTask(ctx, proj.ID, project.TaskFields{
		Title:    intent.title,
		Priority: intent.priority,
		DueDate:  intent.due,
	}, p.actorID)
	if err != nil {
		return fmt.Sprintf("\n\n⚠️ No pude crear la tarea en *%s*: %v", proj.Name, err)
	}

	due := "sin fecha límite"
	if intent.due != nil {
		due = "vence " + intent.due.Format("02/01/2006")
	}
	return fmt.Sprintf("\n\n✅ Tarea creada en *%s*: *%s* (prioridad %s, %s, id %s).",
		proj.Name, task.Title, task.Priority, due, task.ID)
}

// classifyPhase extracts the phase name and project reference.
func classifyPhase(msg string) (name, projectRef string, ok bool) {
	if !containsAny(msg, phaseTriggers...) {
		return "", "", false
	}
	return extractTitle(msg), projectReference(msg), true
}

func (p *TaskPhaseProcessor) handlePhase(ctx context.Context, name, projectRef string) string {
	var missing []string
	if projectRef == "" {
		missing = append(missing, "proyecto")
	}
	if name == "" {
		missing = append(missing, "nombre de la fase")
	}
	if len(missing) > 0 {
		return fmt.Sprintf("\n\n📝 Para crear la fase me falta: %s.", strings.Join(missing, ", "))
	}

	proj, block := p.resolveProject(ctx, projectRef)
	if block != "" {
		return block
	}

	order, err := p.svc.NextPhaseOrder(ctx, proj.ID)
	if err != nil {
		return fmt.Sprintf("\n\n⚠️ No pude determinar el orden de la fase en *%s*: %v", proj.Name, err)
	}

	phase, err := p.svc.CreatePhase(ctx, proj.ID, project.PhaseFields{Name: name, Order: order}, p.actorID)
	if err != nil {
		return fmt.Sprintf("\n\n⚠️ No pude crear la fase en *%s*: %v", proj.Name, err)
	}

	return fmt.Sprintf("\n\n✅ Fase creada en *%s*: *%s* (posición %d, id %s).",
		proj.Name, phase.Name, phase.Order, phase.ID)
}

// resolveProject looks the reference up in the planner; first match wins.
// When nothing matches, the returned block lists the known project names.
func (p *TaskPhaseProcessor) resolveProject(ctx context.Context, ref string) (*project.Project, string) {
	matches, err := p.svc.Search(ctx, ref)
	if err != nil {
		return nil, fmt.Sprintf("\n\n⚠️ No pude consultar los proyectos: %v", err)
	}
	if len(matches) > 0 {
		return &matches[0], ""
	}

	all, err := p.svc.Search(ctx, "")
	if err != nil || len(all) == 0 {
		return nil, fmt.Sprintf("\n\n❓ No encontré ningún proyecto llamado *%s*.", ref)
	}
	names := make([]string, len(all))
	for i, pr := range all {
		names[i] = pr.Name
	}
	return nil, fmt.Sprintf("\n\n❓ No encontré ningún proyecto llamado *%s*. Proyectos conocidos: %s.",
		ref, strings.Join(names, ", "))
}
