package commands

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norahq/nora/internal/project"
)

type fakeProjects struct {
	projects      []project.Project
	nextOrder     int
	createdTasks  []project.TaskFields
	createdPhases []project.PhaseFields
}

func (f *fakeProjects) Search(_ context.Context, frag string) ([]project.Project, error) {
	if frag == "" {
		return f.projects, nil
	}
	var out []project.Project
	for _, p := range f.projects {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(frag)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjects) CreateTask(_ context.Context, projectID string, fields project.TaskFields, _ string) (*project.Task, error) {
	f.createdTasks = append(f.createdTasks, fields)
	return &project.Task{
		ID:        "task-7",
		ProjectID: projectID,
		Title:     fields.Title,
		Priority:  fields.Priority,
		DueDate:   fields.DueDate,
	}, nil
}

func (f *fakeProjects) CreatePhase(_ context.Context, projectID string, fields project.PhaseFields, _ string) (*project.Phase, error) {
	f.createdPhases = append(f.createdPhases, fields)
	return &project.Phase{ID: "phase-3", ProjectID: projectID, Name: fields.Name, Order: fields.Order}, nil
}

func (f *fakeProjects) NextPhaseOrder(context.Context, string) (int, error) {
	return f.nextOrder, nil
}

func newTaskProcessor(f *fakeProjects) *TaskPhaseProcessor {
	return NewTaskPhaseProcessor(f, "nora", func() time.Time { return wednesday })
}

func TestTaskCreationWithDefaults(t *testing.T) {
	t.Parallel()

	f := &fakeProjects{projects: []project.Project{{ID: "p1", Name: "Atlas"}}}
	p := newTaskProcessor(f)

	suffix, err := p.Process(context.Background(), "crear tarea para el proyecto Atlas: Configurar CI", "respuesta")
	require.NoError(t, err)

	require.Len(t, f.createdTasks, 1)
	created := f.createdTasks[0]
	assert.Equal(t, "Configurar CI", created.Title)
	assert.Equal(t, "medium", created.Priority)
	assert.Nil(t, created.DueDate)

	assert.Contains(t, suffix, "Tarea creada")
	assert.Contains(t, suffix, "task-7")
	assert.Contains(t, suffix, "Configurar CI")
	assert.Contains(t, suffix, "prioridad medium")
	assert.Contains(t, suffix, "sin fecha límite")
}

func TestTaskPriorityAndDueDateExtraction(t *testing.T) {
	t.Parallel()

	f := &fakeProjects{projects: []project.Project{{ID: "p1", Name: "Atlas"}}}
	p := newTaskProcessor(f)

	_, err := p.Process(context.Background(), "crear tarea urgente para el proyecto Atlas: Desplegar a producción mañana", "respuesta")
	require.NoError(t, err)

	require.Len(t, f.createdTasks, 1)
	created := f.createdTasks[0]
	assert.Equal(t, "urgent", created.Priority)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), *created.DueDate)
}

func TestTaskMissingFieldsAppendsGuidance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     string
		missing string
	}{
		{"no title", "crear tarea para el proyecto Atlas", "título"},
		{"no project", "crear tarea: Hacer la demo", "proyecto"},
		{"nothing", "crear tarea", "proyecto, título"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := &fakeProjects{projects: []project.Project{{ID: "p1", Name: "Atlas"}}}
			p := newTaskProcessor(f)

			suffix, err := p.Process(context.Background(), tc.msg, "respuesta")
			require.NoError(t, err)
			assert.Contains(t, suffix, "me falta: "+tc.missing)
			assert.Empty(t, f.createdTasks)
		})
	}
}

func TestTaskUnknownProjectListsKnownNames(t *testing.T) {
	t.Parallel()

	f := &fakeProjects{projects: []project.Project{{ID: "p1", Name: "Atlas"}, {ID: "p2", Name: "Orion"}}}
	p := newTaskProcessor(f)

	suffix, err := p.Process(context.Background(), "crear tarea para el proyecto Zeus: Algo", "respuesta")
	require.NoError(t, err)
	assert.Contains(t, suffix, "No encontré ningún proyecto llamado *Zeus*")
	assert.Contains(t, suffix, "Atlas")
	assert.Contains(t, suffix, "Orion")
	assert.Empty(t, f.createdTasks)
}

func TestPhaseCreationUsesNextOrder(t *testing.T) {
	t.Parallel()

	f := &fakeProjects{projects: []project.Project{{ID: "p1", Name: "Atlas"}}, nextOrder: 4}
	p := newTaskProcessor(f)

	suffix, err := p.Process(context.Background(), "crear fase para el proyecto Atlas: Diseño", "respuesta")
	require.NoError(t, err)

	require.Len(t, f.createdPhases, 1)
	assert.Equal(t, "Diseño", f.createdPhases[0].Name)
	assert.Equal(t, 4, f.createdPhases[0].Order)
	assert.Contains(t, suffix, "Fase creada")
	assert.Contains(t, suffix, "posición 4")
	assert.Contains(t, suffix, "phase-3")
}

func TestTaskAndPhaseTriggersFireIndependently(t *testing.T) {
	t.Parallel()

	f := &fakeProjects{projects: []project.Project{{ID: "p1", Name: "Atlas"}}, nextOrder: 1}
	p := newTaskProcessor(f)

	suffix, err := p.Process(context.Background(), `crear tarea y crear fase para el proyecto Atlas: "Entrega final"`, "respuesta")
	require.NoError(t, err)

	assert.Len(t, f.createdTasks, 1)
	assert.Len(t, f.createdPhases, 1)
	assert.Contains(t, suffix, "Tarea creada")
	assert.Contains(t, suffix, "Fase creada")
}

func TestTaskNoTriggerNoOutput(t *testing.T) {
	t.Parallel()

	f := &fakeProjects{projects: []project.Project{{ID: "p1", Name: "Atlas"}}}
	p := newTaskProcessor(f)

	suffix, err := p.Process(context.Background(), "cómo va el proyecto Atlas", "respuesta")
	require.NoError(t, err)
	assert.Empty(t, suffix)
}
