package ai

import (
	"fmt"
	"strings"

	"github.com/norahq/nora/internal/dbcontext"
	"github.com/norahq/nora/internal/memory"
)

const staticInstructions = `Eres Nora, la asistente de trabajo del equipo.

REGLAS:
1. Responde SIEMPRE en español, de forma clara y directa
2. Usa solo los datos del contexto que se te proporciona — nunca inventes cifras
3. Nunca reveles claves, tokens ni datos internos del sistema
4. Formatea para chat: *negrita* para destacar, listas con • o numeradas
5. Sé concisa — mensajes cortos y accionables`

// buildContextBlock renders the single leading context block: static
// instructions, the workspace snapshot, the message analysis, and the
// relevant memories and knowledge entries. Missing collaborator data
// degrades to a placeholder line; the block is always produced.
func buildContextBlock(snapshot *dbcontext.Snapshot, analysis MessageAnalysis, rel memory.RelevantContext) string {
	var b strings.Builder
	b.WriteString(staticInstructions)

	b.WriteString("\n\nESTADO DEL ESPACIO DE TRABAJO:\n")
	if snapshot == nil {
		b.WriteString("(no disponible en este momento)\n")
	} else {
		fmt.Fprintf(&b, "- Proyectos activos: %d\n", snapshot.ActiveProjects)
		fmt.Fprintf(&b, "- Tareas abiertas: %d (vencidas: %d)\n", snapshot.OpenTasks, snapshot.OverdueTasks)
		fmt.Fprintf(&b, "- Próximas reuniones: %d\n", snapshot.UpcomingMeetings)
		fmt.Fprintf(&b, "- Miembros del equipo: %d\n", snapshot.TeamMembers)
		for _, h := range snapshot.Highlights {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	b.WriteString("\nANÁLISIS DEL MENSAJE:\n")
	writeList(&b, "Temas detectados", analysis.Topics)
	writeList(&b, "Preferencias", analysis.Preferences)
	writeList(&b, "Acciones sugeridas", analysis.SuggestedActions)
	writeList(&b, "Posibles lagunas de conocimiento", analysis.KnowledgeGaps)

	b.WriteString("\nMEMORIA DE CONVERSACIONES ANTERIORES:\n")
	if len(rel.Memories) == 0 {
		b.WriteString("(sin recuerdos relevantes)\n")
	} else {
		for _, m := range rel.Memories {
			fmt.Fprintf(&b, "- %s\n", m.Summary)
		}
	}

	b.WriteString("\nBASE DE CONOCIMIENTO:\n")
	if len(rel.Knowledge) == 0 {
		b.WriteString("(sin entradas relevantes)\n")
	} else {
		for _, k := range rel.Knowledge {
			fmt.Fprintf(&b, "- %s: %s\n", k.Title, k.Content)
		}
	}

	return b.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(b, "- %s: ninguno\n", label)
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(items, ", "))
}
