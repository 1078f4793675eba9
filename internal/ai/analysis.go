package ai

import (
	"sort"
	"strings"
)

// MessageAnalysis is the keyword-level reading of one user message injected
// into the prompt so the model sees what the orchestrator detected.
type MessageAnalysis struct {
	Topics           []string
	Preferences      []string
	SuggestedActions []string
	KnowledgeGaps    []string
}

var topicKeywords = map[string][]string{
	"reuniones": {"reunión", "reunion", "cita", "agendar", "junta", "meeting"},
	"gestión de proyectos": {"proyecto", "tarea", "fase", "sprint", "entrega"},
	"informes": {"informe", "reporte", "resumen", "métricas", "metricas"},
	"equipo": {"equipo", "compañero", "companero", "colaborador"},
	"plazos": {"plazo", "fecha límite", "fecha limite", "vence", "deadline"},
}

var actionKeywords = map[string][]string{
	"agendar una reunión": {"reunión", "reunion", "agendar", "cita", "junta"},
	"generar un informe": {"informe", "reporte"},
	"crear una tarea": {"crear tarea", "nueva tarea", "agregar tarea", "añadir tarea", "añade una tarea"},
	"crear una fase": {"crear fase", "nueva fase", "agregar fase", "añadir fase"},
}

var preferenceKeywords = map[string][]string{
	"prefiere respuestas breves": {"en corto", "resumido", "breve", "rápido", "rapido"},
	"prefiere detalle": {"detallado", "paso a paso", "explícame", "explicame"},
	"sensible a la urgencia": {"urgente", "cuanto antes", "inmediato"},
}

// Analyze is a pure keyword classifier; identical input always yields the
// same analysis.
func Analyze(message string) MessageAnalysis {
	lower := strings.ToLower(message)

	var a MessageAnalysis
	a.Topics = matchKeywords(lower, topicKeywords)
	a.SuggestedActions = matchKeywords(lower, actionKeywords)
	a.Preferences = matchKeywords(lower, preferenceKeywords)

	for _, marker := range []string{"cómo ", "como se ", "qué es", "que es", "no sé", "no se como", "dónde", "donde está"} {
		if strings.Contains(lower, marker) {
			a.KnowledgeGaps = append(a.KnowledgeGaps, "el usuario pregunta algo que puede faltar en la base de conocimiento")
			break
		}
	}

	return a
}

func matchKeywords(lower string, table map[string][]string) []string {
	var out []string
	for label, words := range table {
		for _, w := range words {
			if strings.Contains(lower, w) {
				out = append(out, label)
				break
			}
		}
	}
	// Map iteration order is random; keep output deterministic.
	sort.Strings(out)
	return out
}
