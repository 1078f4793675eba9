package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/norahq/nora/internal/calendar"
)

// CalendarService is the calendar collaborator contract.
type CalendarService interface {
	IsAuthenticated(ctx context.Context) bool
	CreateMeeting(ctx context.Context, m calendar.Meeting) (*calendar.Event, error)
}

var calendarTriggers = []string{"reunión", "reunion", "agendar", "agéndame", "agendame", "cita con", "junta", "meeting"}

// Keyword-to-title fallback used when the message carries no quoted title.
var meetingTitles = []struct{ keyword, title string }{
	{"seguimiento", "Reunión de seguimiento"},
	{"planificación", "Reunión de planificación"},
	{"planificacion", "Reunión de planificación"},
	{"revisión", "Reunión de revisión"},
	{"revision", "Reunión de revisión"},
	{"cliente", "Reunión con cliente"},
	{"equipo", "Reunión de equipo"},
}

const (
	defaultMeetingTitle = "Reunión de trabajo"
	defaultMeetingHour  = 17
	meetingDuration     = time.Hour
)

type calendarIntent struct {
	title string
	start time.Time
}

// CalendarProcessor schedules a meeting when the user's message asks for
// one. Without calendar access it only appends a connect-calendar guidance
// block.
type CalendarProcessor struct {
	svc CalendarService
	now func() time.Time
}

func NewCalendarProcessor(svc CalendarService, clock func() time.Time) *CalendarProcessor {
	if clock == nil {
		clock = time.Now
	}
	return &CalendarProcessor{svc: svc, now: clock}
}

func (p *CalendarProcessor) Name() string { return "calendario" }

// classifyCalendar is pure: same message and clock, same intent.
func classifyCalendar(msg string, now time.Time) (calendarIntent, bool) {
	if !containsAny(msg, calendarTriggers...) {
		return calendarIntent{}, false
	}

	title := quotedText(msg)
	if title == "" {
		for _, kt := range meetingTitles {
			if containsAny(msg, kt.keyword) {
				title = kt.title
				break
			}
		}
	}
	if title == "" {
		title = defaultMeetingTitle
	}

	day, ok := resolveDate(msg, now)
	if !ok {
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}

	hour, minute, ok := resolveClock(msg)
	if !ok {
		hour, minute = defaultMeetingHour, 0
	}

	return calendarIntent{
		title: title,
		start: time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()),
	}, true
}

func (p *CalendarProcessor) Process(ctx context.Context, userMessage, _ string) (string, error) {
	intent, ok := classifyCalendar(userMessage, p.now())
	if !ok {
		return "", nil
	}

	if !p.svc.IsAuthenticated(ctx) {
		return "\n\n📅 Para agendar reuniones necesito acceso a tu calendario. " +
			"Conéctalo desde los ajustes y vuelve a pedírmelo.", nil
	}

	end := intent.start.Add(meetingDuration)
	event, err := p.svc.CreateMeeting(ctx, calendar.Meeting{
		Title: intent.title,
		Start: intent.start,
		End:   end,
	})
	if err != nil {
		return fmt.Sprintf("\n\n⚠️ No pude crear la reunión en el calendario: %v", err), nil
	}

	return fmt.Sprintf("\n\n✅ Reunión agendada: *%s* el %s de %s a %s (id %s).",
		intent.title,
		intent.start.Format("02/01/2006"),
		intent.start.Format("15:04"),
		end.Format("15:04"),
		event.ID,
	), nil
}
