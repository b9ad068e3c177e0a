package webhook

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/emersion/go-ical"

	"github.com/agendabot/agendabot/internal/gcal"
	"github.com/agendabot/agendabot/internal/schedule"
)

// User-facing messages. The chat runs in pt-BR; these strings are shown
// verbatim to the user.
const (
	msgAskPhone         = "Por favor, peça o número de telefone do usuário e salve em `phone`."
	msgProfileError     = "Erro interno ao acessar seus dados. Tente novamente em instantes."
	msgPhoneNotFound    = "Telefone não encontrado na planilha."
	msgPhoneBeforeName  = "Antes de editar o nome, informe seu telefone."
	msgPhoneBeforeEmail = "Antes de editar o e-mail, informe seu telefone."
	msgAskNewName       = "Qual é o novo nome?"
	msgAskNewEmail      = "Qual é o novo e-mail?"
	msgAskInstruction   = "Me diga o que deseja no calendário (ex.: 'consulta na sexta das 9h às 10h')."
	msgEditorChoices    = "Diga se quer alterar **nome**, **email** ou **criar evento**."
	msgEditorError      = "Ops! Tive um erro ao processar sua solicitação."
	msgAgendaError      = "Não consegui acessar o calendário padrão. Verifique o CALENDAR_ID_DEFAULT e as permissões da service account."
	fmtNameUpdated      = "✅ Nome atualizado para **%s**."
	fmtEmailUpdated     = "✅ E-mail atualizado para **%s**."
	fmtEventCreated     = "✅ Evento criado!\n\n**Resumo:** %s\n**Obs.:** %s"
	fmtProfileNotFound  = "%s\nNão encontrei **%s** na planilha."
)

// handleProfile looks a user up by phone and renders the row as
// markdown for the chat agent.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)

	rawPhone := pickPhone(body, r)
	phone := NormalizePhone(rawPhone)
	if phone == "" {
		s.writeReply(w, http.StatusOK, NewReply(msgAskPhone, nil))
		return
	}

	row, err := s.sheets.FindUserByPhone(r.Context(), s.cfg.SpreadsheetID, s.cfg.SheetName, phone)
	if err != nil {
		s.log.WithError(err).Error("profile lookup failed")
		s.writeReply(w, http.StatusInternalServerError, NewReply(msgProfileError, nil))
		return
	}
	if row == nil {
		msg := fmt.Sprintf(fmtProfileNotFound, profileHeading, rawPhone)
		s.writeReply(w, http.StatusOK, NewReply(msg, nil))
		return
	}

	markdown := profileMarkdown(row)
	s.writeReply(w, http.StatusOK, NewReply(markdown, map[string]string{
		"email": row.Get("email"),
		"name":  row.Get("name"),
		"phone": rawPhone,
	}))
}

// handleEditor dispatches on the requested action: update a profile
// column or create a calendar event from a free-text instruction.
func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)

	acao := strings.ToLower(pickVar("acao", body, r))
	switch acao {
	case "nome":
		s.updateColumn(w, r, body, "name", pickVar("novo_nome", body, r),
			msgPhoneBeforeName, msgAskNewName, fmtNameUpdated)
	case "email":
		s.updateColumn(w, r, body, "email", pickVar("novo_email", body, r),
			msgPhoneBeforeEmail, msgAskNewEmail, fmtEmailUpdated)
	case "evento", "agenda", "calendar":
		s.createEvent(w, r, body)
	default:
		s.writeReply(w, http.StatusOK, NewReply(msgEditorChoices, nil))
	}
}

// updateColumn updates one spreadsheet column for the row keyed by the
// caller's phone number. Missing inputs produce user-facing prompts,
// never errors.
func (s *Server) updateColumn(w http.ResponseWriter, r *http.Request, body map[string]interface{}, column, newValue, phonePrompt, valuePrompt, confirmFormat string) {
	phone := NormalizePhone(pickVar("phone", body, r))
	if phone == "" {
		s.writeReply(w, http.StatusOK, NewReply(phonePrompt, nil))
		return
	}
	if newValue == "" {
		s.writeReply(w, http.StatusOK, NewReply(valuePrompt, nil))
		return
	}

	row, err := s.sheets.FindUserByPhone(r.Context(), s.cfg.SpreadsheetID, s.cfg.SheetName, phone)
	if err != nil {
		s.log.WithError(err).Error("row lookup before update failed")
		s.writeReply(w, http.StatusInternalServerError, NewReply(msgEditorError, nil))
		return
	}
	if row == nil {
		s.writeReply(w, http.StatusOK, NewReply(msgPhoneNotFound, nil))
		return
	}

	if _, err := s.sheets.UpdateUserByPhone(r.Context(), s.cfg.SpreadsheetID, s.cfg.SheetName, phone, map[string]string{column: newValue}); err != nil {
		s.log.WithError(err).WithField("column", column).Error("row update failed")
		s.writeReply(w, http.StatusInternalServerError, NewReply(msgEditorError, nil))
		return
	}

	msg := fmt.Sprintf(confirmFormat, newValue)
	s.writeReply(w, http.StatusOK, NewReply(msg, map[string]string{column: newValue}))
}

// createEvent parses the scheduling instruction and inserts the event
// into the configured calendar.
func (s *Server) createEvent(w http.ResponseWriter, r *http.Request, body map[string]interface{}) {
	instruction := pickVar("instrucao_agenda", body, r)
	if instruction == "" {
		s.writeReply(w, http.StatusOK, NewReply(msgAskInstruction, nil))
		return
	}

	res := schedule.Parse(instruction, s.cfg.Timezone, s.now())

	description := instruction
	if emailRef := pickVar("email", body, r); emailRef != "" {
		description += fmt.Sprintf("\n(Referência: %s)", emailRef)
	}

	event := gcal.EventFromResult(res, description, s.cfg.Timezone)
	if _, err := s.calendar.InsertEvent(r.Context(), s.cfg.CalendarID, event); err != nil {
		s.log.WithError(err).Error("event insert failed")
		s.writeReply(w, http.StatusInternalServerError, NewReply(msgEditorError, nil))
		return
	}

	msg := fmt.Sprintf(fmtEventCreated, event.Summary, instruction)
	s.writeReply(w, http.StatusOK, NewReply(msg, nil))
}

// handleAgenda renders the next 7 days of the default calendar as
// markdown.
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	now := s.now()

	events, err := s.calendar.ListUpcomingEvents(r.Context(), s.cfg.CalendarID, now, now.AddDate(0, 0, 7))
	if err != nil {
		s.log.WithError(err).Error("agenda listing failed")
		s.writeReply(w, http.StatusInternalServerError, NewReply(msgAgendaError, nil))
		return
	}

	s.writeReply(w, http.StatusOK, NewReply(agendaMarkdown(events, s.loc), nil))
}

// handleAgendaICS serves the same 7-day window as an iCalendar feed.
func (s *Server) handleAgendaICS(w http.ResponseWriter, r *http.Request) {
	now := s.now()

	events, err := s.calendar.ListUpcomingEvents(r.Context(), s.cfg.CalendarID, now, now.AddDate(0, 0, 7))
	if err != nil {
		s.log.WithError(err).Error("agenda listing failed")
		http.Error(w, msgAgendaError, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if err := ical.NewEncoder(w).Encode(agendaCalendar(events, now)); err != nil {
		s.log.WithError(err).Error("failed to encode agenda feed")
	}
}
