package commands

import (
	"log"
	"regexp"
	"strings"
	"time"
)

// Router matches free-text requests against an ordered list of keyword
// intents and produces the formatted reply. First match wins — there is no
// scoring and no ambiguity resolution.
type Router struct {
	slackClient SlackClient
	jiraClient  JiraClient
	now         func() time.Time
}

func NewRouter(slackClient SlackClient, jiraClient JiraClient) *Router {
	return &Router{
		slackClient: slackClient,
		jiraClient:  jiraClient,
		now:         time.Now,
	}
}

// Intent keyword sets, in priority order.
var (
	ticketKeywords   = []string{"meus tickets", "tickets", "minhas tarefas"}
	teamKeywords     = []string{"relatório", "relatorio", "equipe", "time", "team"}
	deadlineKeywords = []string{"deadline", "prazo", "vencimento", "entrega"}
	helpKeywords     = []string{"help", "ajuda", "comandos"}
)

const identityErrorReply = "😕 Desculpe, não consegui identificar seu usuário no Slack. " +
	"Verifique se seu e-mail está visível no perfil."

const helpReply = `🤖 *Comandos do Jiraldo:*
• ` + "`meus tickets`" + ` - Seus tickets em aberto
• ` + "`relatório da equipe`" + ` - Visão geral dos tickets do time
• ` + "`prazos`" + ` - Entregas dos próximos 7 dias
• ` + "`ajuda`" + ` - Esta mensagem

*Notificações automáticas:*
• Você será notificado quando receber novos tickets!`

const fallbackReply = "🤔 Não entendi o que você quer. Tente `meus tickets`, " +
	"`relatório da equipe`, `prazos` ou `ajuda`."

// Handle resolves the speaker, matches the request against the intent list
// and returns the reply text. The transport layer posts it back to the
// channel. An unresolvable speaker short-circuits before any intent matching.
func (r *Router) Handle(channelID, userID, text string) string {
	user, err := r.slackClient.ResolveUserByID(userID)
	if err != nil {
		log.Printf("[commands] could not resolve user %s in channel %s: %v", userID, channelID, err)
		return identityErrorReply
	}
	email := user.Profile.Email
	if email == "" {
		log.Printf("[commands] user %s has no email in profile", userID)
		return identityErrorReply
	}

	cleaned := normalize(text)
	log.Printf("[commands] request: user=%s channel=%s text=%q", userID, channelID, cleaned)

	switch {
	case containsAny(cleaned, ticketKeywords):
		return r.personalTickets(email)
	case containsAny(cleaned, teamKeywords):
		return r.teamReport()
	case containsAny(cleaned, deadlineKeywords):
		return r.upcomingDeadlines()
	case containsAny(cleaned, helpKeywords):
		return helpReply
	default:
		return fallbackReply
	}
}

// mentionPrefix matches one leading mention token, either a Slack-encoded
// mention ("<@U123ABC>") or a bare "@Jiraldo".
var mentionPrefix = regexp.MustCompile(`^(<@[^>]+>|@\S+)\s*`)

func normalize(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	return strings.TrimSpace(mentionPrefix.ReplaceAllString(lower, ""))
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
