package slack

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"regexp"

	slacklib "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// MessageHandler is called for each inbound chat message the bot should
// answer. threadTS is the thread timestamp when the message is in a thread,
// empty otherwise.
type MessageHandler func(channelID, userID, text, threadTS string)

// EventsHandler serves the Slack Events API webhook (POST /events). It echoes
// the url_verification challenge verbatim during the handshake and dispatches
// message and app_mention events to the command router.
type EventsHandler struct {
	verificationToken string
	onMessage         MessageHandler
}

func NewEventsHandler(verificationToken string, onMessage MessageHandler) *EventsHandler {
	return &EventsHandler{
		verificationToken: verificationToken,
		onMessage:         onMessage,
	}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	opt := slackevents.OptionNoVerifyToken()
	if h.verificationToken != "" {
		opt = slackevents.OptionVerifyToken(&slackevents.TokenComparator{VerificationToken: h.verificationToken})
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), opt)
	if err != nil {
		log.Printf("[events] failed to parse event: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge.Challenge))

	case slackevents.CallbackEvent:
		// Acknowledge immediately to prevent Slack retries; the reply is
		// produced asynchronously.
		w.WriteHeader(http.StatusOK)
		h.dispatch(event.InnerEvent)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (h *EventsHandler) dispatch(inner slackevents.EventsAPIInnerEvent) {
	switch ev := inner.Data.(type) {
	case *slackevents.AppMentionEvent:
		log.Printf("[events] mention: channel=%s user=%s", ev.Channel, ev.User)
		go h.onMessage(ev.Channel, ev.User, ev.Text, ev.ThreadTimeStamp)

	case *slackevents.MessageEvent:
		// Only plain user messages — no subtypes (message_changed,
		// bot_message, ...) and nothing authored by a bot.
		if ev.SubType != "" || ev.BotID != "" {
			return
		}
		// Mentions are also delivered as app_mention events when both
		// subscriptions are enabled; answering here too would reply twice.
		if startsWithMention(ev.Text) {
			return
		}
		log.Printf("[events] message: channel=%s user=%s", ev.Channel, ev.User)
		go h.onMessage(ev.Channel, ev.User, ev.Text, ev.ThreadTimeStamp)

	default:
		log.Printf("[events] unhandled inner event type %T", inner.Data)
	}
}

var mentionStart = regexp.MustCompile(`^\s*<@[^>]+>`)

func startsWithMention(text string) bool {
	return mentionStart.MatchString(text)
}

// channelModeReply is returned by the legacy /jiraldo slash command now that
// the bot answers mentions in the channel instead.
const channelModeReply = "👋 O Jiraldo agora responde direto no canal! Me mencione: " +
	"`@Jiraldo meus tickets`, `@Jiraldo relatório da equipe` ou `@Jiraldo prazos`."

// SlashHandler serves the legacy POST /jiraldo slash command. In channel mode
// it only verifies the request and points the user at mentions.
type SlashHandler struct {
	signingSecret string
}

func NewSlashHandler(signingSecret string) *SlashHandler {
	return &SlashHandler{signingSecret: signingSecret}
}

func (h *SlashHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.signingSecret != "" {
		verifier, err := slacklib.NewSecretsVerifier(r.Header, h.signingSecret)
		if err != nil {
			log.Printf("[slash] failed to create secrets verifier: %v", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		r.Body = io.NopCloser(io.TeeReader(r.Body, &verifier))

		if _, err := slacklib.SlashCommandParse(r); err != nil {
			log.Printf("[slash] failed to parse slash command: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if err := verifier.Ensure(); err != nil {
			log.Printf("[slash] signature verification failed: %v", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"response_type": "ephemeral",
		"text":          channelModeReply,
	})
}
