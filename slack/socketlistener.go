package slack

import (
	"log"
	"os"

	slacklib "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// SocketListener connects to Slack via Socket Mode (outbound WebSocket) and
// dispatches mentions and messages to the command router. No inbound URL
// configuration is needed — the app connects to Slack, not the other way
// around. It is an alternative transport to the /events webhook.
type SocketListener struct {
	smClient  *socketmode.Client
	botUserID string
	onMessage MessageHandler
}

// NewSocketListener creates a Socket Mode listener.
// appToken is the Slack app-level token (xapp-...) with connections:write
// scope, botToken the normal bot token (xoxb-...). botUserID is the bot's own
// Slack user ID, used to ignore self-messages.
// Set env SOCKET_MODE_DEBUG=1 to enable verbose wire-level logging.
func NewSocketListener(appToken, botToken, botUserID string, onMessage MessageHandler) *SocketListener {
	debug := os.Getenv("SOCKET_MODE_DEBUG") == "1"

	apiOpts := []slacklib.Option{slacklib.OptionAppLevelToken(appToken)}
	if debug {
		apiOpts = append(apiOpts, slacklib.OptionDebug(true))
	}
	api := slacklib.New(botToken, apiOpts...)

	smOpts := []socketmode.Option{}
	if debug {
		smOpts = append(smOpts, socketmode.OptionDebug(true))
	}

	return &SocketListener{
		smClient:  socketmode.New(api, smOpts...),
		botUserID: botUserID,
		onMessage: onMessage,
	}
}

// Start connects to Slack and listens for events in a blocking loop.
// Run this in a goroutine. It reconnects automatically on disconnection.
func (sl *SocketListener) Start() {
	go sl.handleEvents()

	log.Printf("[socket-mode] connecting to Slack...")
	if err := sl.smClient.Run(); err != nil {
		log.Printf("[socket-mode] fatal: %v", err)
	}
}

func (sl *SocketListener) handleEvents() {
	for evt := range sl.smClient.Events {
		switch evt.Type {
		case socketmode.EventTypeConnected:
			log.Printf("[socket-mode] connected")

		case socketmode.EventTypeConnectionError:
			log.Printf("[socket-mode] connection error, will retry...")

		case socketmode.EventTypeEventsAPI:
			apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				log.Printf("[socket-mode] WARNING: EventsAPI event data is %T, skipping", evt.Data)
			}
			// Acknowledge first so Slack doesn't retry the delivery.
			if evt.Request != nil {
				sl.smClient.Ack(*evt.Request)
			}
			if ok {
				sl.handleEventsAPI(apiEvent)
			}

		default:
			// Acknowledge unknown event types to avoid retries.
			if evt.Request != nil {
				sl.smClient.Ack(*evt.Request)
			}
		}
	}
	log.Printf("[socket-mode] event channel closed — listener stopped")
}

func (sl *SocketListener) handleEventsAPI(event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		if ev.User == sl.botUserID {
			return
		}
		go sl.onMessage(ev.Channel, ev.User, ev.Text, ev.ThreadTimeStamp)

	case *slackevents.MessageEvent:
		if ev.SubType != "" || ev.BotID != "" || ev.User == sl.botUserID {
			return
		}
		// Mentions arrive as app_mention events too; see the webhook handler.
		if startsWithMention(ev.Text) {
			return
		}
		go sl.onMessage(ev.Channel, ev.User, ev.Text, ev.ThreadTimeStamp)
	}
}
