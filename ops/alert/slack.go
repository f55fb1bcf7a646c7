package alert

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/converge-ai/convergeai/store"
)

// SlackNotifier fans critical alerts out to a Slack channel.
type SlackNotifier struct {
	Client  *slack.Client
	Channel string
}

var _ Notifier = (*SlackNotifier)(nil)

// NewSlackNotifier builds a SlackNotifier posting to channel using token.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{Client: slack.New(token), Channel: channel}
}

// Notify posts a summary of a to the configured Slack channel.
func (n *SlackNotifier) Notify(ctx context.Context, a store.Alert) error {
	text := fmt.Sprintf(":rotating_light: *%s*\n%s\n_priority score: %d_", a.Title, a.Message, a.PriorityScore)
	_, _, err := n.Client.PostMessageContext(ctx, n.Channel, slack.MsgOptionText(text, false))
	return err
}
