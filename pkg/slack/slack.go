// Package slack posts the sauna status to a Slack channel.
package slack

import (
	"context"
	"fmt"

	"saunamon/pkg/measurement"

	"github.com/pkg/errors"
	slackapi "github.com/slack-go/slack"
)

const (
	name   = "slack"
	header = "RPi Sauna Monitor"
)

// Handler posts messages with a bot token.
type Handler struct {
	client  *slackapi.Client
	channel string
}

// New returns a handler posting to channel.
// apiURL overrides the Slack Web API endpoint, it must end with a slash.
func New(token, channel, apiURL string) *Handler {
	var opts []slackapi.Option
	if apiURL != "" {
		opts = append(opts, slackapi.OptionAPIURL(apiURL))
	}

	return &Handler{
		client:  slackapi.New(token, opts...),
		channel: channel,
	}
}

// Name returns the sink name.
func (h *Handler) Name() string {
	return name
}

// Send posts the status line of the reading.
func (h *Handler) Send(ctx context.Context, r measurement.Reading) error {
	status := r.Status()
	return h.post(ctx, status,
		slackapi.NewSectionBlock(slackapi.NewTextBlockObject(slackapi.MarkdownType, status, false, false), nil, nil),
	)
}

// Announce posts the startup message with a link to the dashboard.
func (h *Handler) Announce(ctx context.Context, dashboard string) error {
	text := "sauna monitor started working."
	if dashboard != "" {
		text = fmt.Sprintf("%s url: %s", text, dashboard)
	}

	return h.post(ctx, text,
		slackapi.NewHeaderBlock(slackapi.NewTextBlockObject(slackapi.PlainTextType, header, false, false)),
		slackapi.NewSectionBlock(slackapi.NewTextBlockObject(slackapi.MarkdownType, text, false, false), nil, nil),
	)
}

func (h *Handler) post(ctx context.Context, text string, blocks ...slackapi.Block) error {
	_, _, err := h.client.PostMessageContext(ctx, h.channel,
		slackapi.MsgOptionText(text, false),
		slackapi.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return errors.Wrapf(err, "slack post to %s", h.channel)
	}
	return nil
}
