// Package ambient sends readings to the Ambient IoT data service (https://ambidata.io).
package ambient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"saunamon/pkg/measurement"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

// DefaultURL is the Ambient API endpoint.
const DefaultURL = "http://ambidata.io"

const name = "ambient"

// Handler posts readings to one Ambient channel.
type Handler struct {
	url      string
	channel  string
	writeKey string
	timeout  time.Duration
}

// payload maps the reading to the channel's data fields:
//  d1 ... DS18B20 temperature
//  d2 ... SHT30 temperature
//  d3 ... SHT30 humidity
type payload struct {
	WriteKey string   `json:"writeKey"`
	D1       *float64 `json:"d1,omitempty"`
	D2       *float64 `json:"d2,omitempty"`
	D3       *float64 `json:"d3,omitempty"`
}

// New returns a handler for channel. An empty url uses DefaultURL.
func New(url, channel, writeKey string, timeout time.Duration) *Handler {
	if url == "" {
		url = DefaultURL
	}
	return &Handler{
		url:      strings.TrimSuffix(url, "/"),
		channel:  channel,
		writeKey: writeKey,
		timeout:  timeout,
	}
}

// Name returns the sink name.
func (h *Handler) Name() string {
	return name
}

// Send posts the reading. Missing values are left out of the request.
func (h *Handler) Send(ctx context.Context, r measurement.Reading) error {
	a := fiber.Post(fmt.Sprintf("%s/api/v2/channels/%s/data", h.url, h.channel))
	a.JSON(payload{
		WriteKey: h.writeKey,
		D1:       r.Water,
		D2:       r.Air,
		D3:       r.Humidity,
	})

	timeout := h.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout > 0 {
		a.Timeout(timeout)
	}

	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return errors.Wrap(err, "ambient request")
	}

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return errors.Wrap(errs[0], "ambient post")
	}
	if code < 200 || code > 299 {
		return errors.Errorf("ambient post: status %d: %s", code, strings.TrimSpace(string(body)))
	}

	return nil
}
