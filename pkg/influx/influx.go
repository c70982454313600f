// Package influx writes readings to an InfluxDB v2 bucket.
package influx

import (
	"context"
	"time"

	"saunamon/pkg/measurement"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/pkg/errors"
)

const name = "influx"

// Handler writes one point per reading.
type Handler struct {
	client      influxdb2.Client
	write       api.WriteAPIBlocking
	measurement string
	tags        map[string]string
}

// New returns a handler writing to org/bucket on host.
func New(host, token, org, bucket, measurementName string, tags map[string]string) *Handler {
	client := influxdb2.NewClient(host, token)
	return &Handler{
		client:      client,
		write:       client.WriteAPIBlocking(org, bucket),
		measurement: measurementName,
		tags:        tags,
	}
}

// Name returns the sink name.
func (h *Handler) Name() string {
	return name
}

// Send writes the present values as fields of one point.
func (h *Handler) Send(ctx context.Context, r measurement.Reading) error {
	fields := r.Fields()
	if len(fields) == 0 {
		return nil
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	p := influxdb2.NewPoint(h.measurement, h.tags, fields, ts)
	if err := h.write.WritePoint(ctx, p); err != nil {
		return errors.Wrapf(err, "influx write %s", h.measurement)
	}
	return nil
}

// Close releases the client.
func (h *Handler) Close() {
	h.client.Close()
}
