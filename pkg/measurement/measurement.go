// Package measurement holds the values collected during one poll tick.
package measurement

import (
	"fmt"
	"strings"
	"time"
)

// Reading is the result of one tick. A nil value means the read failed.
type Reading struct {
	Time time.Time `json:"time"`
	// Water is the DS18B20 temperature in °C.
	Water *float64 `json:"water,omitempty"`
	// Air is the SHT30 temperature in °C.
	Air *float64 `json:"air,omitempty"`
	// Humidity is the SHT30 relative humidity in %.
	Humidity *float64 `json:"humidity,omitempty"`
}

// Value returns a pointer to v, to fill the fields of a Reading.
func Value(v float64) *float64 {
	return &v
}

// Empty reports whether all reads of the tick failed.
func (r Reading) Empty() bool {
	return r.Water == nil && r.Air == nil && r.Humidity == nil
}

// Fields returns the present values keyed by field name.
func (r Reading) Fields() map[string]interface{} {
	f := map[string]interface{}{}
	if r.Water != nil {
		f["water"] = *r.Water
	}
	if r.Air != nil {
		f["air"] = *r.Air
	}
	if r.Humidity != nil {
		f["humidity"] = *r.Humidity
	}
	return f
}

// Status returns a human readable one line summary, e.g.
//  DS18B20: 78.50°C, SHT30: 65.20°C 12.3%
func (r Reading) Status() string {
	var b strings.Builder

	b.WriteString("DS18B20: ")
	b.WriteString(format(r.Water, "%.2f°C"))
	b.WriteString(", SHT30: ")
	b.WriteString(format(r.Air, "%.2f°C"))
	b.WriteString(" ")
	b.WriteString(format(r.Humidity, "%.1f%%"))

	return b.String()
}

func format(v *float64, layout string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(layout, *v)
}
