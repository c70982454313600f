package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"saunamon/pkg/measurement"

	"github.com/womat/debug"
)

// poll runs a tick right away and then on every interval until the app is closed.
// Ticks which would start while a tick is still running are dropped.
func (app *App) poll() {
	defer close(app.done)

	t := time.NewTicker(app.config.Interval)
	defer t.Stop()

	for {
		if err := app.tick(); err != nil {
			debug.ErrorLog.Printf("stopping: %v", err)
			app.stop(err)
			return
		}

		select {
		case <-app.ctx.Done():
			return
		case <-t.C:
		}
	}
}

// tick reads all sensors and delivers the reading to the sinks.
// Reads are finished before delivery starts. A tick without any value is not delivered;
// tick returns an error once MaxFailures consecutive ticks failed.
func (app *App) tick() error {
	r := app.read()
	failures := app.setLast(r)

	if err := app.led.Set(!r.Empty()); err != nil {
		debug.ErrorLog.Printf("status led: %v", err)
	}

	if r.Empty() {
		debug.ErrorLog.Printf("no sensor values, %d consecutive failed ticks", failures)

		if max := app.config.MaxFailures; max > 0 && failures >= max {
			return fmt.Errorf("%d consecutive ticks without sensor values", failures)
		}
		return nil
	}

	debug.InfoLog.Print(r.Status())
	app.deliver(r)

	return nil
}

// read reads the sensors one after another. Failed reads are logged and left empty.
func (app *App) read() measurement.Reading {
	r := measurement.Reading{Time: time.Now()}

	if v, err := app.water.ReadTemperature(); err != nil {
		debug.ErrorLog.Printf("ds18b20 temperature: %v", err)
	} else {
		r.Water = measurement.Value(v)
	}

	if v, err := app.air.ReadTemperature(); err != nil {
		debug.ErrorLog.Printf("sht30 temperature: %v", err)
	} else {
		r.Air = measurement.Value(v)
	}

	if v, err := app.air.ReadHumidity(); err != nil {
		debug.ErrorLog.Printf("sht30 humidity: %v", err)
	} else {
		r.Humidity = measurement.Value(v)
	}

	debug.DebugLog.Printf("reading: %s", r.Status())
	return r
}

// deliver sends r to all sinks at once and waits until every sink has finished.
// Sink errors are logged, they do not depend on each other.
func (app *App) deliver(r measurement.Reading) {
	var wg sync.WaitGroup

	for _, s := range app.sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(app.ctx, app.config.Timeout)
			defer cancel()

			if err := s.Send(ctx, r); err != nil {
				debug.ErrorLog.Printf("send to %s: %v", s.Name(), err)
				return
			}
			debug.TraceLog.Printf("sent to %s", s.Name())
		}(s)
	}

	wg.Wait()
}

// setLast stores r and returns the updated count of consecutive failed ticks.
func (app *App) setLast(r measurement.Reading) int {
	app.last.Lock()
	defer app.last.Unlock()

	app.last.reading = r
	if r.Empty() {
		app.last.failures++
	} else {
		app.last.failures = 0
	}
	return app.last.failures
}

func (app *App) failedTicks() int {
	app.last.Lock()
	defer app.last.Unlock()
	return app.last.failures
}

// Last returns the reading of the last tick.
func (app *App) Last() measurement.Reading {
	app.last.Lock()
	defer app.last.Unlock()
	return app.last.reading
}
