package app

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// HandleHealth returns data about the health of myself and the sensors.
// output example:
//  {"NumGoroutines":11,"NumCPU":4,"HeapAllocatedMB":3,"SysMemoryMB":12,"Version":"1.0.01+20241001",
//   "ProgLang":"go1.18","HostName":"sauna","Time":"...","LastReading":"...","FailedTicks":0,"Sinks":["ambient","slack"]}
func (app *App) HandleHealth() fiber.Handler {
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	host, _ := os.Hostname()

	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request health")

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		sinks := make([]string, 0, len(app.sinks))
		for _, s := range app.sinks {
			sinks = append(sinks, s.Name())
		}

		var last string
		if t := app.Last().Time; !t.IsZero() {
			last = t.Format(time.RFC3339)
		}

		healthData := struct {
			NumGoroutines   int
			NumCPU          int
			HeapAllocatedMB uint64
			SysMemoryMB     uint64
			Version         string
			ProgLang        string
			HostName        string
			Time            string
			LastReading     string
			FailedTicks     int
			Sinks           []string
		}{
			NumGoroutines:   runtime.NumGoroutine(),
			NumCPU:          runtime.NumCPU(),
			HeapAllocatedMB: bToMb(m.Alloc),
			SysMemoryMB:     bToMb(m.Sys),
			ProgLang:        runtime.Version(),
			Version:         VERSION,
			HostName:        host,
			Time:            time.Now().Format(time.RFC3339),
			LastReading:     last,
			FailedTicks:     app.failedTicks(),
			Sinks:           sinks,
		}
		ctx.Status(http.StatusOK)
		return ctx.JSON(healthData)
	}
}
