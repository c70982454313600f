package app

import (
	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  An empty webserver url disables the web server.
//  See app.Run()
func (app *App) runWebServer() {
	if app.urlParsed == nil || app.urlParsed.Host == "" {
		return
	}

	if err := app.web.Listen(app.urlParsed.Host); err != nil {
		debug.ErrorLog.Print(err)
	}
}

// HandleData returns the reading of the last tick.
// Values of failed reads are missing, e.g.
//  {"time":"2024-01-02T18:04:05.123+01:00","water":78.5,"air":65.2,"humidity":11.8}
func (app *App) HandleData() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request data")

		r := app.Last()
		if r.Time.IsZero() {
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no reading yet"})
		}
		return ctx.JSON(r)
	}
}
