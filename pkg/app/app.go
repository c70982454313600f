package app

import (
	"context"
	"net/url"
	"os"
	"sync"

	"saunamon/pkg/ambient"
	"saunamon/pkg/app/config"
	"saunamon/pkg/ds18b20"
	"saunamon/pkg/influx"
	"saunamon/pkg/measurement"
	"saunamon/pkg/mqtt"
	"saunamon/pkg/platform"
	"saunamon/pkg/raspberry"
	"saunamon/pkg/sht30"
	"saunamon/pkg/slack"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// thermometer is a sensor returning a temperature in °C.
type thermometer interface {
	ReadTemperature() (float64, error)
}

// hygrometer is a sensor returning temperature and relative humidity.
type hygrometer interface {
	thermometer
	ReadHumidity() (float64, error)
}

// Sink delivers a reading to an external service.
type Sink interface {
	Name() string
	Send(ctx context.Context, r measurement.Reading) error
}

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Webserver.URL parameter
	urlParsed *url.URL

	// water is the DS18B20 handler
	water thermometer
	// air is the SHT30 handler
	air hygrometer
	// closers are released on Close (sensor bus, influx client)
	closers []func() error

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler
	// slack is kept separately to post the startup message
	slack *slack.Handler
	// sinks receive every reading
	sinks []Sink

	// led shows the result of the last tick
	led raspberry.LED

	// last is the reading of the last tick,
	// failures counts consecutive ticks without any value
	last struct {
		sync.Mutex
		reading  measurement.Reading
		failures int
	}
	// running is set once the poll loop is started
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	// done is closed when the poll loop returned
	done chan struct{}
	// shutdown signals application shutdown, err holds the reason
	shutdown chan struct{}
	stopOnce sync.Once
	err      error
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	app := newApp(config)
	app.urlParsed = u
	return app, nil
}

func newApp(config *config.Config) *App {
	ctx, cancel := context.WithCancel(context.Background())
	// a disabled led never fails
	led, _ := raspberry.OpenLED("", -1)

	return &App{
		config: config,
		web:    fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt:   mqtt.New(),
		led:    led,

		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		shutdown: make(chan struct{}),
	}
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()

	if app.slack != nil {
		go app.announce()
	}

	app.running = true
	go app.poll()

	return nil
}

// init initializes the sensors, the sinks and the web routes.
func (app *App) init() (err error) {
	hardware, err := platform.Resolve(app.config.Simulate)
	if err != nil {
		return err
	}

	if err = app.initSensors(hardware); err != nil {
		return err
	}

	led, err := raspberry.OpenLED(app.config.StatusLED.Chip, app.config.StatusLED.Line)
	if err != nil {
		debug.ErrorLog.Printf("can't open status led: %v", err)
		return err
	}
	app.led = led

	if err = app.initSinks(); err != nil {
		return err
	}

	// initDefaultRoutes should be always called last because it may access things
	// which must be initialized before
	app.initDefaultRoutes()

	return nil
}

// initSensors builds the sensor handlers once, for real hardware or simulation.
func (app *App) initSensors(hardware bool) error {
	// go-i2c logs every transfer at debug level
	sht30.SetBusTrace(app.config.Debug.FlagString == "trace" || app.config.Debug.FlagString == "full")

	root := app.config.DS18B20.Fixture

	if hardware {
		bus, err := sht30.OpenBus(app.config.SHT30.Bus, app.config.SHT30.Address)
		if err != nil {
			debug.ErrorLog.Printf("can't open sht30: %v", err)
			return err
		}

		var opts []sht30.Option
		if app.config.SHT30.CRC {
			opts = append(opts, sht30.WithCRC())
		}
		s := sht30.New(bus, opts...)
		app.air = s
		app.closers = append(app.closers, s.Close)
		root = app.config.DS18B20.Root
	} else {
		debug.InfoLog.Printf("simulation mode, ds18b20 fixture %s", root)
		app.air = sht30.NewSimulated()
	}

	opts := []ds18b20.Option{ds18b20.WithFamily(app.config.DS18B20.Family)}
	if app.config.DS18B20.CRC {
		opts = append(opts, ds18b20.WithCRCCheck())
	}

	d, err := ds18b20.New(os.DirFS(root), opts...)
	if err != nil {
		debug.ErrorLog.Printf("can't find ds18b20 in %s: %v", root, err)
		return err
	}
	debug.InfoLog.Printf("ds18b20 found: %s", d.Path())
	app.water = d

	return nil
}

// initSinks enables every sink with a complete configuration.
func (app *App) initSinks() error {
	c := app.config

	if c.Ambient.Channel != "" {
		app.sinks = append(app.sinks, ambient.New(c.Ambient.URL, c.Ambient.Channel, c.Ambient.WriteKey, c.Timeout))
	}

	if c.Slack.Token != "" {
		app.slack = slack.New(c.Slack.Token, c.Slack.Channel, c.Slack.APIURL)
		app.sinks = append(app.sinks, app.slack)
	}

	if c.MQTT.Connection != "" {
		if err := app.mqtt.Connect(c.MQTT.Connection, c.MQTT.ClientID); err != nil {
			debug.ErrorLog.Printf("can't open mqtt broker %v", err)
			return err
		}
		app.sinks = append(app.sinks, mqtt.NewSink(app.mqtt, c.MQTT.Topic))
	}

	if c.Influx.URL != "" {
		h := influx.New(c.Influx.URL, c.Influx.Token, c.Influx.Org, c.Influx.Bucket, c.Influx.Measurement, c.Influx.Tags)
		app.closers = append(app.closers, func() error { h.Close(); return nil })
		app.sinks = append(app.sinks, h)
	}

	for _, s := range app.sinks {
		debug.InfoLog.Printf("sink %s enabled", s.Name())
	}
	return nil
}

// announce posts the startup message to slack.
func (app *App) announce() {
	ctx, cancel := context.WithTimeout(app.ctx, app.config.Timeout)
	defer cancel()

	if err := app.slack.Announce(ctx, app.config.Slack.Dashboard); err != nil {
		debug.ErrorLog.Printf("slack startup message: %v", err)
	}
}

// Shutdown returns the read only shutdown channel.
// It is closed when the application stops itself, see Err for the reason.
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

// Err returns the reason the application stopped itself.
func (app *App) Err() error {
	select {
	case <-app.shutdown:
		return app.err
	default:
		return nil
	}
}

func (app *App) stop(err error) {
	app.stopOnce.Do(func() {
		app.err = err
		close(app.shutdown)
	})
}

// Close stops the poll loop and releases all resources.
// A running tick is finished first.
func (app *App) Close() error {
	if app.cancel == nil {
		return nil
	}

	app.cancel()
	if app.running {
		<-app.done
	}

	if app.web != nil && app.urlParsed != nil && app.urlParsed.Host != "" {
		_ = app.web.Shutdown()
	}

	// the poll loop is stopped, no sink sends anymore
	_ = app.mqtt.Close()

	for _, c := range app.closers {
		if err := c(); err != nil {
			debug.ErrorLog.Printf("close: %v", err)
		}
	}

	_ = app.led.Set(false)
	return app.led.Close()
}
