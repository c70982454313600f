package main

import (
	"os"
	"os/signal"
	"sort"
	"syscall"

	"saunamon/pkg/app"
	"saunamon/pkg/app/config"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
)

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "Sauna monitor for SHT30 and DS18B20 sensors on a Raspberry Pi",
		Version: app.VERSION,
		Description: "Read the SHT30 (i2c) and DS18B20 (1-wire) sensors on a fixed interval" +
			"\n and send the readings to Ambient, Slack, mqtt and InfluxDB." +
			"\n Off the Raspberry Pi the SHT30 is simulated and the DS18B20 is read from a fixture directory.",
		UsageText: "saunamon [--config <file>] [--log standard|debug|trace] [--simulate auto|on|off]" +
			"\n\nEXAMPLE:" +
			"\n\tstart the monitor and use the configuration file saunamon.yaml" +
			"\n\t\tsaunamon --config /opt/saunamon/saunamon.yaml",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: config.DefaultConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.LogLevel, Usage: "`LEVEL` defines the log level (standard|debug|trace)"},
			&cli.StringFlag{Name: "simulate", Aliases: []string{"s"}, Destination: &cfg.Flag.Simulate, Usage: "`MODE` auto uses the sensors only on the Raspberry Pi (auto|on|off)"},
		},
		Action: func(ctx *cli.Context) error {
			if err := cfg.LoadConfig(); err != nil {
				return err
			}

			debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
			defer func() {
				if cfg.Debug.File != os.Stderr && cfg.Debug.File != os.Stdout {
					debug.InfoLog.Printf("closing debug file %s", cfg.Debug.FileString)
					_ = cfg.Debug.File.Close()
				}
			}()

			a, err := app.New(cfg)
			defer func() {
				debug.InfoLog.Printf("closing app %s", app.Version())
				_ = a.Close()
			}()

			if err != nil {
				return err
			}

			debug.InfoLog.Printf("starting app %s", app.Version())
			if err = a.Run(); err != nil {
				return err
			}

			// capture exit signals to ensure resources are released on exit.
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			// wait for an os.Interrupt signal (CTRL C) or the app giving up
			select {
			case sig := <-quit:
				debug.InfoLog.Printf("Got %s signal. Aborting...", sig)
			case <-a.Shutdown():
				return a.Err()
			}

			return nil
		},
	}

	sort.Sort(cli.FlagsByName(cliApp.Flags))

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.FatalLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
}
