package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// DefaultConfigFile is read if no other file is given, it may be missing.
const DefaultConfigFile = "/opt/saunamon/config/saunamon.yaml"

// environment variables overriding the secrets of the configuration file
const (
	EnvAmbientWriteKey = "SAUNAMON_AMBIENT_WRITEKEY"
	EnvSlackToken      = "SAUNAMON_SLACK_TOKEN"
	EnvInfluxToken     = "SAUNAMON_INFLUX_TOKEN"
)

// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	// IntervalInt is the poll interval in seconds.
	IntervalInt int           `yaml:"interval"`
	Interval    time.Duration `yaml:"-"`
	// TimeoutInt limits each sink request in seconds.
	TimeoutInt int           `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
	// MaxFailures stops the app after that many consecutive failed ticks (0 = never).
	MaxFailures int    `yaml:"maxfailures"`
	Simulate    string `yaml:"simulate"`

	Flag      FlagConfig      `yaml:"-"`
	SHT30     SHT30Config     `yaml:"sht30"`
	DS18B20   DS18B20Config   `yaml:"ds18b20"`
	Ambient   AmbientConfig   `yaml:"ambient"`
	Slack     SlackConfig     `yaml:"slack"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Influx    InfluxConfig    `yaml:"influx"`
	StatusLED StatusLEDConfig `yaml:"statusled"`
	Webserver WebserverConfig `yaml:"webserver"`
	Debug     DebugConfig     `yaml:"debug"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	ConfigFile string
	LogLevel   string
	Simulate   string
}

// SHT30Config defines the i2c bus of the SHT30 sensor.
type SHT30Config struct {
	Bus     int   `yaml:"bus"`
	Address uint8 `yaml:"address"`
	CRC     bool  `yaml:"crc"`
}

// DS18B20Config defines where to discover the DS18B20 sensor.
// Root is scanned on the target, Fixture in simulation mode.
type DS18B20Config struct {
	Root    string `yaml:"root"`
	Fixture string `yaml:"fixture"`
	Family  uint64 `yaml:"family"`
	CRC     bool   `yaml:"crc"`
}

// AmbientConfig defines the Ambient channel. The sink is disabled without a channel.
type AmbientConfig struct {
	URL      string `yaml:"url"`
	Channel  string `yaml:"channel"`
	WriteKey string `yaml:"writekey"`
}

// SlackConfig defines the Slack channel. The sink is disabled without a token.
type SlackConfig struct {
	Token     string `yaml:"token"`
	Channel   string `yaml:"channel"`
	APIURL    string `yaml:"apiurl"`
	Dashboard string `yaml:"dashboard"`
}

// MQTTConfig defines the mqtt broker. The sink is disabled without a connection.
type MQTTConfig struct {
	Connection string `yaml:"connection"`
	ClientID   string `yaml:"clientid"`
	Topic      string `yaml:"topic"`
}

// InfluxConfig defines the InfluxDB bucket. The sink is disabled without an url.
type InfluxConfig struct {
	URL         string            `yaml:"url"`
	Token       string            `yaml:"token"`
	Org         string            `yaml:"org"`
	Bucket      string            `yaml:"bucket"`
	Measurement string            `yaml:"measurement"`
	Tags        map[string]string `yaml:"tags"`
}

// StatusLEDConfig defines the gpio line of the status LED, a negative line disables it.
type StatusLEDConfig struct {
	Chip string `yaml:"chip"`
	Line int    `yaml:"line"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		IntervalInt: 60,
		TimeoutInt:  10,
		Simulate:    "auto",
		SHT30: SHT30Config{
			Bus:     1,
			Address: 0x44,
		},
		DS18B20: DS18B20Config{
			Root:    "/sys/bus/w1/devices",
			Fixture: "./testdata/w1",
			Family:  28,
		},
		Slack: SlackConfig{
			Channel: "#sauna",
		},
		MQTT: MQTTConfig{
			ClientID: "saunamon",
			Topic:    "/sauna/status",
		},
		Influx: InfluxConfig{
			Measurement: "sauna",
		},
		StatusLED: StatusLEDConfig{
			Chip: "gpiochip0",
			Line: -1,
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"data":    true,
			},
		},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
	}
}

// LoadConfig reads the configuration file and applies flags and environment.
// A missing file is an error unless it is DefaultConfigFile.
func (c *Config) LoadConfig() error {
	if c.Flag.ConfigFile != "" {
		err := c.readConfigFile()
		switch {
		case os.IsNotExist(err) && c.Flag.ConfigFile == DefaultConfigFile:
			c.Flag.ConfigFile = ""
		case err != nil:
			return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
		}
	}

	c.readEnv()

	if c.Flag.LogLevel != "" {
		c.Debug.FlagString = c.Flag.LogLevel
	}
	if c.Flag.Simulate != "" {
		c.Simulate = c.Flag.Simulate
	}

	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	if c.IntervalInt <= 0 {
		return fmt.Errorf("invalid interval %d", c.IntervalInt)
	}
	if c.TimeoutInt <= 0 {
		return fmt.Errorf("invalid timeout %d", c.TimeoutInt)
	}
	if c.MaxFailures < 0 {
		return fmt.Errorf("invalid maxfailures %d", c.MaxFailures)
	}

	c.Interval = time.Duration(c.IntervalInt) * time.Second
	c.Timeout = time.Duration(c.TimeoutInt) * time.Second

	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil && err != io.EOF {
		return err
	}

	return nil
}

func (c *Config) readEnv() {
	if v, ok := os.LookupEnv(EnvAmbientWriteKey); ok {
		c.Ambient.WriteKey = v
	}
	if v, ok := os.LookupEnv(EnvSlackToken); ok {
		c.Slack.Token = v
	}
	if v, ok := os.LookupEnv(EnvInfluxToken); ok {
		c.Influx.Token = v
	}
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Debug.Flag = debug.Standard
	default:
		return fmt.Errorf("invalid log level %q", c.Debug.FlagString)
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
