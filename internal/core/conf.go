package core

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvToken overrides the token of the credentials file when set.
const EnvToken = "DISCORD_TRIGGER_TOKEN"

type Conf struct {
	Version     string `yaml:"version"`
	DiscordCred `yaml:"discord-cred"`
	TriggerConf `yaml:"trigger"`
	WebConf     `yaml:"web"`
}

type DiscordCred struct {
	DiscordToken yaml.Node `yaml:"token"`
	APIBase      string    `yaml:"api-base"`
}

type TriggerConf struct {
	Timeout        time.Duration `yaml:"timeout"`
	ReconnectGrace time.Duration `yaml:"reconnect-grace"` // zero takes the gateway service default
}

type WebConf struct {
	Addr           string   `yaml:"addr"`
	TrustedProxies []string `yaml:"trusted-proxies"`
}

// DefaultConf configuration used when no file is given.
func DefaultConf() *Conf {
	return &Conf{
		Version: "1",
		WebConf: WebConf{Addr: ":8740"},
	}
}

// LoadConf read the yaml configuration at fileLocation on top of DefaultConf.
// An empty fileLocation returns the defaults.
func LoadConf(fileLocation string) (*Conf, error) {
	conf := DefaultConf()
	if fileLocation == "" {
		return conf, nil
	}
	yamlFile, err := os.ReadFile(fileLocation)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading conf file from [%s]", fileLocation)
	}
	if err = yaml.Unmarshal(yamlFile, conf); err != nil {
		return nil, errors.Wrapf(err, "error unmarshalling conf file [%s]", fileLocation)
	}
	if conf.Timeout < 0 {
		return nil, errors.Errorf("trigger.timeout must not be negative, got %s", conf.Timeout)
	}
	if conf.ReconnectGrace < 0 {
		return nil, errors.Errorf("trigger.reconnect-grace must not be negative, got %s", conf.ReconnectGrace)
	}
	return conf, nil
}

// Token the bot token, environment first. present is false when neither source sets it.
func (c *Conf) Token() (token string, present bool) {
	if v, ok := os.LookupEnv(EnvToken); ok {
		return v, true
	}
	if c.DiscordToken.Kind == 0 {
		return "", false
	}
	return c.DiscordToken.Value, true
}
