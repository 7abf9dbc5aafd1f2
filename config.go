package speedtracker

import (
	"os"
	"strings"
	"time"

	"github.com/evergreen-ci/speedtracker/db"
	"github.com/evergreen-ci/speedtracker/model"
	"github.com/evergreen-ci/speedtracker/wpt"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Configuration defines the settings of a speedtracker deployment.
type Configuration struct {
	// BaseURL is the externally reachable address of the service,
	// including any route prefix. Pingback urls are built from it.
	BaseURL           string                          `yaml:"base_url"`
	DefaultProfileURL string                          `yaml:"default_profile_url"`
	WPTURL            string                          `yaml:"wpt_url"`
	WPTAPIKey         string                          `yaml:"wpt_api_key"`
	Profiles          map[string]model.TestParameters `yaml:"profiles"`
	Database          DatabaseConfig                  `yaml:"database"`
	Service           ServiceConfig                   `yaml:"service"`
}

// DatabaseConfig selects and configures the result store.
type DatabaseConfig struct {
	Backend     string        `yaml:"backend"`
	MongoDBURI  string        `yaml:"mongodb_uri"`
	Name        string        `yaml:"name"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	RedisURL    string        `yaml:"redis_url"`
	RedisPrefix string        `yaml:"redis_prefix"`
}

// ServiceConfig configures the REST service.
type ServiceConfig struct {
	Port           int      `yaml:"port"`
	Prefix         string   `yaml:"prefix"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoadConfiguration reads a YAML configuration file. The result is not
// validated.
func LoadConfiguration(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "problem reading config file '%s'", path)
	}

	conf := &Configuration{}
	if err = yaml.Unmarshal(data, conf); err != nil {
		return nil, errors.Wrapf(err, "problem parsing config file '%s'", path)
	}

	return conf, nil
}

func (c *Configuration) Validate() error {
	catcher := grip.NewBasicCatcher()

	if c.WPTURL == "" {
		c.WPTURL = wpt.DefaultHost
	}
	if c.Database.Backend == "" {
		c.Database.Backend = db.MongoDBBackend
	}
	if c.Database.Name == "" {
		c.Database.Name = "speedtracker"
	}
	if c.Database.DialTimeout <= 0 {
		c.Database.DialTimeout = 2 * time.Second
	}
	if c.Database.RedisPrefix == "" {
		c.Database.RedisPrefix = "speedtracker"
	}
	if c.Service.Port == 0 {
		c.Service.Port = 3000
	}

	catcher.NewWhen(!strings.HasPrefix(c.BaseURL, "http"), "must specify a base url starting with 'http'")
	catcher.NewWhen(!strings.HasPrefix(c.WPTURL, "http"), "wpt url must start with 'http'")
	catcher.NewWhen(c.WPTAPIKey == "", "must specify a wpt api key")
	catcher.ErrorfWhen(c.Service.Port < 0 || c.Service.Port > 65535, "invalid service port %d", c.Service.Port)

	switch c.Database.Backend {
	case db.MongoDBBackend:
		catcher.NewWhen(c.Database.MongoDBURI == "", "must specify a mongodb uri")
	case db.RedisBackend:
		catcher.NewWhen(c.Database.RedisURL == "", "must specify a redis url")
	case db.MemoryBackend:
	default:
		catcher.Errorf("unknown database backend '%s'", c.Database.Backend)
	}

	for name := range c.Profiles {
		catcher.NewWhen(name == "", "profile names must not be empty")
	}

	return catcher.Resolve()
}

// Registry returns the configured profiles.
func (c *Configuration) Registry() model.ProfileRegistry {
	registry := make(model.ProfileRegistry, len(c.Profiles))
	for name, params := range c.Profiles {
		registry[name] = model.Profile{Name: name, Parameters: params}
	}

	return registry
}

// PingbackToken returns the token that authenticates test runner callbacks.
func (c *Configuration) PingbackToken() string {
	return model.PingbackToken(c.WPTAPIKey)
}
