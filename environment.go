package speedtracker

import (
	"sync"

	"github.com/evergreen-ci/speedtracker/db"
	"github.com/evergreen-ci/speedtracker/model"
	"github.com/evergreen-ci/speedtracker/wpt"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// Environment objects provide access to the shared configuration and the
// collaborators built from it, in a way that you can isolate in tests.
type Environment interface {
	GetConf() *Configuration
	// GetDatabase returns the result store selected by the
	// configuration. Callers connect and disconnect it per operation.
	GetDatabase() model.Database
	GetRunner() model.TestRunner
	// Close releases the resources held by the environment.
	Close() error
}

type envState struct {
	conf     *Configuration
	database model.Database
	client   *wpt.Client
	closed   bool
	mutex    sync.Mutex
}

// NewEnvironment validates the configuration and builds the result store and
// the WebPageTest client it describes. No connection is made.
func NewEnvironment(conf *Configuration) (Environment, error) {
	if conf == nil {
		return nil, errors.New("must specify a configuration")
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	database, err := newDatabase(conf.Database)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	client, err := wpt.NewClient(conf.WPTURL, conf.WPTAPIKey, nil)
	if err != nil {
		return nil, errors.Wrap(err, "problem building wpt client")
	}

	grip.Info(message.Fields{
		"message":  "configured environment",
		"backend":  conf.Database.Backend,
		"db":       conf.Database.Name,
		"wpt":      client.Host(),
		"profiles": len(conf.Profiles),
	})

	return &envState{
		conf:     conf,
		database: database,
		client:   client,
	}, nil
}

func newDatabase(conf DatabaseConfig) (model.Database, error) {
	switch conf.Backend {
	case db.MongoDBBackend:
		database, err := db.NewMongoDatabase(db.MongoDBOptions{
			URI:         conf.MongoDBURI,
			DB:          conf.Name,
			DialTimeout: conf.DialTimeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "problem configuring mongodb")
		}
		return database, nil
	case db.RedisBackend:
		database, err := db.NewRedisDatabase(db.RedisOptions{
			URL:    conf.RedisURL,
			Prefix: conf.RedisPrefix,
		})
		if err != nil {
			return nil, errors.Wrap(err, "problem configuring redis")
		}
		return database, nil
	case db.MemoryBackend:
		return db.NewInMemoryDatabase(), nil
	default:
		return nil, errors.Errorf("unknown database backend '%s'", conf.Backend)
	}
}

func (c *envState) GetConf() *Configuration     { return c.conf }
func (c *envState) GetDatabase() model.Database { return c.database }
func (c *envState) GetRunner() model.TestRunner { return c.client }

func (c *envState) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return errors.New("environment is already closed")
	}
	c.closed = true
	c.client.Close()

	return nil
}
