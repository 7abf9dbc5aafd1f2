/*
Package db holds the implementations of model.Database: a MongoDB backed
store, a Redis backed store and an in-memory store.

Each store may be shared between concurrent requests. Connect and Disconnect
are reference counted so that the underlying client is opened by the first
Connect and closed by the last matching Disconnect.
*/
package db

import (
	"sync"

	"github.com/pkg/errors"
)

// Backend names accepted by the configuration.
const (
	MongoDBBackend = "mongodb"
	RedisBackend   = "redis"
	MemoryBackend  = "memory"
)

type refCount struct {
	mu   sync.Mutex
	refs int
}

// acquire calls open when there are no other holders of the connection.
func (c *refCount) acquire(open func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refs == 0 {
		if err := open(); err != nil {
			return errors.WithStack(err)
		}
	}
	c.refs++

	return nil
}

// release calls close when the last holder of the connection releases it.
func (c *refCount) release(close func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refs == 0 {
		return errors.New("database is not connected")
	}
	c.refs--
	if c.refs > 0 {
		return nil
	}

	return errors.WithStack(close())
}

func (c *refCount) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.refs > 0
}
