package speedtracker

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis"
	"github.com/evergreen-ci/speedtracker/db"
	"github.com/evergreen-ci/speedtracker/wpt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvironment(t *testing.T) {
	t.Run("NilConfiguration", func(t *testing.T) {
		env, err := NewEnvironment(nil)
		assert.Error(t, err)
		assert.Nil(t, env)
	})
	t.Run("InvalidConfiguration", func(t *testing.T) {
		env, err := NewEnvironment(&Configuration{})
		assert.Error(t, err)
		assert.Nil(t, env)
	})
	t.Run("MemoryBackend", func(t *testing.T) {
		conf := validConfig()
		env, err := NewEnvironment(conf)
		require.NoError(t, err)
		defer func() { assert.NoError(t, env.Close()) }()

		assert.Equal(t, conf, env.GetConf())
		assert.IsType(t, &db.InMemoryDatabase{}, env.GetDatabase())
		require.IsType(t, &wpt.Client{}, env.GetRunner())
		assert.Equal(t, wpt.DefaultHost, env.GetRunner().(*wpt.Client).Host())
	})
	t.Run("RedisBackend", func(t *testing.T) {
		srv, err := miniredis.Run()
		require.NoError(t, err)
		defer srv.Close()

		conf := validConfig()
		conf.Database = DatabaseConfig{Backend: db.RedisBackend, RedisURL: "redis://" + srv.Addr()}
		env, err := NewEnvironment(conf)
		require.NoError(t, err)
		defer func() { assert.NoError(t, env.Close()) }()

		database := env.GetDatabase()
		require.IsType(t, &db.RedisDatabase{}, database)
		ctx := context.Background()
		require.NoError(t, database.Connect(ctx))
		assert.NoError(t, database.Disconnect(ctx))
	})
	t.Run("InvalidRedisURL", func(t *testing.T) {
		conf := validConfig()
		conf.Database = DatabaseConfig{Backend: db.RedisBackend, RedisURL: "http://localhost"}
		env, err := NewEnvironment(conf)
		assert.Error(t, err)
		assert.Nil(t, env)
	})
	t.Run("MongoDBBackend", func(t *testing.T) {
		conf := validConfig()
		conf.Database = DatabaseConfig{Backend: db.MongoDBBackend, MongoDBURI: "mongodb://localhost:27017"}
		env, err := NewEnvironment(conf)
		require.NoError(t, err)
		defer func() { assert.NoError(t, env.Close()) }()

		assert.IsType(t, &db.MongoDatabase{}, env.GetDatabase())
	})
	t.Run("CloseTwice", func(t *testing.T) {
		env, err := NewEnvironment(validConfig())
		require.NoError(t, err)
		assert.NoError(t, env.Close())
		assert.Error(t, env.Close())
	})
}
