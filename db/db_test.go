package db

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/evergreen-ci/speedtracker/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecord(id string, ts int64) model.ResultRecord {
	score := 87
	return model.ResultRecord{
		ID:             id,
		Timestamp:      ts,
		Date:           ts,
		LoadTime:       1234.5,
		TTFB:           210,
		DOMInteractive: 900,
		DOMElements:    500,
		FirstPaint:     400,
		FullyLoaded:    2000,
		Render:         450,
		SpeedIndex:     1100,
		VisualComplete: 1900,
		Lighthouse:     &score,
		Breakdown: model.ResultBreakdown{
			CSS:   model.ResourceCount{Bytes: 100, Requests: 1},
			JS:    model.ResourceCount{Bytes: 2000, Requests: 4},
			Image: model.ResourceCount{Bytes: 30000, Requests: 10},
		},
		VideoFrames: []model.VideoFrame{
			{Image: "frame_0000.jpg", Time: 0, VisuallyComplete: 0},
			{Image: "frame_0010.jpg", Time: 1000, VisuallyComplete: 100},
		},
	}
}

func int64Ptr(i int64) *int64 { return &i }

type databaseFactory func(t *testing.T) model.Database

func testDatabase(t *testing.T, factory databaseFactory) {
	t.Run("RequiresConnection", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		db := factory(t)
		assert.Error(t, db.Insert(ctx, model.InsertOptions{Collection: "p", Results: []model.ResultRecord{makeRecord("a", 1)}}))
		_, err := db.Get(ctx, model.GetOptions{Collection: "p"})
		assert.Error(t, err)
		assert.Error(t, db.Disconnect(ctx))
	})
	t.Run("RoundTrip", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		db := factory(t)
		require.NoError(t, db.Connect(ctx))
		defer func() { assert.NoError(t, db.Disconnect(ctx)) }()

		record := makeRecord("abc", 100)
		require.NoError(t, db.Insert(ctx, model.InsertOptions{Collection: "homepage", Results: []model.ResultRecord{record}}))

		out, err := db.Get(ctx, model.GetOptions{Collection: "homepage"})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, record, out[0])
	})
	t.Run("NullScoreRoundTrip", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		db := factory(t)
		require.NoError(t, db.Connect(ctx))
		defer func() { assert.NoError(t, db.Disconnect(ctx)) }()

		record := makeRecord("abc", 100)
		record.Lighthouse = nil
		require.NoError(t, db.Insert(ctx, model.InsertOptions{Collection: "homepage", Results: []model.ResultRecord{record}}))

		out, err := db.Get(ctx, model.GetOptions{Collection: "homepage"})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Nil(t, out[0].Lighthouse)
	})
	t.Run("TimeRange", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		db := factory(t)
		require.NoError(t, db.Connect(ctx))
		defer func() { assert.NoError(t, db.Disconnect(ctx)) }()

		require.NoError(t, db.Insert(ctx, model.InsertOptions{
			Collection: "homepage",
			Results:    []model.ResultRecord{makeRecord("c", 30), makeRecord("a", 10), makeRecord("b", 20)},
		}))

		out, err := db.Get(ctx, model.GetOptions{Collection: "homepage", TimestampFrom: int64Ptr(15), TimestampTo: int64Ptr(25)})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "b", out[0].ID)

		out, err = db.Get(ctx, model.GetOptions{Collection: "homepage", TimestampFrom: int64Ptr(20)})
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "b", out[0].ID)
		assert.Equal(t, "c", out[1].ID)

		out, err = db.Get(ctx, model.GetOptions{Collection: "homepage", TimestampTo: int64Ptr(20)})
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "a", out[0].ID)
		assert.Equal(t, "b", out[1].ID)

		out, err = db.Get(ctx, model.GetOptions{Collection: "homepage"})
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, []string{"a", "b", "c"}, []string{out[0].ID, out[1].ID, out[2].ID})
	})
	t.Run("DuplicateID", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		db := factory(t)
		require.NoError(t, db.Connect(ctx))
		defer func() { assert.NoError(t, db.Disconnect(ctx)) }()

		require.NoError(t, db.Insert(ctx, model.InsertOptions{
			Collection: "homepage",
			Results:    []model.ResultRecord{makeRecord("a", 10), makeRecord("b", 15)},
		}))

		replacement := makeRecord("a", 20)
		replacement.SpeedIndex = 999
		require.NoError(t, db.Insert(ctx, model.InsertOptions{Collection: "homepage", Results: []model.ResultRecord{replacement}}))

		out, err := db.Get(ctx, model.GetOptions{Collection: "homepage"})
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "b", out[0].ID)
		assert.Equal(t, replacement, out[1])

		out, err = db.Get(ctx, model.GetOptions{Collection: "homepage", TimestampTo: int64Ptr(10)})
		require.NoError(t, err)
		assert.Empty(t, out)

		require.NoError(t, db.Insert(ctx, model.InsertOptions{Collection: "homepage", Results: []model.ResultRecord{replacement}}))
		out, err = db.Get(ctx, model.GetOptions{Collection: "homepage"})
		require.NoError(t, err)
		assert.Len(t, out, 2)
	})
	t.Run("CollectionsArePartitioned", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		db := factory(t)
		require.NoError(t, db.Connect(ctx))
		defer func() { assert.NoError(t, db.Disconnect(ctx)) }()

		require.NoError(t, db.Insert(ctx, model.InsertOptions{Collection: "one", Results: []model.ResultRecord{makeRecord("a", 10)}}))
		require.NoError(t, db.Insert(ctx, model.InsertOptions{Collection: "two", Results: []model.ResultRecord{makeRecord("b", 10)}}))

		out, err := db.Get(ctx, model.GetOptions{Collection: "one"})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "a", out[0].ID)

		out, err = db.Get(ctx, model.GetOptions{Collection: "three"})
		require.NoError(t, err)
		assert.Empty(t, out)
	})
	t.Run("NestedConnections", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		db := factory(t)
		require.NoError(t, db.Connect(ctx))
		require.NoError(t, db.Connect(ctx))
		require.NoError(t, db.Disconnect(ctx))

		_, err := db.Get(ctx, model.GetOptions{Collection: "homepage"})
		assert.NoError(t, err)

		require.NoError(t, db.Disconnect(ctx))
		_, err = db.Get(ctx, model.GetOptions{Collection: "homepage"})
		assert.Error(t, err)
	})
	t.Run("ConcurrentUse", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		db := factory(t)
		wg := &sync.WaitGroup{}
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if !assert.NoError(t, db.Connect(ctx)) {
					return
				}
				defer func() { assert.NoError(t, db.Disconnect(ctx)) }()

				assert.NoError(t, db.Insert(ctx, model.InsertOptions{
					Collection: "concurrent",
					Results:    []model.ResultRecord{makeRecord(fmt.Sprintf("r%d", i), int64(i))},
				}))
			}(i)
		}
		wg.Wait()

		require.NoError(t, db.Connect(ctx))
		defer func() { assert.NoError(t, db.Disconnect(ctx)) }()
		out, err := db.Get(ctx, model.GetOptions{Collection: "concurrent"})
		require.NoError(t, err)
		assert.Len(t, out, 8)
	})
}

func TestInMemoryDatabase(t *testing.T) {
	testDatabase(t, func(t *testing.T) model.Database {
		return NewInMemoryDatabase()
	})

	t.Run("Connected", func(t *testing.T) {
		ctx := context.Background()
		db := NewInMemoryDatabase()
		assert.False(t, db.Connected())
		require.NoError(t, db.Connect(ctx))
		assert.True(t, db.Connected())
		require.NoError(t, db.Disconnect(ctx))
		assert.False(t, db.Connected())
	})
}

func TestRedisDatabase(t *testing.T) {
	testDatabase(t, func(t *testing.T) model.Database {
		srv, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(srv.Close)

		db, err := NewRedisDatabase(RedisOptions{URL: "redis://" + srv.Addr()})
		require.NoError(t, err)
		return db
	})

	t.Run("InvalidOptions", func(t *testing.T) {
		_, err := NewRedisDatabase(RedisOptions{})
		assert.Error(t, err)
		_, err = NewRedisDatabase(RedisOptions{URL: "http://localhost:6379"})
		assert.Error(t, err)
	})
	t.Run("KeyPrefix", func(t *testing.T) {
		db, err := NewRedisDatabase(RedisOptions{URL: "redis://localhost:6379"})
		require.NoError(t, err)
		assert.Equal(t, "speedtracker:results:homepage", db.key("homepage"))
		assert.Equal(t, "speedtracker:ids:homepage", db.idsKey("homepage"))
	})
	t.Run("UnreachableServer", func(t *testing.T) {
		srv, err := miniredis.Run()
		require.NoError(t, err)
		addr := srv.Addr()
		srv.Close()

		db, err := NewRedisDatabase(RedisOptions{URL: "redis://" + addr})
		require.NoError(t, err)
		assert.Error(t, db.Connect(context.Background()))
		assert.Error(t, db.Disconnect(context.Background()))
	})
}

func TestMongoDatabase(t *testing.T) {
	available, err := NewMongoDatabase(MongoDBOptions{
		URI:         "mongodb://localhost:27017",
		DB:          "speedtracker_test",
		DialTimeout: time.Second,
	})
	require.NoError(t, err)
	if err = available.Connect(context.Background()); err != nil {
		t.Skipf("mongodb is not available: %s", err)
	}
	require.NoError(t, available.Disconnect(context.Background()))

	testDatabase(t, func(t *testing.T) model.Database {
		db, err := NewMongoDatabase(MongoDBOptions{
			URI:         "mongodb://localhost:27017",
			DB:          fmt.Sprintf("speedtracker_test_%d", time.Now().UnixNano()),
			DialTimeout: time.Second,
		})
		require.NoError(t, err)
		return db
	})

	t.Run("InvalidOptions", func(t *testing.T) {
		_, err := NewMongoDatabase(MongoDBOptions{})
		assert.Error(t, err)
	})
}
