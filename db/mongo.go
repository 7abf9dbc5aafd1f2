package db

import (
	"context"
	"time"

	"github.com/evergreen-ci/speedtracker/model"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBOptions configure a MongoDatabase.
type MongoDBOptions struct {
	URI         string
	DB          string
	DialTimeout time.Duration
}

// Validate checks the options and fills in defaults.
func (opts *MongoDBOptions) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(opts.URI == "", "must specify a mongodb uri")
	catcher.NewWhen(opts.DB == "", "must specify a database name")
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 2 * time.Second
	}
	return catcher.Resolve()
}

// MongoDatabase stores the results of each profile in a collection named
// after the profile.
type MongoDatabase struct {
	opts   MongoDBOptions
	conn   refCount
	client *mongo.Client
}

// NewMongoDatabase returns an unconnected MongoDatabase.
func NewMongoDatabase(opts MongoDBOptions) (*MongoDatabase, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid mongodb options")
	}

	return &MongoDatabase{opts: opts}, nil
}

func (m *MongoDatabase) Connect(ctx context.Context) error {
	return m.conn.acquire(func() error {
		client, err := mongo.Connect(ctx, options.Client().
			ApplyURI(m.opts.URI).
			SetConnectTimeout(m.opts.DialTimeout).
			SetServerSelectionTimeout(m.opts.DialTimeout))
		if err != nil {
			return errors.Wrapf(err, "problem connecting to '%s'", m.opts.DB)
		}
		if err = client.Ping(ctx, nil); err != nil {
			grip.Warning(message.WrapError(client.Disconnect(ctx), message.Fields{
				"message": "problem closing client after failed ping",
				"db":      m.opts.DB,
			}))
			return errors.Wrapf(err, "problem reaching '%s'", m.opts.DB)
		}

		m.client = client
		return nil
	})
}

func (m *MongoDatabase) Disconnect(ctx context.Context) error {
	return m.conn.release(func() error {
		client := m.client
		m.client = nil
		return errors.Wrap(client.Disconnect(ctx), "problem disconnecting from mongodb")
	})
}

func (m *MongoDatabase) collection(name string) (*mongo.Collection, error) {
	if !m.conn.isOpen() || m.client == nil {
		return nil, errors.New("mongodb is not connected")
	}

	return m.client.Database(m.opts.DB).Collection(name), nil
}

func (m *MongoDatabase) Insert(ctx context.Context, opts model.InsertOptions) error {
	coll, err := m.collection(opts.Collection)
	if err != nil {
		return errors.WithStack(err)
	}

	writes := make([]mongo.WriteModel, 0, len(opts.Results))
	for _, result := range opts.Results {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{model.ResultRecordIDKey: result.ID}).
			SetReplacement(result).
			SetUpsert(true))
	}

	res, err := coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return errors.Wrapf(err, "problem upserting %d results into '%s'", len(writes), opts.Collection)
	}

	grip.Debug(message.Fields{
		"collection": opts.Collection,
		"inserted":   res.UpsertedCount,
		"replaced":   res.ModifiedCount,
		"op":         "upsert results",
	})

	return nil
}

func (m *MongoDatabase) Get(ctx context.Context, opts model.GetOptions) ([]model.ResultRecord, error) {
	coll, err := m.collection(opts.Collection)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cur, err := coll.Find(ctx, resultsFilter(opts), resultsFindOptions())
	if err != nil {
		return nil, errors.Wrapf(err, "problem finding results in '%s'", opts.Collection)
	}

	out := []model.ResultRecord{}
	if err = cur.All(ctx, &out); err != nil {
		return nil, errors.Wrapf(err, "problem decoding results from '%s'", opts.Collection)
	}

	return out, nil
}
