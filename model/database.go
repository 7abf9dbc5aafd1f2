package model

import (
	"context"

	"github.com/evergreen-ci/speedtracker/util"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// Database is the persistence capability the service needs. Callers must
// Connect before any other operation and Disconnect when done.
type Database interface {
	Connect(context.Context) error
	Disconnect(context.Context) error
	// Insert appends the results to the collection.
	Insert(context.Context, InsertOptions) error
	// Get returns the results of the collection whose timestamp falls
	// within the optional bounds, ordered by timestamp.
	Get(context.Context, GetOptions) ([]ResultRecord, error)
}

// InsertOptions describe a batch of results to add to a collection.
type InsertOptions struct {
	Collection string
	Results    []ResultRecord
}

// GetOptions select the results of a collection.
type GetOptions struct {
	Collection    string
	TimestampFrom *int64
	TimestampTo   *int64
}

// Range returns the timestamp bounds as a TimeRange.
func (opts GetOptions) Range() util.TimeRange {
	return util.TimeRange{From: opts.TimestampFrom, To: opts.TimestampTo}
}

// Validate checks that the options name a collection and a valid range.
func (opts GetOptions) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(opts.Collection == "", "must specify a collection")
	catcher.NewWhen(!opts.Range().IsValid(), "timestamp range start must not be after its end")
	return catcher.Resolve()
}

// Validate checks that the options name a collection and carry valid
// results.
func (opts InsertOptions) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(opts.Collection == "", "must specify a collection")
	catcher.NewWhen(len(opts.Results) == 0, "must specify at least one result")
	for idx := range opts.Results {
		catcher.Wrapf(opts.Results[idx].Validate(), "invalid result at index %d", idx)
	}
	return catcher.Resolve()
}

// DataStore stores results partitioned by profile. Every operation connects
// to the database first and always disconnects afterwards.
type DataStore struct {
	db Database
}

// NewDataStore wraps a database.
func NewDataStore(db Database) *DataStore { return &DataStore{db: db} }

// Insert stores the records in the profile's collection.
func (s *DataStore) Insert(ctx context.Context, profile string, records ...ResultRecord) error {
	opts := InsertOptions{Collection: profile, Results: records}
	if err := opts.Validate(); err != nil {
		return errors.Wrap(err, "invalid insert")
	}

	return s.withConnection(ctx, "insert", profile, func(ctx context.Context) error {
		return errors.Wrapf(s.db.Insert(ctx, opts), "problem inserting results into '%s'", profile)
	})
}

// Get returns the records of the profile's collection within the range.
func (s *DataStore) Get(ctx context.Context, profile string, tr util.TimeRange) ([]ResultRecord, error) {
	opts := GetOptions{Collection: profile, TimestampFrom: tr.From, TimestampTo: tr.To}
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid query")
	}

	var out []ResultRecord
	err := s.withConnection(ctx, "get", profile, func(ctx context.Context) error {
		var err error
		out, err = s.db.Get(ctx, opts)
		return errors.Wrapf(err, "problem getting results from '%s'", profile)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []ResultRecord{}
	}

	return out, nil
}

func (s *DataStore) withConnection(ctx context.Context, op, profile string, fn func(context.Context) error) (err error) {
	if err = s.db.Connect(ctx); err != nil {
		return errors.Wrap(err, "problem connecting to database")
	}
	defer func() {
		if disconnectErr := s.db.Disconnect(ctx); disconnectErr != nil {
			grip.Warning(message.WrapError(disconnectErr, message.Fields{
				"message":    "problem disconnecting from database",
				"op":         op,
				"collection": profile,
			}))
		}
	}()

	return fn(ctx)
}
