package db

import (
	"github.com/evergreen-ci/speedtracker/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// resultsFilter builds the timestamp filter for a results query. Open
// bounds add no condition.
func resultsFilter(opts model.GetOptions) bson.M {
	filter := bson.M{}
	bounds := bson.M{}

	if opts.TimestampFrom != nil {
		bounds["$gte"] = *opts.TimestampFrom
	}
	if opts.TimestampTo != nil {
		bounds["$lte"] = *opts.TimestampTo
	}
	if len(bounds) > 0 {
		filter[model.ResultRecordTimestampKey] = bounds
	}

	return filter
}

func resultsFindOptions() *options.FindOptions {
	return options.Find().SetSort(bson.D{
		{Key: model.ResultRecordTimestampKey, Value: 1},
		{Key: model.ResultRecordIDKey, Value: 1},
	})
}
