package ledger

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BitcoinSchema/go-zk-attest/types"
)

// MongoBook stores records in a MongoDB collection.
type MongoBook struct {
	coll *mongo.Collection
}

// NewMongoBook wraps coll and makes sure its indexes exist.
func NewMongoBook(ctx context.Context, coll *mongo.Collection) (*MongoBook, error) {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "proofHash", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "issuer", Value: 1}}},
		{Keys: bson.D{{Key: "recordedAt", Value: -1}}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating record indexes")
	}
	return &MongoBook{coll: coll}, nil
}

func (b *MongoBook) Insert(ctx context.Context, rec *Record) error {
	doc := *rec
	doc.Issuer = types.NormalizeAddress(rec.Issuer)
	if _, err := b.coll.InsertOne(ctx, doc); mongo.IsDuplicateKeyError(err) {
		return errors.Wrap(ErrDuplicateRecord, rec.Id)
	} else if err != nil {
		return errors.Wrap(err, "inserting record")
	}
	return nil
}

func (b *MongoBook) Get(ctx context.Context, id string) (*Record, error) {
	rec := &Record{}
	if err := b.coll.FindOne(ctx, bson.M{"_id": id}).Decode(rec); err == mongo.ErrNoDocuments {
		return nil, errors.Wrap(ErrClaimNotFound, id)
	} else if err != nil {
		return nil, errors.Wrap(err, "finding record")
	}
	return rec, nil
}

func (b *MongoBook) Last(ctx context.Context) (*Record, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "recordedAt", Value: -1}, {Key: "sequence", Value: -1}})
	rec := &Record{}
	if err := b.coll.FindOne(ctx, bson.M{}, opts).Decode(rec); err == mongo.ErrNoDocuments {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "finding last record")
	}
	return rec, nil
}

func (b *MongoBook) HasProofHash(ctx context.Context, proofHash string) (bool, error) {
	n, err := b.coll.CountDocuments(ctx, bson.M{"proofHash": proofHash}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "counting proof hashes")
	}
	return n > 0, nil
}

func (b *MongoBook) CountByIssuer(ctx context.Context, issuer string) (uint64, error) {
	n, err := b.coll.CountDocuments(ctx, bson.M{"issuer": types.NormalizeAddress(issuer)})
	if err != nil {
		return 0, errors.Wrap(err, "counting issuer records")
	}
	return uint64(n), nil
}
