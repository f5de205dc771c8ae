// Package mongostore adapts a MongoDB deployment to the store
// collaborator boundary using the official driver. Filters, update
// operators, and pipelines are handed to the driver unmodified.
package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/vellumdb/vellum/store"
)

// Store wraps a connected client and a target database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    *zap.SugaredLogger
}

// Connect establishes a client with the given connect timeout and
// verifies the deployment is reachable. Driver errors propagate as-is
// so callers can apply driver-specific recovery.
func Connect(ctx context.Context, uri, database string, timeout time.Duration, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(timeout))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	log.Infow("connected to document store", "database", database)
	return &Store{client: client, db: client.Database(database), log: log}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	s.log.Infow("disconnecting from document store", "database", s.db.Name())
	return s.client.Disconnect(ctx)
}

// Collection returns the adapter for a named collection.
func (s *Store) Collection(name string) store.Collection {
	return &Collection{
		name: name,
		db:   s.db,
		coll: s.db.Collection(name),
		log:  s.log,
	}
}

// Collection adapts one mongo collection to the collaborator contract.
type Collection struct {
	name string
	db   *mongo.Database
	coll *mongo.Collection
	log  *zap.SugaredLogger
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// ValidatorSchema reads the collection's validator from the deployment
// catalog. The result preserves field declaration order (bson.D); a
// collection without a validator yields nil, not an error.
func (c *Collection) ValidatorSchema(ctx context.Context) (interface{}, error) {
	specs, err := c.db.ListCollectionSpecifications(ctx, bson.M{"name": c.name})
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 || len(specs[0].Options) == 0 {
		return nil, nil
	}

	raw, err := specs[0].Options.LookupErr("validator")
	if err != nil {
		return nil, nil
	}
	doc, ok := raw.DocumentOK()
	if !ok {
		return nil, nil
	}

	var validator bson.D
	if err := bson.Unmarshal(doc, &validator); err != nil {
		return nil, err
	}
	return validator, nil
}

// NewID generates a driver ObjectID.
func (c *Collection) NewID() interface{} {
	return primitive.NewObjectID()
}

func (c *Collection) InsertOne(ctx context.Context, doc map[string]interface{}) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return err
}

func (c *Collection) InsertMany(ctx context.Context, docs []map[string]interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]interface{}, len(docs))
	for i, doc := range docs {
		batch[i] = doc
	}
	_, err := c.coll.InsertMany(ctx, batch)
	return err
}

func (c *Collection) ReplaceOne(ctx context.Context, filter, doc map[string]interface{}, upsert bool) error {
	_, err := c.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(upsert))
	return err
}

// BulkReplace issues a single ordered bulk write of upserting
// replacements keyed on _id.
func (c *Collection) BulkReplace(ctx context.Context, docs []map[string]interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc["_id"]}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	c.log.Debugw("bulk replace", "collection", c.name, "count", len(models))
	_, err := c.coll.BulkWrite(ctx, models)
	return err
}

func (c *Collection) UpdateOne(ctx context.Context, filter, update map[string]interface{}) (int64, error) {
	res, err := c.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (c *Collection) UpdateMany(ctx context.Context, filter, update map[string]interface{}) (int64, error) {
	res, err := c.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (c *Collection) FindOneAndUpdate(ctx context.Context, filter, update map[string]interface{}) (map[string]interface{}, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	res := c.coll.FindOneAndUpdate(ctx, filter, update, opts)

	var doc bson.M
	if err := res.Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

func (c *Collection) DeleteOne(ctx context.Context, filter map[string]interface{}) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *Collection) DeleteMany(ctx context.Context, filter map[string]interface{}) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *Collection) FindOne(ctx context.Context, filter map[string]interface{}) (map[string]interface{}, error) {
	var doc bson.M
	if err := c.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

func (c *Collection) Find(ctx context.Context, filter map[string]interface{}, opts store.FindOptions) ([]map[string]interface{}, error) {
	findOpts := options.Find()
	if opts.Projection != nil {
		findOpts.SetProjection(opts.Projection)
	}
	if len(opts.Sort) > 0 {
		sort := make(bson.D, 0, len(opts.Sort))
		for _, s := range opts.Sort {
			sort = append(sort, bson.E{Key: s.Field, Value: s.Order})
		}
		findOpts.SetSort(sort)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}

	cursor, err := c.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeAll(ctx, cursor)
}

func (c *Collection) Count(ctx context.Context, filter map[string]interface{}) (int64, error) {
	return c.coll.CountDocuments(ctx, filter)
}

func (c *Collection) Aggregate(ctx context.Context, pipeline []map[string]interface{}) ([]map[string]interface{}, error) {
	cursor, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeAll(ctx, cursor)
}

func decodeAll(ctx context.Context, cursor *mongo.Cursor) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
