package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
	"github.com/matzehuels/patchcanvas/pkg/errors"
)

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "mutations"

// Collection is the subset of *mongo.Collection the journal uses.
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// document is the stored form of an [Entry]. The mutation is kept as its
// JSON text so the checksum covers exactly what was written.
type document struct {
	Session  string    `bson:"session"`
	Seq      int64     `bson:"seq"`
	Time     time.Time `bson:"time"`
	Mutation string    `bson:"mutation"`
	Sum      string    `bson:"sum"`
}

// MongoJournal stores entries in a MongoDB collection, one document per
// mutation, scoped to a session name.
type MongoJournal struct {
	mu      sync.Mutex
	coll    Collection
	session string
	seq     int64
	closer  func(context.Context) error
	closed  bool
}

// DialMongo connects to uri and opens a journal on the given database and
// collection. An empty collection uses [DefaultCollection].
func DialMongo(ctx context.Context, uri, database, collection, session string) (*MongoJournal, error) {
	if uri == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo uri is empty")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	var client *mongo.Client
	err := RetryWithBackoff(ctx, func() error {
		c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		if err := c.Ping(ctx, nil); err != nil {
			_ = c.Disconnect(ctx)
			return Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	j, err := NewMongoJournal(ctx, client.Database(database).Collection(collection), session)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	j.closer = client.Disconnect
	return j, nil
}

// NewMongoJournal opens a journal on an existing collection. Numbering
// continues after the entries the session already has.
func NewMongoJournal(ctx context.Context, coll Collection, session string) (*MongoJournal, error) {
	n, err := coll.CountDocuments(ctx, bson.D{{Key: "session", Value: session}})
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	return &MongoJournal{coll: coll, session: session, seq: n}, nil
}

// Session returns the session name entries are scoped to.
func (j *MongoJournal) Session() string { return j.session }

// Append inserts m as a new document. Network failures are retried.
func (j *MongoJournal) Append(ctx context.Context, m canvas.Mutation) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}

	e, data, err := newEntry(j.seq+1, m)
	if err != nil {
		return err
	}
	doc := document{Session: j.session, Seq: e.Seq, Time: e.Time, Mutation: string(data), Sum: e.Sum}
	err = RetryWithBackoff(ctx, func() error {
		_, err := j.coll.InsertOne(ctx, doc)
		if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
			return Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
		}
		return err
	})
	if err != nil {
		return err
	}
	j.seq = e.Seq
	return nil
}

// Entries returns the session's entries ordered by sequence number.
// Documents that fail to decode or verify are skipped.
func (j *MongoJournal) Entries(ctx context.Context) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, ErrClosed
	}

	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cur, err := j.coll.Find(ctx, bson.D{{Key: "session", Value: j.session}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find entries: %w", err)
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}

	entries := make([]Entry, 0, len(docs))
	for _, d := range docs {
		if hash([]byte(d.Mutation)) != d.Sum {
			continue
		}
		var m canvas.Mutation
		if err := json.Unmarshal([]byte(d.Mutation), &m); err != nil {
			continue
		}
		entries = append(entries, Entry{Seq: d.Seq, Time: d.Time, Mutation: m, Sum: d.Sum})
	}
	return entries, nil
}

// Close disconnects the client if the journal dialed it.
func (j *MongoJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if j.closer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return j.closer(ctx)
}

// Ensure MongoJournal implements Journal.
var _ Journal = (*MongoJournal)(nil)
