package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hiroki-koketsu/taskboard/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MongoConfig configures the MongoDB task store.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// MongoStore keeps one document per task in a MongoDB collection.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

// NewMongoStore connects to MongoDB, verifies the connection and ensures the
// owner listing index exists.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	s := &MongoStore{
		client:  client,
		coll:    client.Database(cfg.Database).Collection(cfg.Collection),
		timeout: cfg.Timeout,
	}

	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	ictx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	_, err = s.coll.Indexes().CreateOne(ictx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create owner index: %w", err)
	}

	return s, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Find returns the owner's tasks matching c, newest first.
func (s *MongoStore) Find(ctx context.Context, owner string, c model.Criteria) ([]*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoStore.Find",
		trace.WithAttributes(attribute.String("task.owner", owner)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.coll.Find(ctx, ownerFilter(owner, c), opts)
	if err != nil {
		span.RecordError(err)
		return nil, model.Unavailable("find tasks", err)
	}

	tasks := make([]*model.Task, 0)
	if err := cur.All(ctx, &tasks); err != nil {
		span.RecordError(err)
		return nil, model.Unavailable("decode tasks", err)
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// FindByID retrieves a task by its ID.
func (s *MongoStore) FindByID(ctx context.Context, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoStore.FindByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var task model.Task
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, model.Unavailable("find task", err)
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return &task, nil
}

// Insert stores a new task document.
func (s *MongoStore) Insert(ctx context.Context, task *model.Task) error {
	ctx, span := tracer.Start(ctx, "MongoStore.Insert",
		trace.WithAttributes(attribute.String("task.id", task.ID)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.coll.InsertOne(ctx, task); err != nil {
		span.RecordError(err)
		return model.Unavailable("insert task", err)
	}
	return nil
}

// Update sets only the supplied fields in a single write.
func (s *MongoStore) Update(ctx context.Context, id string, req model.UpdateTaskRequest, at time.Time) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoStore.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	update := bson.D{{Key: "$set", Value: updateFields(req, at)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var task model.Task
	err := s.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update, opts).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, model.Unavailable("update task", err)
	}
	return &task, nil
}

// CompareAndSetStatus updates the status in a single conditional write.
func (s *MongoStore) CompareAndSetStatus(ctx context.Context, id string, from, to model.Status, at time.Time) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoStore.CompareAndSetStatus",
		trace.WithAttributes(
			attribute.String("task.id", id),
			attribute.String("task.status.from", string(from)),
			attribute.String("task.status.to", string(to)),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.D{{Key: "_id", Value: id}, {Key: "status", Value: from}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: to},
		{Key: "updated_at", Value: at},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var task model.Task
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&task)
	if err == nil {
		return &task, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		span.RecordError(err)
		return nil, model.Unavailable("update task status", err)
	}

	n, err := s.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}}, options.Count().SetLimit(1))
	if err != nil {
		span.RecordError(err)
		return nil, model.Unavailable("find task", err)
	}
	if n == 0 {
		return nil, model.ErrTaskNotFound
	}
	span.SetAttributes(attribute.Bool("task.conflict", true))
	return nil, model.ErrConflict
}

// Delete removes a task document.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "MongoStore.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		span.RecordError(err)
		return model.Unavailable("delete task", err)
	}
	if res.DeletedCount == 0 {
		span.SetAttributes(attribute.Bool("task.found", false))
		return model.ErrTaskNotFound
	}
	return nil
}

// Count returns the estimated number of task documents.
func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, model.Unavailable("count tasks", err)
	}
	return n, nil
}

// Ping checks that the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return model.Unavailable("ping mongodb", err)
	}
	return nil
}

// ownerFilter always scopes by owner; search text is matched literally.
func ownerFilter(owner string, c model.Criteria) bson.D {
	filter := bson.D{{Key: "owner", Value: owner}}

	if c.Priority != "" && c.Priority != model.FilterAll {
		filter = append(filter, bson.E{Key: "priority", Value: c.Priority})
	}
	if c.Status != "" && c.Status != model.FilterAll {
		filter = append(filter, bson.E{Key: "status", Value: c.Status})
	}
	if c.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(c.Search), Options: "i"}
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: re}},
			bson.D{{Key: "description", Value: re}},
		}})
	}

	return filter
}

// updateFields builds the $set document for the fields present in req.
func updateFields(req model.UpdateTaskRequest, at time.Time) bson.D {
	set := bson.D{}
	if req.Title != nil {
		set = append(set, bson.E{Key: "title", Value: strings.TrimSpace(*req.Title)})
	}
	if req.Description != nil {
		set = append(set, bson.E{Key: "description", Value: strings.TrimSpace(*req.Description)})
	}
	if req.Priority != nil {
		set = append(set, bson.E{Key: "priority", Value: *req.Priority})
	}
	if req.Status != nil {
		set = append(set, bson.E{Key: "status", Value: *req.Status})
	}
	if req.DueDate != nil {
		set = append(set, bson.E{Key: "due_date", Value: *req.DueDate})
	}
	return append(set, bson.E{Key: "updated_at", Value: at})
}
