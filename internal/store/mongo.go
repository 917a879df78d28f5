package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/model"
)

// Collection names.
const (
	plansCollection    = "plans"
	tasksCollection    = "tasks"
	progressCollection = "progress_logs"
)

// MongoStore implements the Store interface on MongoDB. Multi-document
// writes use transactions, so the server must be a replica set or sharded
// cluster.
type MongoStore struct {
	client   *mongo.Client
	plans    *mongo.Collection
	tasks    *mongo.Collection
	progress *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

type planDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"user_id"`
	Title       string             `bson:"title"`
	PlanType    string             `bson:"plan_type"`
	Description string             `bson:"description"`
	StartDate   time.Time          `bson:"start_date"`
	EndDate     time.Time          `bson:"end_date"`
	CreatedAt   time.Time          `bson:"created_at"`
	IsActive    bool               `bson:"is_active"`
}

func (d planDoc) model() model.Plan {
	return model.Plan{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Title:       d.Title,
		PlanType:    model.PlanType(d.PlanType),
		Description: d.Description,
		StartDate:   d.StartDate.UTC(),
		EndDate:     d.EndDate.UTC(),
		CreatedAt:   d.CreatedAt.UTC(),
		IsActive:    d.IsActive,
	}
}

type taskDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	PlanID       string             `bson:"plan_id"`
	Title        string             `bson:"title"`
	Description  string             `bson:"description"`
	TargetDate   time.Time          `bson:"target_date"`
	Status       string             `bson:"status"`
	Unit         string             `bson:"unit"`
	TargetValue  float64            `bson:"target_value"`
	CurrentValue float64            `bson:"current_value"`
	Memo         string             `bson:"memo"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func (d taskDoc) model() model.Task {
	return model.Task{
		ID:           d.ID.Hex(),
		PlanID:       d.PlanID,
		Title:        d.Title,
		Description:  d.Description,
		TargetDate:   d.TargetDate.UTC(),
		Status:       model.TaskStatus(d.Status),
		Unit:         d.Unit,
		TargetValue:  d.TargetValue,
		CurrentValue: d.CurrentValue,
		Memo:         d.Memo,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

type progressDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	TaskID    string             `bson:"task_id"`
	UserID    string             `bson:"user_id"`
	Date      time.Time          `bson:"date"`
	Status    string             `bson:"status"`
	Value     *float64           `bson:"value"`
	Note      string             `bson:"note"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d progressDoc) model() model.ProgressLog {
	return model.ProgressLog{
		ID:        d.ID.Hex(),
		TaskID:    d.TaskID,
		UserID:    d.UserID,
		Date:      d.Date.UTC(),
		Status:    model.TaskStatus(d.Status),
		Value:     d.Value,
		Note:      d.Note,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// NewMongoStore connects to uri, verifies the connection, and ensures the
// indexes used by plan and task lookups exist.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		plans:    db.Collection(plansCollection),
		tasks:    db.Collection(tasksCollection),
		progress: db.Collection(progressCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll *mongo.Collection
		keys bson.D
	}{
		{s.plans, bson.D{{Key: "user_id", Value: 1}, {Key: "is_active", Value: 1}}},
		{s.tasks, bson.D{{Key: "plan_id", Value: 1}, {Key: "status", Value: 1}}},
		{s.progress, bson.D{{Key: "task_id", Value: 1}, {Key: "date", Value: 1}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: idx.keys}); err != nil {
			return storageErr(err, "creating index on %s", idx.coll.Name())
		}
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// parseObjectID converts a hex id. Malformed ids cannot name a stored
// document, so they report ErrNotFound.
func parseObjectID(kind, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%s %s: %w", kind, id, apperrors.ErrNotFound)
	}
	return oid, nil
}

func mongoLookupErr(err error, kind, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", kind, id, apperrors.ErrNotFound)
	}
	return storageErr(err, "getting %s %s", kind, id)
}

// CreatePlan inserts a new plan document.
func (s *MongoStore) CreatePlan(ctx context.Context, plan model.Plan) (model.Plan, error) {
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	doc := planDoc{
		ID:          primitive.NewObjectID(),
		UserID:      plan.UserID,
		Title:       plan.Title,
		PlanType:    string(plan.PlanType),
		Description: plan.Description,
		StartDate:   plan.StartDate.UTC(),
		EndDate:     plan.EndDate.UTC(),
		CreatedAt:   plan.CreatedAt.UTC(),
		IsActive:    plan.IsActive,
	}
	if _, err := s.plans.InsertOne(ctx, doc); err != nil {
		return model.Plan{}, storageErr(err, "creating plan")
	}
	return doc.model(), nil
}

// GetPlanByID retrieves a single plan.
func (s *MongoStore) GetPlanByID(ctx context.Context, id string) (*model.Plan, error) {
	oid, err := parseObjectID("plan", id)
	if err != nil {
		return nil, err
	}
	var doc planDoc
	if err := s.plans.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mongoLookupErr(err, "plan", id)
	}
	plan := doc.model()
	return &plan, nil
}

// GetPlans retrieves plans matching filter, newest first.
func (s *MongoStore) GetPlans(ctx context.Context, filter PlanFilter) ([]model.Plan, error) {
	q := bson.M{}
	if filter.UserID != "" {
		q["user_id"] = filter.UserID
	}
	if filter.ActiveOnly {
		q["is_active"] = true
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.plans.Find(ctx, q, opts)
	if err != nil {
		return nil, storageErr(err, "querying plans")
	}
	var docs []planDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr(err, "reading plans")
	}

	plans := make([]model.Plan, 0, len(docs))
	for _, d := range docs {
		plans = append(plans, d.model())
	}
	return plans, nil
}

// CreateTasks inserts a batch of tasks in one transaction.
func (s *MongoStore) CreateTasks(ctx context.Context, tasks []model.Task) ([]model.Task, error) {
	if len(tasks) == 0 {
		return []model.Task{}, nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(tasks))
	saved := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.Status == "" {
			t.Status = model.TaskStatusPending
		}
		doc := taskDoc{
			ID:           primitive.NewObjectID(),
			PlanID:       t.PlanID,
			Title:        t.Title,
			Description:  t.Description,
			TargetDate:   t.TargetDate.UTC(),
			Status:       string(t.Status),
			Unit:         t.Unit,
			TargetValue:  t.TargetValue,
			CurrentValue: t.CurrentValue,
			Memo:         t.Memo,
			CreatedAt:    t.CreatedAt.UTC(),
		}
		docs = append(docs, doc)
		saved = append(saved, doc.model())
	}

	err := s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		_, err := s.tasks.InsertMany(sc, docs)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "inserting %d tasks", len(tasks))
	}
	return saved, nil
}

// GetTaskByID retrieves a single task.
func (s *MongoStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	oid, err := parseObjectID("task", id)
	if err != nil {
		return nil, err
	}
	var doc taskDoc
	if err := s.tasks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mongoLookupErr(err, "task", id)
	}
	task := doc.model()
	return &task, nil
}

// GetTasks retrieves tasks matching filter in insertion order.
func (s *MongoStore) GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	if filter.PlanIDs != nil && len(filter.PlanIDs) == 0 {
		return []model.Task{}, nil
	}

	q := bson.M{}
	if len(filter.PlanIDs) > 0 {
		q["plan_id"] = bson.M{"$in": filter.PlanIDs}
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		q["status"] = bson.M{"$in": statuses}
	}

	cur, err := s.tasks.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, storageErr(err, "querying tasks")
	}
	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr(err, "reading tasks")
	}

	tasks := make([]model.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.model())
	}
	return tasks, nil
}

// UpdateTask applies the non-nil fields of update to a task.
func (s *MongoStore) UpdateTask(ctx context.Context, id string, update TaskUpdate) (*model.Task, error) {
	if update.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", apperrors.ErrInvalidInput)
	}
	oid, err := parseObjectID("task", id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if update.Status != nil {
		set["status"] = string(*update.Status)
	}
	if update.CurrentValue != nil {
		set["current_value"] = *update.CurrentValue
	}
	if update.Memo != nil {
		set["memo"] = *update.Memo
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc taskDoc
	err = s.tasks.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		return nil, mongoLookupErr(err, "task", id)
	}
	task := doc.model()
	return &task, nil
}

// RecordProgress inserts a progress log and optionally updates the task in
// one transaction.
func (s *MongoStore) RecordProgress(
	ctx context.Context,
	log model.ProgressLog,
	applyToTask bool,
) (model.ProgressLog, error) {
	var taskOID primitive.ObjectID
	if applyToTask {
		oid, err := parseObjectID("task", log.TaskID)
		if err != nil {
			return model.ProgressLog{}, err
		}
		taskOID = oid
	}

	now := time.Now().UTC()
	if log.Date.IsZero() {
		log.Date = now
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	doc := progressDoc{
		ID:        primitive.NewObjectID(),
		TaskID:    log.TaskID,
		UserID:    log.UserID,
		Date:      log.Date.UTC(),
		Status:    string(log.Status),
		Value:     log.Value,
		Note:      log.Note,
		CreatedAt: log.CreatedAt.UTC(),
	}

	err := s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := s.progress.InsertOne(sc, doc); err != nil {
			return storageErr(err, "inserting progress log for task %s", log.TaskID)
		}
		if !applyToTask {
			return nil
		}

		set := bson.M{"status": string(log.Status)}
		if log.Value != nil {
			set["current_value"] = *log.Value
		}
		res, err := s.tasks.UpdateOne(sc, bson.M{"_id": taskOID}, bson.M{"$set": set})
		if err != nil {
			return storageErr(err, "updating task %s", log.TaskID)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("task %s: %w", log.TaskID, apperrors.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return model.ProgressLog{}, err
		}
		return model.ProgressLog{}, apperrors.Mark(err, apperrors.ErrStorage)
	}
	return doc.model(), nil
}

// GetProgressLogs retrieves a task's progress logs, oldest first.
func (s *MongoStore) GetProgressLogs(ctx context.Context, taskID string) ([]model.ProgressLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.progress.Find(ctx, bson.M{"task_id": taskID}, opts)
	if err != nil {
		return nil, storageErr(err, "querying progress logs for task %s", taskID)
	}
	var docs []progressDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr(err, "reading progress logs for task %s", taskID)
	}

	logs := make([]model.ProgressLog, 0, len(docs))
	for _, d := range docs {
		logs = append(logs, d.model())
	}
	return logs, nil
}

// withTransaction runs fn inside a session transaction.
func (s *MongoStore) withTransaction(ctx context.Context, fn func(mongo.SessionContext) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
