package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
	"github.com/fusepoint/dashboard-service/internal/core/ports"
)

// DashboardRepository implements ports.DashboardRepository on the
// project_dashboards collection. The layout is stored as its canonical JSON
// string so documents round-trip exactly as the UI sent them.
type DashboardRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewDashboardRepository(db *mongo.Database) ports.DashboardRepository {
	return &DashboardRepository{db: db, col: db.Collection(collectionDashboards)}
}

type dashboardDocument struct {
	ProjectID int64     `bson:"project_id"`
	Layout    string    `bson:"layout"`
	Version   int64     `bson:"version"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
	UpdatedBy *int64    `bson:"updated_by,omitempty"`
}

// FindOrCreate reads the row and, when it is missing, upserts with
// $setOnInsert so a concurrent first read either inserts or observes the
// other reader's row. UpsertedCount tells the two apart.
func (r *DashboardRepository) FindOrCreate(ctx context.Context, projectID int64, defaults domain.Layout) (*domain.ProjectDashboard, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"project_id": projectID}
	var doc dashboardDocument
	err := r.col.FindOne(ctx, filter).Decode(&doc)
	if err == nil {
		d, err := doc.toDomain()
		return d, false, err
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("get dashboard %d: %w", projectID, err)
	}

	encoded, err := domain.EncodeLayout(defaults)
	if err != nil {
		return nil, false, err
	}
	now := time.Now().UTC()
	update := bson.M{"$setOnInsert": bson.M{
		"layout":     string(encoded),
		"version":    int64(1),
		"created_at": now,
		"updated_at": now,
	}}

	created := false
	res, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	switch {
	case err == nil:
		created = res.UpsertedCount == 1
	case mongo.IsDuplicateKeyError(err):
		// Lost the insert race; the winner's row is there now.
	default:
		return nil, false, fmt.Errorf("create dashboard %d: %w", projectID, err)
	}

	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, false, fmt.Errorf("get dashboard %d: %w", projectID, err)
	}
	d, err := doc.toDomain()
	return d, created, err
}

// Save applies the write as one conditional findAndModify. With an expected
// version the filter pins the version, so two writers holding the same
// version cannot both match.
func (r *DashboardRepository) Save(ctx context.Context, projectID int64, layout domain.Layout, actorID int64, expectedVersion *int64) (*domain.ProjectDashboard, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	encoded, err := domain.EncodeLayout(layout)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"layout":     string(encoded),
			"updated_at": now,
			"updated_by": actorID,
		},
		"$inc":         bson.M{"version": int64(1)},
		"$setOnInsert": bson.M{"created_at": now},
	}

	if expectedVersion == nil {
		return r.upsert(ctx, projectID, update)
	}

	filter := bson.M{"project_id": projectID, "version": *expectedVersion}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc dashboardDocument
	err = r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toDomain()
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("save dashboard %d: %w", projectID, err)
	}

	// No row at the expected version: either the row is missing (insert at
	// version 1) or another writer moved it on (conflict).
	by := actorID
	fresh := dashboardDocument{
		ProjectID: projectID,
		Layout:    string(encoded),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		UpdatedBy: &by,
	}
	if _, err := r.col.InsertOne(ctx, fresh); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, r.conflict(ctx, projectID, *expectedVersion)
		}
		return nil, fmt.Errorf("insert dashboard %d: %w", projectID, err)
	}
	return fresh.toDomain()
}

func (r *DashboardRepository) upsert(ctx context.Context, projectID int64, update bson.M) (*domain.ProjectDashboard, error) {
	filter := bson.M{"project_id": projectID}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc dashboardDocument
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent upsert inserted first; the retry takes the update path.
		err = r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert dashboard %d: %w", projectID, err)
	}
	return doc.toDomain()
}

func (r *DashboardRepository) conflict(ctx context.Context, projectID, expected int64) error {
	conflict := &domain.VersionConflictError{ProjectID: projectID, Expected: expected}

	var current struct {
		Version int64 `bson:"version"`
	}
	opts := options.FindOne().SetProjection(bson.M{"version": 1})
	if err := r.col.FindOne(ctx, bson.M{"project_id": projectID}, opts).Decode(&current); err == nil {
		conflict.Current = current.Version
	}
	return conflict
}

// ListProjectsWithoutDashboard joins projects against project_dashboards and
// keeps the ones with no match.
func (r *DashboardRepository) ListProjectsWithoutDashboard(ctx context.Context) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: collectionDashboards},
			{Key: "localField", Value: "project_id"},
			{Key: "foreignField", Value: "project_id"},
			{Key: "as", Value: "dashboard"},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "dashboard", Value: bson.D{{Key: "$size", Value: 0}}}}}},
		{{Key: "$project", Value: bson.D{{Key: "_id", Value: 0}, {Key: "project_id", Value: 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "project_id", Value: 1}}}},
	}

	cur, err := r.db.Collection(collectionProjects).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("list projects without dashboard: %w", err)
	}
	defer cur.Close(ctx)

	var ids []int64
	for cur.Next(ctx) {
		var row struct {
			ProjectID int64 `bson:"project_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode project id: %w", err)
		}
		ids = append(ids, row.ProjectID)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return ids, nil
}

func (d dashboardDocument) toDomain() (*domain.ProjectDashboard, error) {
	layout, err := domain.DecodeLayout([]byte(d.Layout))
	if err != nil {
		return nil, fmt.Errorf("dashboard %d: %w", d.ProjectID, err)
	}
	return &domain.ProjectDashboard{
		ProjectID: d.ProjectID,
		Layout:    layout,
		Version:   d.Version,
		UpdatedAt: d.UpdatedAt,
		UpdatedBy: d.UpdatedBy,
	}, nil
}
