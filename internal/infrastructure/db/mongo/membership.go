package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProjectMemberSource checks the current membership shape: one document per
// (project_id, user_id) with an optional status field.
type ProjectMemberSource struct {
	col *mongo.Collection
}

func NewProjectMemberSource(db *mongo.Database) *ProjectMemberSource {
	return &ProjectMemberSource{col: db.Collection(collectionMembers)}
}

func (s *ProjectMemberSource) Name() string { return collectionMembers }

func (s *ProjectMemberSource) IsMember(ctx context.Context, projectID, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"project_id": projectID,
		"user_id":    userID,
		"$or": bson.A{
			bson.M{"status": bson.M{"$exists": false}},
			bson.M{"status": "active"},
		},
	}
	n, err := s.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count project members: %w", err)
	}
	return n > 0, nil
}

// TeamMemberSource checks the legacy shape: one team document per project
// with an embedded members array.
type TeamMemberSource struct {
	col *mongo.Collection
}

func NewTeamMemberSource(db *mongo.Database) *TeamMemberSource {
	return &TeamMemberSource{col: db.Collection(collectionTeams)}
}

func (s *TeamMemberSource) Name() string { return collectionTeams }

func (s *TeamMemberSource) IsMember(ctx context.Context, projectID, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"project_id": projectID,
		"members": bson.M{"$elemMatch": bson.M{
			"user_id":   userID,
			"is_active": bson.M{"$ne": false},
		}},
	}
	n, err := s.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count team members: %w", err)
	}
	return n > 0, nil
}
