package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
)

// ProjectRepository reads project ownership from the projects collection,
// which is owned by the wider platform.
type ProjectRepository struct {
	col *mongo.Collection
}

func NewProjectRepository(db *mongo.Database) *ProjectRepository {
	return &ProjectRepository{col: db.Collection(collectionProjects)}
}

type projectDocument struct {
	ProjectID int64 `bson:"project_id"`
	AgentID   int64 `bson:"agent_id,omitempty"`
	ClientID  int64 `bson:"client_id,omitempty"`
	CompanyID int64 `bson:"company_id,omitempty"`
}

func (r *ProjectRepository) FindProject(ctx context.Context, projectID int64) (*domain.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOne().SetProjection(bson.M{
		"project_id": 1, "agent_id": 1, "client_id": 1, "company_id": 1,
	})

	var doc projectDocument
	if err := r.col.FindOne(ctx, bson.M{"project_id": projectID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("find project %d: %w", projectID, err)
	}
	return &domain.Project{
		ID:        doc.ProjectID,
		AgentID:   doc.AgentID,
		ClientID:  doc.ClientID,
		CompanyID: doc.CompanyID,
	}, nil
}
