package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
)

// RelationshipRepository reads agent-client assignments.
type RelationshipRepository struct {
	col *mongo.Collection
}

func NewRelationshipRepository(db *mongo.Database) *RelationshipRepository {
	return &RelationshipRepository{col: db.Collection(collectionRelationships)}
}

type relationshipDocument struct {
	AgentID     int64    `bson:"agent_id"`
	ClientID    int64    `bson:"client_id"`
	Status      string   `bson:"status"`
	Permissions []string `bson:"permissions,omitempty"`
}

func (r *RelationshipRepository) ActiveRelationship(ctx context.Context, agentID, clientID int64) (*domain.AgentClientRelationship, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"agent_id":  agentID,
		"client_id": clientID,
		"status":    domain.RelationshipActive,
	}

	var doc relationshipDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find relationship %d->%d: %w", agentID, clientID, err)
	}
	return &domain.AgentClientRelationship{
		AgentID:     doc.AgentID,
		ClientID:    doc.ClientID,
		Status:      doc.Status,
		Permissions: doc.Permissions,
	}, nil
}
