package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on. Called on
// startup after Mongo has connected.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("idx_users_email").SetUnique(true),
			},
		},
		ContactsCollection: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "isDeleted", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("idx_contacts_owner_created"),
			},
			{
				Keys: bson.D{{Key: "userId", Value: 1}, {Key: "email", Value: 1}},
				Options: options.Index().
					SetName("idx_contacts_owner_email_live").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{
						"isDeleted": false,
						"email":     bson.M{"$type": "string"},
					}),
			},
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "tags", Value: 1}},
				Options: options.Index().SetName("idx_contacts_owner_tags"),
			},
		},
		LeadsCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("idx_leads_email").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("idx_leads_status_created"),
			},
			{
				Keys:    bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("idx_leads_creator_created"),
			},
			{
				Keys:    bson.D{{Key: "assignedTo", Value: 1}},
				Options: options.Index().SetName("idx_leads_assignee"),
			},
		},
		TasksCollection: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "dueDate", Value: 1}},
				Options: options.Index().SetName("idx_tasks_owner_due"),
			},
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}},
				Options: options.Index().SetName("idx_tasks_owner_status"),
			},
		},
		DashboardStatsCollection: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}},
				Options: options.Index().SetName("idx_dashboard_user").SetUnique(true),
			},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
