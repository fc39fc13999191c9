package database

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultDatabase = "crm"

// Connect dials MongoDB and pings it. dbName wins over the database in the
// URI path; both empty selects "crm".
func Connect(mongoURI, dbName string) (*mongo.Client, *mongo.Database, error) {
	// Atlas connections can take a while on cold start
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(mongoURI).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, err
	}

	if dbName == "" {
		dbName = DatabaseFromURI(mongoURI)
	}
	return client, client.Database(dbName), nil
}

// DatabaseFromURI extracts the database segment of a connection string,
// e.g. mongodb://host:27017/crm?retryWrites=true -> crm.
func DatabaseFromURI(mongoURI string) string {
	rest := mongoURI
	if idx := strings.Index(rest, "://"); idx != -1 {
		rest = rest[idx+3:]
	}
	idx := strings.Index(rest, "/")
	if idx == -1 {
		return defaultDatabase
	}
	name := strings.SplitN(rest[idx+1:], "?", 2)[0]
	if name == "" {
		return defaultDatabase
	}
	return name
}

func Disconnect(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Disconnect(ctx)
}

// MaskURI hides the password of a connection string for logging.
func MaskURI(uri string) string {
	schemeEnd := strings.Index(uri, "://")
	at := strings.LastIndex(uri, "@")
	if schemeEnd == -1 || at == -1 || at < schemeEnd {
		return uri
	}
	creds := uri[schemeEnd+3 : at]
	colon := strings.Index(creds, ":")
	if colon == -1 {
		return uri
	}
	return uri[:schemeEnd+3] + creds[:colon] + ":***" + uri[at:]
}
