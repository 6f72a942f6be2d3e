package database

import (
	"context"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const connectTimeout = 10 * time.Second

// OpenMongo initializes and returns the shared MongoDB client.
// It reads the URI from the environment variable (or local fallback).
func OpenMongo() (*mongo.Client, error) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		// FALLBACK: local development instance.
		uri = "mongodb://127.0.0.1:27017"
	}
	return OpenMongoWithURI(uri)
}

// OpenMongoWithURI creates a client for any provided URI and verifies
// the connection with a ping before handing it out.
func OpenMongoWithURI(uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Printf("Error connecting to MongoDB at %s: %v", uri, err)
		return nil, err
	}

	log.Println("MongoDB connection established successfully")
	return client, nil
}

// Name returns the database name, overridable for test/staging setups.
func Name() string {
	if name := os.Getenv("MONGODB_DATABASE"); name != "" {
		return name
	}
	return "funnelboard"
}
