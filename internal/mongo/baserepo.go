package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config locates the database. Zero fields fall back to local defaults.
type Config struct {
	URL      string
	Database string
	Timeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = "mongodb://localhost:27017"
	}
	if c.Database == "" {
		c.Database = "dinein"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// ConfigFrom reads the db.mongo.* keys.
func ConfigFrom(config *apt.Config) Config {
	return Config{
		URL:      config.GetStringOrDef("db.mongo.url", ""),
		Database: config.GetStringOrDef("db.mongo.name", ""),
		Timeout:  config.GetDurationOrDef("db.mongo.timeout", 0),
	}
}

// BaseRepo owns the mongo client shared by the key/value store, the seed
// tracker and the operator commands.
type BaseRepo struct {
	cfg    Config
	client *mongo.Client
	db     *mongo.Database
	logger apt.Logger
}

func NewBaseRepo(cfg Config, logger apt.Logger) *BaseRepo {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &BaseRepo{cfg: cfg.withDefaults(), logger: logger}
}

// Start connects and pings; a client that cannot ping is released.
func (r *BaseRepo) Start(ctx context.Context) error {
	opts := options.Client().ApplyURI(r.cfg.URL).
		SetConnectTimeout(r.cfg.Timeout).
		SetServerSelectionTimeout(r.cfg.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("cannot connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("cannot ping mongo: %w", err)
	}

	r.client = client
	r.db = client.Database(r.cfg.Database)
	r.logger.Info("connected to mongo", "database", r.cfg.Database)
	return nil
}

func (r *BaseRepo) Stop(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("cannot disconnect from mongo: %w", err)
	}
	r.client, r.db = nil, nil
	r.logger.Info("disconnected from mongo")
	return nil
}

func (r *BaseRepo) GetDatabase() *mongo.Database {
	return r.db
}

// DropDatabase removes the configured database. Only the operator CLI calls it.
func (r *BaseRepo) DropDatabase(ctx context.Context) error {
	if r.db == nil {
		return errors.New("mongo not started")
	}
	if err := r.db.RunCommand(ctx, bson.D{{Key: "dropDatabase", Value: 1}}).Err(); err != nil {
		return fmt.Errorf("cannot drop database %s: %w", r.db.Name(), err)
	}
	r.logger.Info("database dropped", "database", r.db.Name())
	return nil
}
