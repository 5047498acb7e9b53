package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mission-control/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const defaultMongoDatabase = "nasa"

type mongoStore struct {
	client   *mongo.Client
	database string
	launches *mongo.Collection
	planets  *mongo.Collection
	counters *mongo.Collection
	log      logrus.FieldLogger
}

func newMongo(ctx context.Context, connStr string, logger logrus.FieldLogger) (*mongoStore, error) {
	name, err := mongoDatabaseName(connStr)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connStr))
	if err != nil {
		return nil, fmt.Errorf("opening mongodb : %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("connecting to mongodb : %w", err)
	}

	s := newMongoStore(client.Database(name), logger)
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	logger.WithField("database", name).Info("MongoDB connection is ready")
	return s, nil
}

func newMongoStore(db *mongo.Database, logger logrus.FieldLogger) *mongoStore {
	return &mongoStore{
		client:   db.Client(),
		database: db.Name(),
		launches: db.Collection("launches"),
		planets:  db.Collection("planets"),
		counters: db.Collection("counters"),
		log:      logger,
	}
}

// mongoDatabaseName returns the database named in the connection string
// path, falling back to defaultMongoDatabase.
func mongoDatabaseName(connStr string) (string, error) {
	cs, err := connstring.ParseAndValidate(connStr)
	if err != nil {
		return "", fmt.Errorf("parsing mongodb url : %w", err)
	}
	if cs.Database == "" {
		return defaultMongoDatabase, nil
	}
	return cs.Database, nil
}

func (s *mongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.launches.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "flightNumber", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating launches index : %w", err)
	}

	_, err = s.planets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "kepler_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating planets index : %w", err)
	}
	return nil
}

func (s *mongoStore) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		s.log.WithError(err).Error("Database health check failed")
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["database"] = s.database
	stats["open_sessions"] = fmt.Sprint(s.client.NumberSessionsInProgress())
	return stats
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.log.WithField("database", s.database).Info("Disconnected from database")
	return s.client.Disconnect(ctx)
}

func (s *mongoStore) GetLaunch(ctx context.Context, flightNumber int) (*models.Launch, error) {
	var launch models.Launch
	err := s.launches.FindOne(ctx, bson.D{{Key: "flightNumber", Value: flightNumber}}).Decode(&launch)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting launch %d : %w", flightNumber, err)
	}
	return &launch, nil
}

func (s *mongoStore) GetLaunches(ctx context.Context, skip, limit int) ([]models.Launch, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "flightNumber", Value: 1}}).
		SetProjection(bson.D{{Key: "_id", Value: 0}}).
		SetSkip(int64(skip))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.launches.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing launches : %w", err)
	}

	launches := []models.Launch{}
	if err := cursor.All(ctx, &launches); err != nil {
		return nil, fmt.Errorf("decoding launches : %w", err)
	}
	return launches, nil
}

func (s *mongoStore) LatestFlightNumber(ctx context.Context) (int, error) {
	var latest models.Launch
	opts := options.FindOne().SetSort(bson.D{{Key: "flightNumber", Value: -1}})
	err := s.launches.FindOne(ctx, bson.D{}, opts).Decode(&latest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return DefaultFlightNumber, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting latest flight number : %w", err)
	}
	return latest.FlightNumber, nil
}

// NextFlightNumber bumps the counter document with an upserting pipeline
// update, so concurrent callers never receive the same number. $max keeps
// the counter ahead of flight numbers written by seeding.
func (s *mongoStore) NextFlightNumber(ctx context.Context) (int, error) {
	latest, err := s.LatestFlightNumber(ctx)
	if err != nil {
		return 0, err
	}

	current := bson.D{{Key: "$ifNull", Value: bson.A{"$seq", 0}}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "seq", Value: bson.D{{Key: "$add", Value: bson.A{
			bson.D{{Key: "$max", Value: bson.A{current, latest}}},
			1,
		}}}}}}},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int `bson:"seq"`
	}
	err = s.counters.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: flightNumberCounter}}, update, opts).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("reserving flight number : %w", err)
	}
	return counter.Seq, nil
}

func (s *mongoStore) SaveLaunch(ctx context.Context, launch *models.Launch) error {
	doc := *launch
	if doc.Customers == nil {
		doc.Customers = []string{}
	}

	_, err := s.launches.UpdateOne(ctx,
		bson.D{{Key: "flightNumber", Value: launch.FlightNumber}},
		bson.D{{Key: "$set", Value: doc}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("saving launch %d : %w", launch.FlightNumber, err)
	}
	return nil
}

func (s *mongoStore) SetLaunchStatus(ctx context.Context, flightNumber int, upcoming, success bool) error {
	_, err := s.launches.UpdateOne(ctx,
		bson.D{{Key: "flightNumber", Value: flightNumber}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "upcoming", Value: upcoming},
			{Key: "success", Value: success},
		}}},
	)
	if err != nil {
		return fmt.Errorf("updating launch %d : %w", flightNumber, err)
	}
	return nil
}

func (s *mongoStore) FindPlanet(ctx context.Context, keplerName string) (*models.Planet, error) {
	var planet models.Planet
	err := s.planets.FindOne(ctx, bson.D{{Key: "kepler_name", Value: keplerName}}).Decode(&planet)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding planet %q : %w", keplerName, err)
	}
	return &planet, nil
}

func (s *mongoStore) GetAllPlanets(ctx context.Context) ([]models.Planet, error) {
	cursor, err := s.planets.Find(ctx, bson.D{}, options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}}))
	if err != nil {
		return nil, fmt.Errorf("listing planets : %w", err)
	}

	planets := []models.Planet{}
	if err := cursor.All(ctx, &planets); err != nil {
		return nil, fmt.Errorf("decoding planets : %w", err)
	}
	return planets, nil
}
