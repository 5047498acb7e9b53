package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"mission-control/internal/models"

	"github.com/sirupsen/logrus"
)

// DefaultFlightNumber is the value LatestFlightNumber reports for an empty
// launches collection.
const DefaultFlightNumber = 100

var (
	// ErrNotFound is returned when a launch or planet lookup matches nothing.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedScheme is returned by New for connection strings that
	// name neither PostgreSQL nor MongoDB.
	ErrUnsupportedScheme = errors.New("unsupported database scheme")
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error

	GetLaunch(ctx context.Context, flightNumber int) (*models.Launch, error)
	GetLaunches(ctx context.Context, skip, limit int) ([]models.Launch, error)
	LatestFlightNumber(ctx context.Context) (int, error)
	// NextFlightNumber atomically reserves a flight number greater than every
	// number already stored or previously reserved.
	NextFlightNumber(ctx context.Context) (int, error)
	SaveLaunch(ctx context.Context, launch *models.Launch) error
	SetLaunchStatus(ctx context.Context, flightNumber int, upcoming, success bool) error

	FindPlanet(ctx context.Context, keplerName string) (*models.Planet, error)
	GetAllPlanets(ctx context.Context) ([]models.Planet, error)
}

// New opens the store named by the connection string. postgres:// and
// postgresql:// URLs open PostgreSQL and apply pending migrations;
// mongodb:// and mongodb+srv:// URLs open MongoDB and ensure its indexes.
// The caller owns the returned Service and must Close it.
func New(ctx context.Context, connStr string, logger logrus.FieldLogger) (Service, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing database url : %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		s, err := newPostgres(ctx, connStr, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mongodb", "mongodb+srv":
		s, err := newMongo(ctx, connStr, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}
