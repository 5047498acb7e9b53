package launches

import (
	"context"
	"errors"
	"fmt"

	"mission-control/internal/database"
	"mission-control/internal/metrics"
	"mission-control/internal/models"

	"github.com/sirupsen/logrus"
)

// ErrPlanetNotFound is returned by Schedule when the target planet is not in
// the planets collection.
var ErrPlanetNotFound = errors.New("no matching planet found")

// The first launch in the provider data. Its presence means seeding already
// ran.
const (
	seedFlightNumber = 1
	seedRocket       = "Falcon 1"
	seedMission      = "FalconSat"
)

// DefaultCustomers is assigned to every launch scheduled through the API.
var DefaultCustomers = []string{"AL-Baath University", "NASA"}

// Store is the slice of database.Service the launches service needs.
type Store interface {
	GetLaunch(ctx context.Context, flightNumber int) (*models.Launch, error)
	GetLaunches(ctx context.Context, skip, limit int) ([]models.Launch, error)
	LatestFlightNumber(ctx context.Context) (int, error)
	NextFlightNumber(ctx context.Context) (int, error)
	SaveLaunch(ctx context.Context, launch *models.Launch) error
	SetLaunchStatus(ctx context.Context, flightNumber int, upcoming, success bool) error
	FindPlanet(ctx context.Context, keplerName string) (*models.Planet, error)
}

// Provider supplies historical launches for seeding.
type Provider interface {
	FetchLaunches(ctx context.Context) ([]models.Launch, error)
}

// Service owns every read and write of the launches collection.
type Service struct {
	store    Store
	provider Provider
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

func New(store Store, provider Provider, m *metrics.Metrics, logger logrus.FieldLogger) *Service {
	return &Service{
		store:    store,
		provider: provider,
		metrics:  m,
		log:      logger,
	}
}

// Seed loads the provider's launches unless the first historical launch is
// already stored. Every record is upserted by flight number, so a repeated
// seed overwrites in place. A provider failure aborts the pass; launches
// saved before the failure stay.
func (s *Service) Seed(ctx context.Context) error {
	first, err := s.store.GetLaunch(ctx, seedFlightNumber)
	switch {
	case err == nil && first.Rocket == seedRocket && first.Mission == seedMission:
		s.log.Info("Launch data already loaded!")
		return nil
	case err != nil && !errors.Is(err, database.ErrNotFound):
		return fmt.Errorf("checking seed launch : %w", err)
	}

	launches, err := s.provider.FetchLaunches(ctx)
	if err != nil {
		return fmt.Errorf("seeding launches : %w", err)
	}

	for i := range launches {
		if err := s.store.SaveLaunch(ctx, &launches[i]); err != nil {
			return fmt.Errorf("seeding launches : %w", err)
		}
		s.metrics.LaunchesSeeded.Inc()
	}
	s.log.WithField("count", len(launches)).Info("Launch data loaded")
	return nil
}

// Get returns the launch with the given flight number, or
// database.ErrNotFound.
func (s *Service) Get(ctx context.Context, flightNumber int) (*models.Launch, error) {
	return s.store.GetLaunch(ctx, flightNumber)
}

func (s *Service) Exists(ctx context.Context, flightNumber int) (bool, error) {
	_, err := s.store.GetLaunch(ctx, flightNumber)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LatestFlightNumber returns the highest stored flight number, or
// database.DefaultFlightNumber when there are no launches.
func (s *Service) LatestFlightNumber(ctx context.Context) (int, error) {
	return s.store.LatestFlightNumber(ctx)
}

// List returns launches in ascending flight number order. A limit of zero
// means no limit.
func (s *Service) List(ctx context.Context, skip, limit int) ([]models.Launch, error) {
	return s.store.GetLaunches(ctx, skip, limit)
}

func (s *Service) Save(ctx context.Context, launch *models.Launch) error {
	return s.store.SaveLaunch(ctx, launch)
}

// Schedule stores a new upcoming launch to an existing planet. Mission,
// rocket, launch date and target come from input; the flight number,
// customers and status flags are assigned here.
func (s *Service) Schedule(ctx context.Context, input models.Launch) (*models.Launch, error) {
	if _, err := s.store.FindPlanet(ctx, input.Target); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrPlanetNotFound
		}
		return nil, fmt.Errorf("finding target planet : %w", err)
	}

	flightNumber, err := s.store.NextFlightNumber(ctx)
	if err != nil {
		return nil, err
	}

	launch := input
	launch.FlightNumber = flightNumber
	launch.Customers = append([]string(nil), DefaultCustomers...)
	launch.Upcoming = true
	launch.Success = true

	if err := s.store.SaveLaunch(ctx, &launch); err != nil {
		return nil, err
	}
	s.metrics.LaunchesScheduled.Inc()
	s.log.WithFields(logrus.Fields{
		"flightNumber": launch.FlightNumber,
		"mission":      launch.Mission,
		"target":       launch.Target,
	}).Info("Launch scheduled")
	return &launch, nil
}

// Abort marks a launch as no longer upcoming and unsuccessful, then re-reads
// it. It reports true only when the stored launch is aborted; a missing
// flight number reports false without an error. Aborting an already aborted
// launch reports true.
func (s *Service) Abort(ctx context.Context, flightNumber int) (bool, error) {
	if err := s.store.SetLaunchStatus(ctx, flightNumber, false, false); err != nil {
		return false, err
	}

	aborted, err := s.store.GetLaunch(ctx, flightNumber)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !aborted.Aborted() {
		return false, nil
	}

	s.metrics.LaunchesAborted.Inc()
	s.log.WithField("flightNumber", flightNumber).Info("Launch aborted")
	return true, nil
}
