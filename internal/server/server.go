package server

import (
	"fmt"
	"net/http"
	"time"

	"mission-control/internal/config"
	"mission-control/internal/database"
	"mission-control/internal/launches"
	"mission-control/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Dependencies are the collaborators a Server is built from. The caller owns
// their lifecycle.
type Dependencies struct {
	DB       database.Service
	Launches *launches.Service
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   logrus.FieldLogger
}

type Server struct {
	port int

	db       database.Service
	launches *launches.Service
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	limiter  *visitorLimiter
	log      logrus.FieldLogger
}

// NewServer builds the API http.Server listening on cfg.Port.
func NewServer(cfg *config.Config, deps Dependencies) *http.Server {
	s := &Server{
		port:     cfg.Port,
		db:       deps.DB,
		launches: deps.Launches,
		metrics:  deps.Metrics,
		gatherer: deps.Gatherer,
		limiter:  newVisitorLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		log:      deps.Logger,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
