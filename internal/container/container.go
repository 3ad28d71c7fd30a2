package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tutorhub-user-service/config"
	userapp "github.com/oksasatya/tutorhub-user-service/internal/application"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/event"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	esClient    *elasticsearch.Client

	publisher event.Publisher
	registry  *prometheus.Registry
	metrics   *userapp.Metrics
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config  { return cfg }
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger  { return logger }
func SetPGPool(p *pgxpool.Pool)  { pgPool = p }
func GetPGPool() *pgxpool.Pool   { return pgPool }
func SetRedis(r *redis.Client)   { redisClient = r }
func GetRedis() *redis.Client    { return redisClient }

func SetES(c *elasticsearch.Client) { esClient = c }
func GetES() *elasticsearch.Client  { return esClient }

func SetPublisher(p event.Publisher) { publisher = p }

// GetPublisher never returns nil; without a configured bus events are dropped.
func GetPublisher() event.Publisher {
	if publisher == nil {
		return event.NopPublisher{}
	}
	return publisher
}

// SetRegistry installs the Prometheus registry and registers the user metrics on it.
func SetRegistry(r *prometheus.Registry) {
	registry = r
	metrics = nil
	if r != nil {
		metrics = userapp.NewMetrics(r)
	}
}

func GetRegistry() *prometheus.Registry { return registry }
func GetMetrics() *userapp.Metrics      { return metrics }
