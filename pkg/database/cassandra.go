package database

import (
	"fmt"

	"github.com/gocql/gocql"

	"teleconsult-backend/pkg/config"
	"teleconsult-backend/pkg/logger"

	"go.uber.org/zap"
)

// NewCassandraSession connects to the Cassandra cluster holding the
// message history.
func NewCassandraSession(cfg config.CassandraConfig) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = cfg.Timeout
	cluster.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: 3}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect cassandra: %w", err)
	}

	logger.Log.Info("connected to cassandra",
		zap.Strings("hosts", cfg.Hosts),
		zap.String("keyspace", cfg.Keyspace))
	return session, nil
}
