package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPostgresClient(host string, port string, dbname string, username string, password string, maxConnections int) (*pgxpool.Pool, error) {
	dbConfig := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", username, password, host, port, dbname)

	config, err := pgxpool.ParseConfig(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	config.MaxConns = int32(maxConnections) //nolint:all
	config.MinConns = 1

	// Idle timeout - economiza recursos
	config.MaxConnIdleTime = 5 * time.Minute

	// Lifetime das conexões - evita problemas de timeout do PostgreSQL
	config.MaxConnLifetime = 30 * time.Minute

	config.HealthCheckPeriod = 1 * time.Minute

	// Todas as fronteiras de dia são calculadas em UTC; a sessão também.
	config.ConnConfig.RuntimeParams = map[string]string{
		"timezone":                            "UTC",
		"statement_timeout":                   "30s",
		"lock_timeout":                        "10s",
		"idle_in_transaction_session_timeout": "60s",
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return pool, nil
}

// BuildSearchJSON constrói o payload JSON usado com o operador @> do PostgreSQL.
// Cada filtro pode ser um caminho com pontos: {"document.value": "1"} gera
// {"document": {"value": "1"}}. Essa estrutura permite usar o index GIN em consultas JSONB.
func BuildSearchJSON(filters map[string]string) (string, error) {
	root := map[string]interface{}{}

	for path, value := range filters {
		keys := strings.Split(path, ".")
		node := root

		for _, key := range keys[:len(keys)-1] {
			child, ok := node[key].(map[string]interface{})
			if !ok {
				child = map[string]interface{}{}
				node[key] = child
			}
			node = child
		}

		node[keys[len(keys)-1]] = value
	}

	bytes, err := json.Marshal(root)
	if err != nil {
		return "", err
	}

	return string(bytes), nil
}
