package testcontainer

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"docchain/internal/config"
)

// RedisContainer Redisコンテナのラッパー
type RedisContainer struct {
	Container *rediscontainer.RedisContainer
	Host      string
	Port      int
}

// MySQLContainer MySQLコンテナのラッパー
type MySQLContainer struct {
	Container *mysql.MySQLContainer
	Host      string
	Port      int
	Database  string
	User      string
	Password  string
}

// skipIfShort -short 指定時はDockerを使うテストをスキップ
func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
}

// StartRedis Redisコンテナを起動
func StartRedis(ctx context.Context, t *testing.T) (*RedisContainer, error) {
	t.Helper()
	skipIfShort(t)

	container, err := rediscontainer.Run(ctx,
		"redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	host, port, err := endpoint(ctx, container, "6379")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to resolve redis endpoint: %w", err)
	}

	return &RedisContainer{
		Container: container,
		Host:      host,
		Port:      port,
	}, nil
}

// StartMySQL MySQLコンテナを起動
func StartMySQL(ctx context.Context, t *testing.T) (*MySQLContainer, error) {
	t.Helper()
	skipIfShort(t)

	const (
		database = "docchain"
		user     = "docchain"
		password = "docchain"
	)

	container, err := mysql.Run(ctx,
		"mysql:8.0",
		mysql.WithDatabase(database),
		mysql.WithUsername(user),
		mysql.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start mysql container: %w", err)
	}

	host, port, err := endpoint(ctx, container, "3306")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to resolve mysql endpoint: %w", err)
	}

	return &MySQLContainer{
		Container: container,
		Host:      host,
		Port:      port,
		Database:  database,
		User:      user,
		Password:  password,
	}, nil
}

func endpoint(ctx context.Context, c testcontainers.Container, containerPort string) (string, int, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", 0, err
	}
	mapped, err := c.MappedPort(ctx, containerPort)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

// Config アプリケーションのRedis設定に変換
func (r *RedisContainer) Config() *config.RedisConfig {
	return &config.RedisConfig{Host: r.Host, Port: r.Port}
}

// Config アプリケーションのMySQL設定に変換
func (m *MySQLContainer) Config() *config.MySQLConfig {
	return &config.MySQLConfig{
		Host:     m.Host,
		Port:     m.Port,
		User:     m.User,
		Password: m.Password,
		Database: m.Database,
	}
}

// Close Redisコンテナを停止
func (r *RedisContainer) Close(ctx context.Context) error {
	if r.Container != nil {
		return r.Container.Terminate(ctx)
	}
	return nil
}

// Close MySQLコンテナを停止
func (m *MySQLContainer) Close(ctx context.Context) error {
	if m.Container != nil {
		return m.Container.Terminate(ctx)
	}
	return nil
}
