// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Default images, pinned to the versions the protected application supports.
const (
	DefaultMySQLImage    = "mariadb:10.11"
	DefaultPostgresImage = "postgres:16-alpine"
)

// DatabaseContainer is a running database server with its credentials.
type DatabaseContainer struct {
	testcontainers.Container

	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// databaseConfig holds configuration for a database container.
type databaseConfig struct {
	image        string
	startTimeout time.Duration
}

// DatabaseOption configures a database container.
type DatabaseOption func(*databaseConfig)

// WithImage overrides the container image.
func WithImage(image string) DatabaseOption {
	return func(c *databaseConfig) {
		c.image = image
	}
}

// WithStartTimeout sets the container startup timeout.
func WithStartTimeout(d time.Duration) DatabaseOption {
	return func(c *databaseConfig) {
		c.startTimeout = d
	}
}

// StartMySQL starts a MariaDB server with database "nextcloud".
func StartMySQL(ctx context.Context, opts ...DatabaseOption) (*DatabaseContainer, error) {
	cfg := &databaseConfig{image: DefaultMySQLImage, startTimeout: 2 * time.Minute}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MARIADB_ROOT_PASSWORD": "root",
			"MARIADB_DATABASE":      "nextcloud",
			"MARIADB_USER":          "nextcloud",
			"MARIADB_PASSWORD":      "nextcloud",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("3306/tcp"),
			wait.ForLog("ready for connections").WithOccurrence(2),
		).WithStartupTimeout(cfg.startTimeout),
	}
	return start(ctx, req, "nextcloud", "nextcloud", "nextcloud")
}

// StartPostgres starts a PostgreSQL server with database "nextcloud".
func StartPostgres(ctx context.Context, opts ...DatabaseOption) (*DatabaseContainer, error) {
	cfg := &databaseConfig{image: DefaultPostgresImage, startTimeout: 2 * time.Minute}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "nextcloud",
			"POSTGRES_USER":     "nextcloud",
			"POSTGRES_PASSWORD": "nextcloud",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithStartupTimeout(cfg.startTimeout),
	}
	return start(ctx, req, "nextcloud", "nextcloud", "nextcloud")
}

func start(ctx context.Context, req testcontainers.ContainerRequest, user, password, database string) (*DatabaseContainer, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s container: %w", req.Image, err)
	}

	// Each request exposes exactly one port, so Endpoint resolves it.
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container endpoint: %w", err)
	}
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	p, err := strconv.Atoi(portStr)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("parse mapped port %q: %w", portStr, err)
	}

	return &DatabaseContainer{
		Container: container,
		Host:      host,
		Port:      p,
		User:      user,
		Password:  password,
		Database:  database,
	}, nil
}
