package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.StorageDriver)
	require.Equal(t, "carecore.db", cfg.SQLitePath)
	require.Equal(t, "fs", cfg.ArchiveDriver)
	require.True(t, cfg.IsDev())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CARECORE_STORAGE_DRIVER", "memory")
	t.Setenv("CARECORE_LOG_LEVEL", "debug")
	t.Setenv("CARECORE_ARCHIVE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.StorageDriver)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestPostgresRequiresDSN(t *testing.T) {
	t.Setenv("CARECORE_STORAGE_DRIVER", "postgres")
	t.Setenv("CARECORE_POSTGRES_DSN", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("CARECORE_POSTGRES_DSN", "postgres://localhost/carecore")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.StorageDriver)
}

func TestS3ArchiveRequiresBucket(t *testing.T) {
	t.Setenv("CARECORE_ARCHIVE_DRIVER", "s3")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("CARECORE_ARCHIVE_S3_BUCKET", "carecore-audit")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "s3", cfg.ArchiveDriver)
}

func TestUnknownDriverRejected(t *testing.T) {
	t.Setenv("CARECORE_STORAGE_DRIVER", "etcd")
	_, err := Load()
	require.Error(t, err)
}
