// Command carecore is the operator CLI for the care-facility core. Every
// invocation opens the configured store, authenticates the operator, runs
// one use-case, and exits; durable state lives in the storage backend.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"carecore/internal/archive"
	archivefs "carecore/internal/archive/fs"
	archivemem "carecore/internal/archive/memory"
	archives3 "carecore/internal/archive/s3"
	"carecore/internal/config"
	"carecore/internal/core"
	"carecore/internal/observability"
)

var (
	flagUser string
	flagPass string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carecore",
		Short: "Care facility management core",
	}
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "operator username")
	rootCmd.PersistentFlags().StringVar(&flagPass, "pass", "", "operator password")

	rootCmd.AddCommand(
		seedCmd(),
		addStaffCmd(),
		setPasswordCmd(),
		admitCmd(),
		moveCmd(),
		assignShiftCmd(),
		removeShiftCmd(),
		rosterCmd(),
		staffCmd(),
		prescribeCmd(),
		rxCmd(),
		administerCmd(),
		residentCmd(),
		medlogCmd(),
		complianceCmd(),
		auditCmd(),
		exportAuditCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openService(ctx context.Context) (*core.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.IsDev())

	engine := core.NewDefaultRulesEngine()
	store, err := core.OpenPersistentStore(core.StorageDriver(cfg.StorageDriver), cfg.SQLitePath, cfg.PostgresDSN, engine)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var arch archive.Store
	switch archive.Driver(cfg.ArchiveDriver) {
	case archive.DriverFilesystem:
		arch, err = archivefs.New(cfg.ArchiveRoot)
	case archive.DriverS3:
		arch, err = archives3.New(ctx, archives3.Config{
			Region:   cfg.ArchiveRegion,
			Bucket:   cfg.ArchiveBucket,
			Endpoint: cfg.ArchiveEndpoint,
		})
	case archive.DriverMemory:
		arch = archivemem.New()
	}
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	opts := []core.Option{core.WithLogger(logger), core.WithArchive(arch)}
	if cfg.MetricsEnabled {
		opts = append(opts, core.WithMetrics(observability.NewDefaultMetrics()))
	}
	svc := core.NewService(store, opts...)

	if err := core.EnsureDefaultManager(ctx, store); err != nil {
		return nil, fmt.Errorf("seed manager: %w", err)
	}
	return svc, nil
}

// run opens the service, logs the operator in when credentials are given,
// and invokes fn. Commands that require an actor receive nil when no
// credentials were supplied and fail with the usual unauthenticated error.
func run(cmd *cobra.Command, fn func(ctx context.Context, svc *core.Service, actor *core.Staff) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := openService(ctx)
	if err != nil {
		return err
	}
	var actor *core.Staff
	if flagUser != "" {
		st, err := svc.Login(ctx, flagUser, flagPass)
		if err != nil {
			return err
		}
		actor = &st
		defer func() { _ = svc.Logout(ctx, actor) }()
	}
	return fn(ctx, svc, actor)
}
