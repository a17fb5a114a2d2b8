package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/taiwoajasa245/streak-api/internal/store"
	"github.com/taiwoajasa245/streak-api/pkg/config"
	"github.com/taiwoajasa245/streak-api/pkg/util"
)

var (
	importFrom    string
	importWorkers int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy users from a JSON data file into the SQL store",
	Long: `Copy every user from a users_data.json file into the configured Postgres or
SQLite store. Users that already exist are skipped. Plaintext passcodes are
hashed on the way in.

Examples:
  STORAGE_DRIVER=sqlite streak-api import --from users_data.json
  DATABASE_URL=postgres://... streak-api import --workers 8`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFrom, "from", "", "JSON data file to read (default DATA_FILE)")
	importCmd.Flags().IntVar(&importWorkers, "workers", 4, "concurrent inserts")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.StorageDriver == config.StorageFile {
		return errors.New("import needs STORAGE_DRIVER=postgres or sqlite")
	}
	from := importFrom
	if from == "" {
		from = a.cfg.DataFile
	}

	imported, skipped, err := importUsers(ctx, store.NewFile(from), a.store, importWorkers, a.logger)
	if err != nil {
		return err
	}

	a.logger.Info("import finished", zap.String("from", from), zap.Int64("imported", imported), zap.Int64("skipped", skipped))
	fmt.Printf("Imported %d users, skipped %d existing\n", imported, skipped)
	return nil
}

// importUsers copies every user in src into dst.
func importUsers(ctx context.Context, src, dst store.Store, workers int, logger *zap.Logger) (imported, skipped int64, err error) {
	users, err := src.ListUsers(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read source users: %w", err)
	}
	if workers < 1 {
		workers = 1
	}

	var done, exists atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, u := range users {
		g.Go(func() error {
			if !util.IsPasscodeHash(u.Passcode) {
				hashed, err := util.HashPasscode(u.Passcode)
				if err != nil {
					return fmt.Errorf("user %s: %w", u.Username, err)
				}
				u.Passcode = hashed
			}

			err := dst.CreateUser(gctx, u)
			switch {
			case errors.Is(err, store.ErrUserAlreadyExists):
				exists.Add(1)
				logger.Debug("user already exists, skipping", zap.String("username", u.Username))
				return nil
			case err != nil:
				return fmt.Errorf("user %s: %w", u.Username, err)
			}
			done.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return done.Load(), exists.Load(), err
	}
	return done.Load(), exists.Load(), nil
}
