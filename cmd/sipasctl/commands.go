package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sipas/persuratan/internal/app"
	"github.com/sipas/persuratan/internal/cache"
	"github.com/sipas/persuratan/internal/database"
	"github.com/sipas/persuratan/internal/kategori"
	"github.com/sipas/persuratan/internal/models"
	"github.com/sipas/persuratan/internal/suratmasuk"
)

// NewMigrateCmd creates the migrate command
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := loadConfig()

			db, err := database.New(database.Config{
				Host:     cfg.Database.Host,
				Port:     cfg.Database.Port,
				User:     cfg.Database.User,
				Password: cfg.Database.Password,
				Database: cfg.Database.Database,
				SSLMode:  cfg.Database.SSLMode,
			})
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			cmd.Printf("Schema is up to date\n")
			return nil
		},
	}
}

// NewSeedKategoriCmd creates the seed-kategori command
func NewSeedKategoriCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-kategori",
		Short: "Load classification codes from a YAML file",
		Long: `Upserts every kategori in the file. Existing codes keep their IDs and get
the name and description from the file, so the command can be re-run.

With CACHE_BACKEND=redis a running server sees the change at once. A server
using the in-memory cache keeps serving its cached copy until the entry
expires (300 s for kategori and users, 60 s for letters) or an admin calls
POST /api/admin/cache/invalidate.`,
		Example: `  sipasctl seed-kategori --file kategori.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			entries, err := kategori.ParseSeed(f)
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), func(a *app.App) error {
				n, err := a.KategoriSvc.Seed(cmd.Context(), entries)
				if err != nil {
					return err
				}
				cmd.Printf("Seeded %d kategori\n", n)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML file with the kategori tree")
	cmd.MarkFlagRequired("file")

	return cmd
}

// NewImportSuratMasukCmd creates the import-surat-masuk command
func NewImportSuratMasukCmd() *cobra.Command {
	var (
		file string
		nip  string
	)

	cmd := &cobra.Command{
		Use:   "import-surat-masuk",
		Short: "Import incoming letters from a CSV file",
		Long: `Reads a comma or semicolon separated file with the header:

  ` + csvHeaderLine() + `

Valid rows are stored in one batch; invalid rows are listed and skipped.

With CACHE_BACKEND=redis a running server sees the change at once. A server
using the in-memory cache keeps serving its cached copy until the entry
expires (300 s for kategori and users, 60 s for letters) or an admin calls
POST /api/admin/cache/invalidate.`,
		Example: `  sipasctl import-surat-masuk --file arsip-2025.csv --nip 198501012010011001`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			return withApp(cmd.Context(), func(a *app.App) error {
				user, err := database.NewUserStore(a.DB).GetByNIP(cmd.Context(), models.NormalizeNIP(nip))
				if errors.Is(err, database.ErrNotFound) {
					return fmt.Errorf("no user with NIP %s", nip)
				}
				if err != nil {
					return err
				}

				result, err := a.SuratMasukSvc.ImportCSV(cmd.Context(), user.ID, f)
				if err != nil {
					return err
				}

				cmd.Printf("Imported %d letters\n", result.Imported)
				for _, failure := range result.Failed {
					cmd.Printf("  row %d: %s\n", failure.Row, failure.Message)
				}
				if len(result.Failed) > 0 {
					return fmt.Errorf("%d rows failed", len(result.Failed))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV file to import")
	cmd.Flags().StringVar(&nip, "nip", "", "NIP of the user recorded as creator")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("nip")

	return cmd
}

// NewCreateAdminCmd creates the create-admin command
func NewCreateAdminCmd() *cobra.Command {
	var (
		nip      string
		nama     string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: `Creates an admin user. The password can be passed with --password or the
SIPAS_ADMIN_PASSWORD environment variable to keep it out of shell history.

With CACHE_BACKEND=redis a running server sees the change at once. A server
using the in-memory cache keeps serving its cached copy until the entry
expires (300 s for kategori and users, 60 s for letters) or an admin calls
POST /api/admin/cache/invalidate.`,
		Example: `  SIPAS_ADMIN_PASSWORD=... sipasctl create-admin --nip 198501012010011001 --nama "Admin TU"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("SIPAS_ADMIN_PASSWORD")
			}
			if password == "" {
				return errors.New("password is required (--password or SIPAS_ADMIN_PASSWORD)")
			}

			return withApp(cmd.Context(), func(a *app.App) error {
				user, err := a.UsersSvc.Create(cmd.Context(), models.CreateUserParams{
					NIP:      nip,
					Nama:     nama,
					Role:     models.RoleAdmin,
					Password: password,
				})
				if err != nil {
					return err
				}
				cmd.Printf("Created admin %s (%s)\n", user.Nama, user.NIP)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&nip, "nip", "", "18-digit NIP used to log in")
	cmd.Flags().StringVar(&nama, "nama", "", "Full name")
	cmd.Flags().StringVar(&password, "password", "", "Initial password")
	cmd.MarkFlagRequired("nip")
	cmd.MarkFlagRequired("nama")

	return cmd
}

// errNoSharedCache is returned by the cache commands when the server keeps
// its cache in process memory, out of reach of this CLI
var errNoSharedCache = errors.New("cache commands need CACHE_BACKEND=redis: " +
	"the in-memory cache lives inside the server process, use POST /api/admin/cache/invalidate instead")

// withSharedCache connects to the Redis cache shared with the server. It
// opens neither the database nor the other services.
func withSharedCache(fn func(*cache.Invalidator) error) error {
	cfg, logger := loadConfig()
	if cfg.Cache.Backend != "redis" {
		return errNoSharedCache
	}

	store, err := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
		Prefix:   cfg.Cache.RedisPrefix,
	}, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(cache.NewInvalidator(store, logger))
}

// NewCacheStatsCmd creates the cache-stats command
func NewCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache-stats",
		Short: "Print the entries of the shared cache",
		Long: `Prints the key and remaining TTL of every live entry in the Redis cache
shared with the server. Fails unless CACHE_BACKEND=redis; an in-memory cache
belongs to the server process and is reported by GET /api/admin/cache.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSharedCache(func(inv *cache.Invalidator) error {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(inv.Stats())
			})
		},
	}
}

// NewCacheInvalidateCmd creates the cache-invalidate command
func NewCacheInvalidateCmd() *cobra.Command {
	var (
		dataType string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "cache-invalidate",
		Short: "Evict dataset entries from the shared cache",
		Long: `Evicts dataset entries from the Redis cache shared with the server. Fails
unless CACHE_BACKEND=redis; with the in-memory cache use
POST /api/admin/cache/invalidate on the running server.`,
		Example: `  CACHE_BACKEND=redis sipasctl cache-invalidate --type surat
  CACHE_BACKEND=redis sipasctl cache-invalidate --all`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !all {
				if _, ok := cache.KeyForType(dataType); !ok {
					return fmt.Errorf("unknown data type %q", dataType)
				}
			}

			return withSharedCache(func(inv *cache.Invalidator) error {
				if all {
					inv.InvalidateAll()
				} else {
					inv.InvalidateByType(dataType)
				}
				cmd.Printf("Cache invalidated\n")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dataType, "type", "", "Data type: kategori, surat, suratMasuk, users or categories")
	cmd.Flags().BoolVar(&all, "all", false, "Evict every dataset")
	cmd.MarkFlagsOneRequired("type", "all")
	cmd.MarkFlagsMutuallyExclusive("type", "all")

	return cmd
}

func csvHeaderLine() string {
	return strings.Join(suratmasuk.CSVHeader(), ",")
}
