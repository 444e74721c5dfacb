package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/postgres"
)

const bloomFPR = 0.001

type productJSON struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Category      string          `json:"category"`
	StockQuantity int             `json:"stock_quantity"`
}

type options struct {
	databaseURL   string
	catalogs      []string
	adminEmail    string
	adminUsername string
	adminPassword string
}

func main() {
	var (
		opts     options
		catalogs string
	)

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogs, "products", "", "comma-separated product catalog files (.json or .json.gz); embedded catalog when empty")
	flag.StringVar(&opts.adminEmail, "admin-email", "admin@storefront.local", "email of the administrator account")
	flag.StringVar(&opts.adminUsername, "admin-username", "admin", "username of the administrator account")
	flag.StringVar(&opts.adminPassword, "admin-password", "", "administrator password (or STORE_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if opts.adminPassword == "" {
		opts.adminPassword = os.Getenv("STORE_SEED_ADMIN_PASSWORD")
	}
	if opts.adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or STORE_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}
	for _, c := range strings.Split(catalogs, ",") {
		if c = strings.TrimSpace(c); c != "" {
			opts.catalogs = append(opts.catalogs, c)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, opts options) error {
	products, err := loadCatalogs(ctx, opts.catalogs)
	if err != nil {
		return errors.Wrap(err, "load catalogs")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, product.NewService(postgres.NewProductRepository(pool)), products); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedAdmin(ctx, postgres.NewUserRepository(pool), opts); err != nil {
		return errors.Wrap(err, "seed admin")
	}

	return nil
}

// loadCatalogs decodes every catalog file concurrently and merges them,
// keeping the first product seen for each name.
func loadCatalogs(ctx context.Context, paths []string) ([]productJSON, error) {
	if len(paths) == 0 {
		slog.Info("using embedded catalog")
		return decodeCatalog(bytes.NewReader(db.SeedProducts))
	}

	decoded := make([][]productJSON, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			items, err := readCatalogFile(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			slog.Info("catalog decoded", slog.String("path", path), slog.Int("products", len(items)))
			decoded[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return dedupeByName(decoded), nil
}

func readCatalogFile(ctx context.Context, path string) ([]productJSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return decodeCatalog(r)
}

func decodeCatalog(r io.Reader) ([]productJSON, error) {
	var items []productJSON
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return items, nil
}

// dedupeByName flattens catalogs in order and drops repeated names. The
// bloom filter answers most lookups; the exact set only confirms its
// positives.
func dedupeByName(catalogs [][]productJSON) []productJSON {
	total := 0
	for _, c := range catalogs {
		total += len(c)
	}
	filter := bloom.NewWithEstimates(uint(max(total, 1)), bloomFPR)
	seen := make(map[string]struct{}, total)

	out := make([]productJSON, 0, total)
	for _, c := range catalogs {
		for _, p := range c {
			if filter.TestAndAddString(p.Name) {
				if _, dup := seen[p.Name]; dup {
					slog.Warn("duplicate product name skipped", slog.String("name", p.Name))
					continue
				}
			}
			seen[p.Name] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func seedProducts(ctx context.Context, svc *product.Service, products []productJSON) error {
	slog.Info("inserting products", slog.Int("count", len(products)))

	var created, skipped int
	for _, p := range products {
		_, err := svc.Create(ctx, product.Draft{
			Name:          p.Name,
			Description:   p.Description,
			Price:         p.Price,
			Category:      p.Category,
			StockQuantity: p.StockQuantity,
		})
		switch {
		case errors.Is(err, product.ErrDuplicateName):
			skipped++
			continue
		case err != nil:
			return errors.Wrapf(err, "create product %q", p.Name)
		}
		created++
	}

	slog.Info("products seeded", slog.Int("created", created), slog.Int("existing", skipped))
	return nil
}

func seedAdmin(ctx context.Context, users *postgres.UserRepository, opts options) error {
	hash, err := auth.HashPassword(opts.adminPassword, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := users.Upsert(ctx, &auth.User{
		ID:           uuid.NewString(),
		Username:     opts.adminUsername,
		Email:        strings.ToLower(opts.adminEmail),
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		return err
	}

	slog.Info("administrator ready", slog.String("email", opts.adminEmail))
	return nil
}
