package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mbg-dapur/api/internal/config"
	"github.com/mbg-dapur/api/internal/database"
	"github.com/mbg-dapur/api/internal/enum"
	"github.com/mbg-dapur/api/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type seedOptions struct {
	email     string
	password  string
	name      string
	dapurName string
	menuDays  int
	migrate   bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed a dapur, its owner, and a week of sample menus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console"})
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			opts := optionsFrom(v)
			if opts.password == defaultPassword {
				log.Warn("using default password, change it immediately in production")
			}
			return seed(cmd.Context(), log, cfg.DatabaseURL, opts)
		},
	}

	cmd.Flags().String("email", "owner@mbg.local", "Owner email address (env SEED_EMAIL)")
	cmd.Flags().String("password", defaultPassword, "Owner password (env SEED_PASSWORD)")
	cmd.Flags().String("name", "Pemilik Dapur", "Owner full name (env SEED_NAME)")
	cmd.Flags().String("dapur", "Dapur MBG Pusat", "Name of the dapur to create")
	cmd.Flags().Int("menu-days", 7, "Days of sample menus to create, starting today")
	cmd.Flags().Bool("migrate", true, "Apply migrations before seeding")

	bindOptions(v, cmd) //nolint:errcheck
	return cmd
}

// bindOptions resolves each option as flag, then SEED_* env, then flag default.
func bindOptions(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	for key, env := range map[string]string{
		"email":    "SEED_EMAIL",
		"password": "SEED_PASSWORD",
		"name":     "SEED_NAME",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

const defaultPassword = "password123"

func optionsFrom(v *viper.Viper) seedOptions {
	return seedOptions{
		email:     v.GetString("email"),
		password:  v.GetString("password"),
		name:      v.GetString("name"),
		dapurName: v.GetString("dapur"),
		menuDays:  v.GetInt("menu-days"),
		migrate:   v.GetBool("migrate"),
	}
}

func seed(ctx context.Context, log *zap.Logger, databaseURL string, opts seedOptions) error {
	if opts.migrate {
		if err := database.Migrate(databaseURL); err != nil {
			return err
		}
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	log.Info("connected to database")

	// dapur, owner and menus land together or not at all
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := database.New(tx)

	dapurID, err := seedDapur(ctx, log, tx, q, opts.dapurName)
	if err != nil {
		return err
	}
	userID, err := seedOwner(ctx, log, q, dapurID, opts)
	if err != nil {
		return err
	}
	menus, err := seedMenus(ctx, q, dapurID, opts.menuDays)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	log.Info("seed completed",
		zap.Int64("dapur_id", dapurID),
		zap.String("owner_id", userID),
		zap.Int("menu_items", menus),
	)
	return nil
}

// seedDapur returns the active dapur named name, creating it if needed.
func seedDapur(ctx context.Context, log *zap.Logger, tx pgx.Tx, q *database.Queries, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM dapurs WHERE name = $1 AND is_active = true LIMIT 1`, name).Scan(&id)
	if err == nil {
		log.Info("dapur already exists, skipping", zap.String("name", name), zap.Int64("id", id))
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("check dapur: %w", err)
	}

	d, err := q.CreateDapur(ctx, database.CreateDapurParams{
		Name:    name,
		Address: pgtype.Text{String: "Jl. Contoh No. 1, Jakarta", Valid: true},
		Phone:   pgtype.Text{String: "081234567890", Valid: true},
	})
	if err != nil {
		return 0, fmt.Errorf("insert dapur: %w", err)
	}
	log.Info("created dapur", zap.String("name", name), zap.Int64("id", d.ID))
	return d.ID, nil
}

// seedOwner creates the owner user if the email is not taken yet.
func seedOwner(ctx context.Context, log *zap.Logger, q *database.Queries, dapurID int64, opts seedOptions) (string, error) {
	existing, err := q.GetUserByEmail(ctx, opts.email)
	if err == nil {
		log.Info("user already exists, skipping", zap.String("email", opts.email))
		return existing.ID.String(), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(opts.password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	u, err := q.CreateUser(ctx, database.CreateUserParams{
		DapurID:        dapurID,
		Email:          opts.email,
		HashedPassword: string(hashed),
		FullName:       opts.name,
		Role:           enum.UserRoleOwner,
	})
	if err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	log.Info("created owner", zap.String("email", opts.email), zap.Stringer("id", u.ID))
	return u.ID.String(), nil
}

var sampleDishes = map[string][]string{
	enum.MealSessionPagi:  {"Nasi Putih", "Telur Dadar", "Tumis Kangkung", "Pisang"},
	enum.MealSessionSiang: {"Nasi Putih", "Ayam Goreng", "Sayur Asem", "Tempe Bacem", "Jeruk"},
	enum.MealSessionMalam: {"Nasi Putih", "Ikan Pindang", "Sayur Sop", "Tahu Goreng"},
}

// seedMenus adds one menu per session for each of the next days days,
// skipping dates that already have menus.
func seedMenus(ctx context.Context, q *database.Queries, dapurID int64, days int) (int, error) {
	existing, err := q.ListMenuItems(ctx, database.ListMenuItemsParams{
		DapurID: pgtype.Int8{Int64: dapurID, Valid: true},
		Limit:   500,
	})
	if err != nil {
		return 0, fmt.Errorf("list menu items: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[m.Date.Time.Format(time.DateOnly)+"/"+m.Session] = true
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	created := 0
	for d := 0; d < days; d++ {
		date := today.AddDate(0, 0, d)
		for _, session := range []string{enum.MealSessionPagi, enum.MealSessionSiang, enum.MealSessionMalam} {
			if seen[date.Format(time.DateOnly)+"/"+session] {
				continue
			}
			dishes, err := json.Marshal(sampleDishes[session])
			if err != nil {
				return 0, fmt.Errorf("encode dishes: %w", err)
			}
			if _, err := q.CreateMenuItem(ctx, database.CreateMenuItemParams{
				DapurID: dapurID,
				Date:    pgtype.Date{Time: date, Valid: true},
				Session: session,
				Dishes:  string(dishes),
			}); err != nil {
				return 0, fmt.Errorf("insert menu item: %w", err)
			}
			created++
		}
	}
	return created, nil
}
