// Command tokengen issues a bearer token for an existing account. Account
// creation and login live outside this service; the token is for operators
// and local testing.
//
//	tokengen -user-id 42
//	tokengen -user-id 42 -skip-check   # do not look the account up
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"ebook-marketplace/config"
	pgStorage "ebook-marketplace/internal/adapter/storage/postgres"
	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/service"
	"ebook-marketplace/pkg/logger"

	"github.com/joho/godotenv"
)

type userLookup func(ctx context.Context, cfg *config.Config, userID int64) (*domain.User, error)

type tokengenDeps struct {
	loadEnv    func() error
	loadCfg    func(path string) (*config.Config, error)
	lookupUser userLookup
	out        io.Writer
}

func defaultTokengenDeps() tokengenDeps {
	return tokengenDeps{
		loadEnv:    func() error { return godotenv.Load() },
		loadCfg:    config.Load,
		lookupUser: lookupFromDB,
		out:        os.Stdout,
	}
}

func lookupFromDB(ctx context.Context, cfg *config.Config, userID int64) (*domain.User, error) {
	pool, err := pgStorage.NewPool(ctx, cfg.Database, logger.New(cfg.Log.Level, cfg.Log.Pretty))
	if err != nil {
		return nil, fmt.Errorf("failed to connect db: %w", err)
	}
	defer pool.Close()
	return pgStorage.NewUserRepo(pool).GetByID(ctx, userID)
}

func parseUserID(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("-user-id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("-user-id must be a positive integer, got %q", raw)
	}
	return id, nil
}

func runTokengen(args []string, deps tokengenDeps) error {
	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	userIDFlag := fs.String("user-id", "", "account id (required)")
	skipCheck := fs.Bool("skip-check", false, "issue without loading the account")
	cfgFlag := fs.String("config", "", "config file path (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	userID, err := parseUserID(*userIDFlag)
	if err != nil {
		return err
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg, err := deps.loadCfg(*cfgFlag)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.JWT.Secret == "" {
		return errors.New("EBM_JWT_SECRET is not set")
	}

	if !*skipCheck {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		user, err := deps.lookupUser(ctx, cfg, userID)
		if err != nil {
			return fmt.Errorf("failed to load user %d: %w", userID, err)
		}
		if user == nil {
			return fmt.Errorf("user %d not found", userID)
		}
		if !user.CanSignIn() {
			return fmt.Errorf("user %d cannot sign in (status=%s)", userID, user.Status)
		}
		_, _ = fmt.Fprintf(deps.out, "role=%s status=%s\n", user.Role, user.Status)
	}

	tokens := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	token, expiry, err := tokens.Generate(userID)
	if err != nil {
		return fmt.Errorf("signing token: %w", err)
	}

	_, _ = fmt.Fprintf(deps.out, "expires=%s\n", expiry.UTC().Format(time.RFC3339))
	_, _ = fmt.Fprintf(deps.out, "TOKEN=%s\n", token)
	return nil
}

func main() {
	if err := runTokengen(os.Args[1:], defaultTokengenDeps()); err != nil {
		log.Fatal(err)
	}
}
