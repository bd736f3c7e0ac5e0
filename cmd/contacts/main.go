package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/delegates/backend/internal/domain/shared"
	"github.com/delegates/backend/internal/infrastructure/config"
	"github.com/delegates/backend/internal/infrastructure/logger"
	"github.com/delegates/backend/internal/infrastructure/persistence"
	"github.com/delegates/backend/internal/infrastructure/persistence/delegation"
	"github.com/delegates/backend/internal/infrastructure/persistence/models"
	"github.com/delegates/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const tracerName = "github.com/delegates/backend/cmd/contacts"

var errUsage = errors.New("invalid usage")

func main() {
	var (
		configPath string
		logLevel   string
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: ./config.toml)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides log.level")
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()

	if err := execute(configPath, logLevel, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// execute wires configuration, logging, telemetry and the database, then
// runs args. Deferred cleanup runs before main exits.
func execute(configPath, logLevel string, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if logLevel == "" {
		logLevel = cfg.Log.Level
	}
	log, err := logger.NewForEnvironment(cfg.App.Env, logger.Config{
		Level:  logLevel,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := context.Background()
	providers, err := telemetry.Start(ctx, telemetry.FromConfig(cfg.Telemetry, cfg.App.Name), log)
	if err != nil {
		return fmt.Errorf("start telemetry: %w", err)
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()
	log = providers.Logger(log, logger.ParseLevel(cfg.Telemetry.LogsLevel))

	db, err := persistence.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo, err := persistence.NewGormUserRepository(db.DB,
		persistence.WithRepositoryLogger(log),
		persistence.WithPartialUpdates(cfg.Delegation.PartialUpdates),
	)
	if err != nil {
		return fmt.Errorf("set up user repository: %w", err)
	}

	spanName := "contacts"
	if len(args) > 0 {
		spanName += " " + args[0]
	}
	ctx, _ = logger.WithRequestID(ctx, log, uuid.NewString())
	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName)
	defer span.End()

	if err := run(ctx, repo, args, os.Stdout); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if traceID := logger.GetTraceID(ctx); traceID != "" {
			return fmt.Errorf("%w (trace %s)", err, traceID)
		}
		return err
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// run executes one command against repo and writes its output to out.
func run(ctx context.Context, repo *persistence.GormUserRepository, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "create":
		return runCreate(ctx, repo, args[1:], out)
	case "show":
		return runShow(ctx, repo, args[1:], out)
	case "set":
		return runSet(ctx, repo, args[1:], out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func runCreate(ctx context.Context, repo *persistence.GormUserRepository, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	firstname := fs.String("firstname", "", "First name (required)")
	lastname := fs.String("lastname", "", "Last name, stored on the contact")
	email := fs.String("email", "", "Email, stored on the contact")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	user := &models.User{Firstname: *firstname}
	if *lastname != "" {
		if err := repo.SetLastname(ctx, user, *lastname); err != nil {
			return err
		}
	}
	if *email != "" {
		if err := repo.SetEmail(ctx, user, *email); err != nil {
			return err
		}
	}

	if err := repo.Create(ctx, user); err != nil {
		return err
	}
	fmt.Fprintln(out, user.ID)
	return nil
}

func runShow(ctx context.Context, repo *persistence.GormUserRepository, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: show takes exactly one id", errUsage)
	}
	user, err := findUser(ctx, repo, args[0])
	if err != nil {
		return err
	}
	return printUser(ctx, repo, user, out)
}

func runSet(ctx context.Context, repo *persistence.GormUserRepository, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	noCascade := fs.Bool("no-cascade", false, "Do not save the contact")
	skipValidation := fs.Bool("skip-validation", false, "Save without validating the user")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	positional := fs.Args()
	if len(positional) > 3 {
		// flags may also follow the positional arguments
		if err := fs.Parse(positional[3:]); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		if fs.NArg() > 0 {
			return fmt.Errorf("%w: unexpected argument %q", errUsage, fs.Arg(0))
		}
		positional = positional[:3]
	}
	if len(positional) != 3 {
		return fmt.Errorf("%w: set takes <id> <attribute> <value>", errUsage)
	}

	user, err := findUser(ctx, repo, positional[0])
	if err != nil {
		return err
	}

	attr, value := positional[1], positional[2]
	switch {
	case attr == "firstname":
		user.Firstname = value
	case repo.Delegator().Delegates(attr):
		if err := repo.Delegator().Write(ctx, user, attr, value); err != nil {
			return err
		}
	default:
		return &delegation.UnknownAttributeError{Model: "User", Attribute: attr}
	}

	var opts []delegation.SaveOption
	if *noCascade {
		opts = append(opts, delegation.Cascade(false))
	}
	if *skipValidation {
		opts = append(opts, delegation.SkipValidation())
	}
	if err := repo.SaveStrict(ctx, user, opts...); err != nil {
		return err
	}
	return printUser(ctx, repo, user, out)
}

func findUser(ctx context.Context, repo *persistence.GormUserRepository, raw string) (*models.User, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id %q", shared.ErrInvalidInput, raw)
	}
	user, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	return user, nil
}

func printUser(ctx context.Context, repo *persistence.GormUserRepository, user *models.User, out io.Writer) error {
	lastname, err := repo.Lastname(ctx, user)
	if err != nil {
		return err
	}
	email, err := repo.Email(ctx, user)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "id:        %s\n", user.ID)
	fmt.Fprintf(out, "firstname: %s\n", user.Firstname)
	fmt.Fprintf(out, "lastname:  %s\n", lastname)
	fmt.Fprintf(out, "email:     %s\n", email)
	if errs := user.Contact.Errors(); !errs.Empty() {
		fmt.Fprintf(out, "warnings:  %s\n", strings.Join(errs.FullMessages(), "; "))
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Contacts CLI

Usage:
  contacts [flags] <command> [arguments]

Commands:
  create -firstname NAME [-lastname NAME] [-email EMAIL]
            Create a user; prints its id
  show <id>
            Print a user with its delegated attributes
  set <id> <attribute> <value> [-no-cascade] [-skip-validation]
            Change firstname, lastname or email and save

Flags:
  -config string      Path to config file (default: ./config.toml)
  -log-level string   Log level (default: log.level from config)`)
}
