package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/loyaltyhub/go-auth-client/apiclient"
	"github.com/loyaltyhub/go-auth-client/authapi"
	"github.com/loyaltyhub/go-auth-client/credentials"
	"github.com/loyaltyhub/go-auth-client/credentials/filekv"
	"github.com/loyaltyhub/go-auth-client/credentials/memkv"
	"github.com/loyaltyhub/go-auth-client/credentials/rediskv"
	"github.com/loyaltyhub/go-auth-client/internal/config"
	"github.com/loyaltyhub/go-auth-client/internal/logging"
	"github.com/loyaltyhub/go-auth-client/session"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Console(cfg.LogLevel)

	if len(args) == 0 {
		usage()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, cleanup, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	api, err := apiclient.New(cfg.BaseURL, logger, apiclient.WithTimeout(cfg.Timeout))
	if err != nil {
		return err
	}
	authClient, err := authapi.New(api)
	if err != nil {
		return err
	}
	store, err := credentials.NewStore(kv,
		credentials.WithNamespace(cfg.StorageNamespace),
		credentials.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	manager, err := session.NewManager(authClient, store, session.WithLogger(logger))
	if err != nil {
		return err
	}

	manager.Restore(ctx)

	switch args[0] {
	case "status":
		printSnapshot(manager.Snapshot())
		return nil

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		phone := fs.String("phone", "", "phone number")
		password := fs.String("password", "", "password (optional for OTP accounts)")
		fs.Parse(args[1:])
		if *phone == "" {
			return fmt.Errorf("login requires -phone")
		}
		if err := manager.Login(ctx, *phone, *password); err != nil {
			return err
		}
		printSnapshot(manager.Snapshot())
		return nil

	case "login-email":
		fs := flag.NewFlagSet("login-email", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		fs.Parse(args[1:])
		if *email == "" || *password == "" {
			return fmt.Errorf("login-email requires -email and -password")
		}
		if err := manager.LoginWithEmail(ctx, *email, *password); err != nil {
			return err
		}
		printSnapshot(manager.Snapshot())
		return nil

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		phone := fs.String("phone", "", "phone number")
		name := fs.String("name", "", "full name")
		email := fs.String("email", "", "email (optional)")
		password := fs.String("password", "", "password (optional)")
		fs.Parse(args[1:])
		if *phone == "" || *name == "" {
			return fmt.Errorf("register requires -phone and -name")
		}
		input := authapi.RegisterInput{
			PhoneNumber: *phone,
			FullName:    *name,
			Email:       *email,
			Password:    *password,
		}
		if err := manager.Register(ctx, input); err != nil {
			return err
		}
		printSnapshot(manager.Snapshot())
		return nil

	case "otp-request":
		fs := flag.NewFlagSet("otp-request", flag.ExitOnError)
		phone := fs.String("phone", "", "phone number")
		fs.Parse(args[1:])
		if *phone == "" {
			return fmt.Errorf("otp-request requires -phone")
		}
		otp, err := manager.RequestOTP(ctx, *phone)
		if err != nil {
			return err
		}
		fmt.Printf("%s (code expires in %ds)\n", otp.Message, otp.ExpiresIn)
		return nil

	case "otp-verify":
		fs := flag.NewFlagSet("otp-verify", flag.ExitOnError)
		phone := fs.String("phone", "", "phone number")
		code := fs.String("code", "", "one-time code")
		fs.Parse(args[1:])
		if *phone == "" || *code == "" {
			return fmt.Errorf("otp-verify requires -phone and -code")
		}
		if err := manager.LoginWithOTP(ctx, *phone, *code); err != nil {
			return err
		}
		printSnapshot(manager.Snapshot())
		return nil

	case "google-url":
		authURL, err := manager.GoogleAuthURL(ctx)
		if err != nil {
			return err
		}
		fmt.Println(authURL)
		return nil

	case "me":
		if err := manager.RefreshUser(ctx); err != nil {
			return err
		}
		printSnapshot(manager.Snapshot())
		return nil

	case "logout":
		if err := manager.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// newBackend builds the credential KV backend selected by configuration and
// returns a cleanup func for it.
func newBackend(ctx context.Context, cfg config.Config) (credentials.KV, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		store, err := rediskv.NewFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	case config.BackendFile:
		store, err := filekv.New(filepath.Join(cfg.DataFolder, cfg.StorageNamespace+".json"))
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	default:
		return memkv.New(), func() {}, nil
	}
}

func printSnapshot(snapshot session.Snapshot) {
	if !snapshot.IsAuthenticated() {
		fmt.Println("Not authenticated.")
		return
	}
	user := snapshot.User
	fmt.Printf("Authenticated as %s (id %d, role %s)\n", user.FullName, user.ID, user.Role)
	fmt.Printf("  phone: %s (verified: %t)\n", user.PhoneNumber, user.PhoneVerified)
	if user.Email != "" {
		fmt.Printf("  email: %s (verified: %t)\n", user.Email, user.EmailVerified)
	}
}

func usage() {
	figure.NewFigure("Auth CLI", "cybermedium", true).Print()
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  status                                   show session state")
	fmt.Println("  login -phone P [-password PW]            phone login")
	fmt.Println("  login-email -email E -password PW        email login")
	fmt.Println("  register -phone P -name N [-email E] [-password PW]")
	fmt.Println("  otp-request -phone P                     send one-time code")
	fmt.Println("  otp-verify -phone P -code C              login with code")
	fmt.Println("  google-url                               print Google auth URL")
	fmt.Println("  me                                       refresh and show profile")
	fmt.Println("  logout                                   clear the session")
}
