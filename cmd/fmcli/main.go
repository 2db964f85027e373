// Package main provides the Focusmate developer CLI. It drives the client
// core end to end: sign-in against the API, list and item operations, and a
// watch mode that keeps an overview fresh while reacting to config changes.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/focusmate-app/focusmate-go/internal/buildinfo"
	"github.com/focusmate-app/focusmate-go/internal/config"
	"github.com/focusmate-app/focusmate-go/internal/logging"
	"github.com/focusmate-app/focusmate-go/internal/util"
	"github.com/focusmate-app/focusmate-go/sdk/api"
	"github.com/focusmate-app/focusmate-go/sdk/auth"
	"github.com/focusmate-app/focusmate-go/sdk/pinning"
	"github.com/focusmate-app/focusmate-go/sdk/services"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = "config.yaml"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

// app bundles the built client and its services for command dispatch.
type app struct {
	client   *api.Client
	provider *auth.FileProvider
	sessions *services.SessionService
	lists    *services.ListService
	items    *services.ItemService
}

func main() {
	fmt.Printf("Focusmate CLI Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	// .env is optional; real configuration lives in the YAML file.
	_ = godotenv.Load()

	var (
		configPath string
		login      bool
		logout     bool
		listLists  bool
		overview   bool
		watch      bool
		email      string
		addList    string
		addItem    string
		listID     int64
	)
	flag.StringVar(&configPath, "config", envOr("FOCUSMATE_CONFIG", DefaultConfigPath), "path to the YAML configuration file")
	flag.BoolVar(&login, "login", false, "sign in and persist the session tokens")
	flag.BoolVar(&logout, "logout", false, "revoke the session and delete persisted tokens")
	flag.BoolVar(&listLists, "lists", false, "print all lists")
	flag.BoolVar(&overview, "overview", false, "print all lists with their items")
	flag.BoolVar(&watch, "watch", false, "keep the overview running, reloading config on change")
	flag.StringVar(&email, "email", os.Getenv("FOCUSMATE_EMAIL"), "account email for -login")
	flag.StringVar(&addList, "add-list", "", "create a list with the given name")
	flag.StringVar(&addItem, "add-item", "", "create an item with the given title (requires -list)")
	flag.Int64Var(&listID, "list", 0, "list id for -add-item")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err = logging.ConfigureFileOutput(cfg); err != nil {
		log.Fatalf("configure logging: %v", err)
	}
	util.SetLogLevel(cfg)

	application, err := buildApp(ctx, cfg)
	if err != nil {
		log.Fatalf("build client: %v", err)
	}

	switch {
	case login:
		err = application.runLogin(ctx, email)
	case logout:
		err = application.runLogout(ctx)
	case addList != "":
		err = application.runAddList(ctx, addList)
	case addItem != "":
		err = application.runAddItem(ctx, listID, addItem)
	case listLists:
		err = application.runLists(ctx)
	case watch:
		err = application.runWatch(ctx, configPath)
	case overview:
		err = application.runOverview(ctx)
	default:
		flag.Usage()
		return
	}
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			fmt.Fprintln(os.Stderr, apiErr.UserMessage())
			log.Debugf("command failed: %v", apiErr)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// buildApp wires config, pinning, proxy, credential storage, and the refresh
// exchange into a ready-to-use client.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	policy := pinning.NewPolicy(cfg.Pinning.Hosts, cfg.Pinning.PublicKeyHashes, cfg.Pinning.Enforce)
	validator := pinning.NewValidator(policy)
	httpClient := &http.Client{
		Transport: pinning.NewTransport(validator),
		Timeout:   time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	}
	util.SetProxy(cfg, httpClient)

	authDir, err := util.ResolveAuthDir(cfg.AuthDir)
	if err != nil {
		return nil, err
	}
	store := auth.NewFileTokenStore(authDir)
	provider, err := auth.NewFileProvider(ctx, store)
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(api.Options{
		BaseURL:     cfg.BaseURL,
		HTTPClient:  httpClient,
		Credentials: provider,
		RefreshLead: time.Duration(cfg.RefreshLeadSeconds) * time.Second,
		RequestLog:  cfg.RequestLog,
		OnReauthRequired: func() {
			fmt.Fprintln(os.Stderr, "Session expired. Run fmcli -login to sign in again.")
		},
	})
	if err != nil {
		return nil, err
	}

	sessions := services.NewSessionService(client)
	client.SetRefreshFunc(sessions.RefreshFunc())

	return &app{
		client:   client,
		provider: provider,
		sessions: sessions,
		lists:    services.NewListService(client),
		items:    services.NewItemService(client),
	}, nil
}

func (a *app) runLogin(ctx context.Context, email string) error {
	reader := bufio.NewReader(os.Stdin)
	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		email = strings.TrimSpace(line)
	}
	fmt.Print("Password: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	password := strings.TrimSpace(line)

	session, err := a.sessions.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	record := &auth.TokenRecord{Email: session.User.Email}
	record.AccessToken = session.AccessToken
	record.RefreshToken = session.RefreshToken
	if expiry, ok := auth.TokenExpiry(session.AccessToken); ok {
		record.Expiry = expiry
	}
	if err = a.provider.SetRecord(ctx, record); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", session.User.Email)
	log.Debugf("stored access token %s", util.MaskToken(session.AccessToken))
	return nil
}

func (a *app) runLogout(ctx context.Context) error {
	if err := a.sessions.SignOut(ctx); err != nil {
		// Still drop local tokens; the server-side session is best effort.
		log.Warnf("server-side sign out failed: %v", err)
	}
	if err := a.provider.SignOut(ctx); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func (a *app) runLists(ctx context.Context) error {
	lists, err := a.lists.All(ctx)
	if err != nil {
		return err
	}
	for _, list := range lists {
		fmt.Printf("%6d  %-30s %d items\n", list.ID, list.Name, list.ItemsCount)
	}
	return nil
}

func (a *app) runAddList(ctx context.Context, name string) error {
	list, err := a.lists.Create(ctx, services.ListParams{Name: name})
	if err != nil {
		return err
	}
	fmt.Printf("Created list %d %q\n", list.ID, list.Name)
	return nil
}

func (a *app) runAddItem(ctx context.Context, listID int64, title string) error {
	if listID <= 0 {
		return fmt.Errorf("-add-item requires -list <id>")
	}
	item, err := a.items.Create(ctx, listID, services.ItemParams{Title: title})
	if err != nil {
		return err
	}
	fmt.Printf("Created item %d %q in list %d\n", item.ID, item.Title, item.ListID)
	return nil
}

// runOverview fetches every list's items concurrently and prints them grouped.
func (a *app) runOverview(ctx context.Context) error {
	lists, err := a.lists.All(ctx)
	if err != nil {
		return err
	}
	itemsByList := make([][]services.Item, len(lists))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for i, list := range lists {
		group.Go(func() error {
			items, itemErr := a.items.ForList(gctx, list.ID, nil)
			if itemErr != nil {
				return itemErr
			}
			itemsByList[i] = items
			return nil
		})
	}
	if err = group.Wait(); err != nil {
		return err
	}
	for i, list := range lists {
		fmt.Printf("%s (%d)\n", list.Name, len(itemsByList[i]))
		for _, item := range itemsByList[i] {
			marker := " "
			if item.Completed {
				marker = "x"
			}
			fmt.Printf("  [%s] %s\n", marker, item.Title)
		}
	}
	return nil
}

// runWatch refreshes the overview periodically and applies config changes
// (log level, file logging) without restarting.
func (a *app) runWatch(ctx context.Context, configPath string) error {
	go func() {
		err := config.Watch(ctx, configPath, func(newCfg *config.Config) {
			util.SetLogLevel(newCfg)
			if err := logging.ConfigureFileOutput(newCfg); err != nil {
				log.Errorf("reconfigure logging: %v", err)
			}
		})
		if err != nil && ctx.Err() == nil {
			log.Errorf("config watch stopped: %v", err)
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		if err := a.runOverview(ctx); err != nil {
			log.Errorf("overview refresh failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
