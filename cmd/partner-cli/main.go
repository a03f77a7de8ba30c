package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/OpenMoove/partnerapi"
	"github.com/OpenMoove/partnerapi/internal/bulk"
	"github.com/OpenMoove/partnerapi/internal/cli"
	"github.com/OpenMoove/partnerapi/webhook"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "login":
		cmdLogin(os.Args[2:])
	case "profiles":
		cmdProfiles(os.Args[2:])
	case "use":
		cmdUse(os.Args[2:])
	case "active":
		cmdActive()
	case "products":
		cmdProducts(os.Args[2:])
	case "properties":
		cmdProperties(os.Args[2:])
	case "property":
		cmdProperty(os.Args[2:])
	case "milestones":
		cmdMilestones(os.Args[2:])
	case "create-client":
		cmdCreateClient(os.Args[2:])
	case "import":
		cmdImport(os.Args[2:])
	case "listen":
		cmdListen(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// newClient builds an SDK client from the selected profile.
func newClient(profileName string) *partnerapi.Client {
	profile, err := cli.ActiveProfile(profileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Save a profile first with: partner-cli login -name <name> -key <api-key>")
		os.Exit(1)
	}

	opts := []partnerapi.Option{}
	if profile.BaseURL != "" {
		opts = append(opts, partnerapi.WithBaseURL(profile.BaseURL))
	}
	return partnerapi.New(profile.APIKey, opts...)
}

func cmdLogin(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	name := fs.String("name", "default", "Profile name")
	key := fs.String("key", "", "Partner API key (required)")
	baseURL := fs.String("base-url", "", "Override API base URL (e.g. staging)")
	setActive := fs.Bool("set-active", true, "Set this profile as active")
	fs.Parse(args)

	if *key == "" {
		fmt.Fprintln(os.Stderr, "Usage: partner-cli login -name <name> -key <api-key> [-base-url URL]")
		os.Exit(1)
	}

	profile, err := cli.SaveProfile(*name, *key, *baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Saved profile %q\n", profile.Name)

	if *setActive {
		if err := cli.SetActive(profile.Name); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not set active profile: %v\n", err)
		} else {
			fmt.Printf("Active profile set to %q\n", profile.Name)
		}
	}
}

func cmdProfiles(args []string) {
	// Handle delete subcommand.
	if len(args) > 0 && args[0] == "delete" {
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: partner-cli profiles delete <name>")
			os.Exit(1)
		}
		if err := cli.DeleteProfile(args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Deleted profile %q\n", args[1])
		return
	}

	profiles, err := cli.ListProfiles()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(profiles) == 0 {
		fmt.Println("No profiles found. Save one with: partner-cli login -name <name> -key <api-key>")
		return
	}

	active, _ := cli.GetActive()

	fmt.Printf("%-20s %-40s %s\n", "NAME", "BASE URL", "ACTIVE")
	for _, p := range profiles {
		marker := ""
		if p.Name == active {
			marker = " *"
		}
		baseURL := p.BaseURL
		if baseURL == "" {
			baseURL = "(production)"
		}
		fmt.Printf("%-20s %-40s %s\n", p.Name, baseURL, marker)
	}
}

func cmdUse(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: partner-cli use <profile-name>")
		os.Exit(1)
	}

	if err := cli.SetActive(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Active profile set to %q\n", args[0])
}

func cmdActive() {
	active, _ := cli.GetActive()
	if active == "" {
		fmt.Println("No active profile. Set one with: partner-cli use <name>")
		return
	}

	profile, err := cli.LoadProfile(active)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading active profile: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Active profile: %s\n", profile.Name)
	if profile.BaseURL != "" {
		fmt.Printf("Base URL:       %s\n", profile.BaseURL)
	} else {
		fmt.Printf("Base URL:       %s\n", partnerapi.DefaultBaseURL)
	}
}

func cmdProducts(args []string) {
	fs := flag.NewFlagSet("products", flag.ExitOnError)
	profileName := fs.String("profile", "", "Profile to use (default: active profile)")
	fs.Parse(args)

	client := newClient(*profileName)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	products, err := client.AllProducts(ctx)
	if err != nil {
		exitAPIError(err)
	}

	fmt.Printf("%-8s %-25s %-35s %s\n", "ID", "CODE", "NAME", "ACTIVE")
	for _, p := range products {
		fmt.Printf("%-8d %-25s %-35s %v\n", p.ID, p.Code, p.Name, p.Active)
	}
}

func cmdProperties(args []string) {
	fs := flag.NewFlagSet("properties", flag.ExitOnError)
	profileName := fs.String("profile", "", "Profile to use (default: active profile)")
	page := fs.Int("page", 1, "Page number")
	pageSize := fs.Int("page-size", 50, "Page size")
	fs.Parse(args)

	client := newClient(*profileName)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := client.ListProperties(ctx, partnerapi.ListOptions{Page: *page, PageSize: *pageSize})
	if err != nil {
		exitAPIError(err)
	}

	fmt.Printf("%d properties (showing page %d)\n\n", result.Count, *page)
	fmt.Printf("%-8s %-12s %-10s %-12s %s\n", "ID", "REFERENCE", "TYPE", "STATUS", "ADDRESS")
	for _, p := range result.Results {
		fmt.Printf("%-8d %-12s %-10s %-12s %s, %s %s\n",
			p.ID, p.Reference, p.TransactionType, p.Status,
			p.Address.Line1, p.Address.City, p.Address.Postcode)
	}
}

func cmdProperty(args []string) {
	fs := flag.NewFlagSet("property", flag.ExitOnError)
	profileName := fs.String("profile", "", "Profile to use (default: active profile)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: partner-cli property <id>")
		os.Exit(1)
	}
	id := parseID(fs.Arg(0))

	client := newClient(*profileName)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := client.GetProperty(ctx, id)
	if err != nil {
		exitAPIError(err)
	}

	fmt.Printf("Property:   %d (%s)\n", p.ID, p.Reference)
	fmt.Printf("Type:       %s\n", p.TransactionType)
	fmt.Printf("Status:     %s\n", p.Status)
	fmt.Printf("Address:    %s, %s %s\n", p.Address.Line1, p.Address.City, p.Address.Postcode)
	fmt.Printf("Created:    %s\n", p.CreatedAt.Format(time.RFC3339))
	if len(p.PDTF) > 0 {
		fmt.Printf("PDTF data:  %d bytes\n", len(p.PDTF))
	}
}

func cmdMilestones(args []string) {
	fs := flag.NewFlagSet("milestones", flag.ExitOnError)
	profileName := fs.String("profile", "", "Profile to use (default: active profile)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: partner-cli milestones <property-id>")
		os.Exit(1)
	}
	propertyID := parseID(fs.Arg(0))

	client := newClient(*profileName)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	milestones, err := client.AllMilestones(ctx, propertyID)
	if err != nil {
		exitAPIError(err)
	}

	fmt.Printf("%-22s %-30s %-12s %s\n", "KEY", "NAME", "STATUS", "COMPLETED")
	for _, m := range milestones {
		completed := "-"
		if m.CompletedAt != nil {
			completed = m.CompletedAt.Format("2006-01-02")
		}
		fmt.Printf("%-22s %-30s %-12s %s\n", m.Key, m.Name, m.Status, completed)
	}
}

func cmdCreateClient(args []string) {
	fs := flag.NewFlagSet("create-client", flag.ExitOnError)
	profileName := fs.String("profile", "", "Profile to use (default: active profile)")
	file := fs.String("file", "", "JSON file with the client record (required)")
	fs.Parse(args)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: partner-cli create-client -file <record.json>")
		os.Exit(1)
	}

	req, err := readClientRecord(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client := newClient(*profileName)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rec, err := client.CreateClient(ctx, req)
	if err != nil {
		exitAPIError(err)
	}

	fmt.Printf("Created client %d (%s %s)\n", rec.ID, rec.FirstName, rec.LastName)
	fmt.Printf("Property transaction: %d\n", rec.PropertyID)
}

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	profileName := fs.String("profile", "", "Profile to use (default: active profile)")
	file := fs.String("file", "", "JSON file with an array of client records (required)")
	concurrency := fs.Int("concurrency", 4, "Concurrent requests")
	pause := fs.Duration("pause", 0, "Pause between request starts")
	fs.Parse(args)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: partner-cli import -file <clients.json> [-concurrency N] [-pause 250ms]")
		os.Exit(1)
	}

	client := newClient(*profileName)
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)

	importer := bulk.New(client, logger)
	importer.Concurrency = *concurrency
	importer.Pause = *pause

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	results, err := importer.ImportFile(ctx, *file)

	succeeded, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  row %d (%s): %v\n", r.Index, r.Email, r.Err)
		} else if r.ClientID != 0 {
			succeeded++
		}
	}
	fmt.Printf("Imported %d clients, %d failed\n", succeeded, failed)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Import aborted: %v\n", err)
		os.Exit(1)
	}
}

func cmdListen(args []string) {
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	addr := fs.String("addr", ":8090", "Listen address")
	secret := fs.String("secret", os.Getenv("OPENMOOVE_WEBHOOK_SECRET"), "Webhook signing secret")
	fs.Parse(args)

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "Error: webhook secret required (-secret or OPENMOOVE_WEBHOOK_SECRET)")
		os.Exit(1)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	handler := webhook.NewHandler(*secret, logger)
	for _, eventType := range []string{webhook.TypeClientCreated, webhook.TypePropertyCreated, webhook.TypeMilestoneUpdated} {
		handler.On(eventType, func(_ context.Context, evt webhook.Event) error {
			fmt.Printf("%s  %-20s %s  %s\n", evt.CreatedAt.Format(time.RFC3339), evt.Type, evt.ID, string(evt.Data))
			return nil
		})
	}

	mux := http.NewServeMux()
	mux.Handle("/webhooks/openmoove", handler)

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		fmt.Printf("Listening for webhooks on %s/webhooks/openmoove\n", *addr)
		fmt.Println("Press Ctrl+C to stop.")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listener failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
}

func parseID(s string) int64 {
	var id int64
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid ID: %s\n", s)
		os.Exit(1)
	}
	return id
}

func readClientRecord(path string) (partnerapi.CreateClientRequest, error) {
	var req partnerapi.CreateClientRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read record file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("parse record file: %w", err)
	}
	return req, nil
}

// exitAPIError prints wire errors with their field detail before exiting.
func exitAPIError(err error) {
	var apiErr *partnerapi.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(os.Stderr, "Error: API returned %d\n", apiErr.StatusCode)
		if apiErr.Detail != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", apiErr.Detail)
		}
		for _, msg := range apiErr.NonFieldErrors {
			fmt.Fprintf(os.Stderr, "  %s\n", msg)
		}
		for field, msgs := range apiErr.FieldErrors {
			for _, msg := range msgs {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
			}
		}
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `partner-cli - OpenMoove Partner API command-line client

Usage:
  partner-cli login -name <name> -key <api-key> [-base-url URL]
  partner-cli profiles [delete <name>]
  partner-cli use <name>
  partner-cli active
  partner-cli products
  partner-cli properties [-page N] [-page-size N]
  partner-cli property <id>
  partner-cli milestones <property-id>
  partner-cli create-client -file <record.json>
  partner-cli import -file <clients.json> [-concurrency N] [-pause 250ms]
  partner-cli listen -secret <webhook-secret> [-addr :8090]

Commands:
  login          Save an API key as a named profile
  profiles       List saved profiles (or delete one)
  use            Set the active profile
  active         Show the active profile
  products       List the product catalogue
  properties     List property transactions
  property       Show one property transaction
  milestones     Show the milestone timeline for a property
  create-client  Create a client and their property transaction
  import         Bulk-import clients from a JSON array
  listen         Receive and print signed webhooks locally

Profiles are stored in ~/.config/openmoove/profiles/.`)
}
