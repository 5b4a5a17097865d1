// Command check-upstream logs in to the payment API and fetches the dashboard
// stats, printing what the portal would see. It is a connectivity check for
// deployments.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/payment-portal/internal/config"
	"github.com/garyjia/payment-portal/internal/gateway"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config.yaml (empty for env only)")
	baseURL := flag.String("base-url", "", "Payment API base URL (overrides config)")
	email := flag.String("email", "", "Login email (or set CHECK_EMAIL)")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger = zap.NewNop()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	gwConfig := gateway.Config{BaseURL: *baseURL, Timeout: *timeout}
	if *baseURL == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		gwConfig = cfg.GatewayConfig()
	}

	if *email == "" {
		*email = os.Getenv("CHECK_EMAIL")
	}
	password := os.Getenv("CHECK_PASSWORD")
	if *email == "" || password == "" {
		fmt.Fprintf(os.Stderr, "ERROR: login email and CHECK_PASSWORD are required\n")
		fmt.Fprintf(os.Stderr, "Usage: CHECK_PASSWORD=... check-upstream --email user@example.com [--base-url https://...]\n")
		os.Exit(1)
	}

	fmt.Println("=== Payment API Check ===")
	fmt.Printf("  Base URL: %s\n", gwConfig.BaseURL)
	fmt.Printf("  Login: %s\n", *email)
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	api := gateway.NewAPI(gateway.NewClient(gwConfig, logger), "")
	notices := &gateway.Notices{}

	fmt.Println("1. Logging in...")
	start := time.Now()
	result, ok := api.Login(ctx, notices, *email, password)
	if !ok {
		fail(notices)
	}
	fmt.Printf("   OK in %v: %s (id %d, role %s)\n", time.Since(start).Round(time.Millisecond), result.User.Name, result.User.ID, result.User.Role)

	scope := gateway.Scope{Token: result.Access, Notifier: notices}

	fmt.Println("2. Fetching dashboard stats...")
	start = time.Now()
	stats, ok := api.DashboardStats(ctx, scope)
	if !ok {
		fail(notices)
	}
	fmt.Printf("   OK in %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Total: %d  Pending: %d  Approved: %d  Rejected: %d  Awaiting me: %d\n",
		stats.TotalRequests, stats.Pending, stats.Approved, stats.Rejected, stats.AwaitingMyTurn)

	fmt.Println("3. Logging out...")
	if !api.Logout(ctx, scope, result.Refresh) {
		fail(notices)
	}
	fmt.Println("   OK")

	fmt.Println()
	fmt.Println("Payment API is reachable and answering.")
}

func fail(notices *gateway.Notices) {
	msg := "unknown error"
	if n, ok := notices.Last(); ok {
		msg = fmt.Sprintf("%s (%s)", n.Message, n.Kind)
	}
	fmt.Fprintf(os.Stderr, "   FAILED: %s\n", msg)
	os.Exit(1)
}
