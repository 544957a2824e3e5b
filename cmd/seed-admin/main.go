package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/playmatatu/plinko/internal/admin"
	"github.com/playmatatu/plinko/internal/config"
	"github.com/playmatatu/plinko/internal/database"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	username := flag.String("username", os.Getenv("ADMIN_USERNAME"), "operator username")
	displayName := flag.String("name", "Admin", "display name")
	rolesFlag := flag.String("roles", "superadmin", "comma separated roles (superadmin, recorder, config)")
	ipsFlag := flag.String("allowed-ips", "", "comma separated IPs or CIDRs; empty allows any")
	flag.Parse()

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if *username == "" {
		*username = "admin"
		log.Printf("Using default admin username: %s", *username)
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		adminToken = "change-me-in-production"
		log.Printf("WARNING: Using default admin token. Set ADMIN_TOKEN env var in production!")
	}

	roles := splitList(*rolesFlag)
	allowedIPs := splitList(*ipsFlag)

	if err := admin.CreateAdminAccount(context.Background(), db, *username, *displayName, adminToken, roles, allowedIPs); err != nil {
		log.Fatalf("Failed to create admin account: %v", err)
	}

	log.Printf("Admin account created/updated successfully")
	log.Printf("  Username: %s", *username)
	log.Printf("  Display Name: %s", *displayName)
	log.Printf("  Roles: %v", roles)
	log.Printf("  Allowed IPs: %v", allowedIPs)
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
