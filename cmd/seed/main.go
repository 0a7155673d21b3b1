// seed inserts the development fixture (tenants, roles, permissions, users). Idempotent: rows that
// already exist are left as they are.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/config"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/db"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/security"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/seed"
)

func main() {
	file := flag.String("file", "", "YAML fixture to apply (default: embedded development fixture)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}

	var fixture *seed.Fixture
	if *file == "" {
		fixture, err = seed.Default()
	} else {
		var raw []byte
		raw, err = os.ReadFile(*file)
		if err == nil {
			fixture, err = seed.Parse(raw)
		}
	}
	if err != nil {
		log.Fatalf("fixture: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	res, err := seed.Apply(context.Background(), conn, fixture, security.NewHasher(cfg.BcryptCost))
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seed: inserted %d tenants, %d users, %d memberships", res.Tenants, res.Users, res.Memberships)
}
