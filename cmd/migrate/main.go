// Command migrate aplica las migraciones de esquema contra el Postgres
// configurado. Usa las migraciones embebidas por defecto; con -dir se puede
// apuntar a un directorio externo (útil durante el desarrollo de una nueva
// migración).
package main

import (
	"context"
	"flag"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/didjohn/internal/config"
	pgstore "github.com/dropDatabas3/didjohn/internal/store/pg"
	migrations "github.com/dropDatabas3/didjohn/migrations/postgres"
)

func main() {
	var (
		configPath = flag.String("config", "", "ruta al config YAML (opcional, env manda)")
		envFile    = flag.String("env-file", ".env", "ruta a .env")
		dir        = flag.String("dir", "", "directorio de migraciones (default: embebidas)")
	)
	flag.Parse()

	if *envFile != "" {
		_ = godotenv.Load(*envFile)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.Postgres.DSN == "" {
		log.Fatal("migrate requiere storage.driver=postgres con DSN configurado")
	}

	var fsys fs.FS = migrations.FS
	if *dir != "" {
		fsys = os.DirFS(*dir)
	}

	ctx := context.Background()
	store, err := pgstore.New(ctx, cfg.Storage.Postgres.DSN, pgstore.Config{})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx, fsys); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("migrations applied")
}
