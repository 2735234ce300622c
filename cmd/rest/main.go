package main

import (
	"context"
	"log"

	"ai-orchestrator-be/internal/bootstrap"
	"ai-orchestrator-be/internal/config"
	"ai-orchestrator-be/internal/server"
	"ai-orchestrator-be/internal/tracer"
	"ai-orchestrator-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Bus.Close()
	defer container.Publisher.Close()

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}
