package main

import (
	"context"
	"fmt"
	"log"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/env"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/router"
)

func main() {
	env.SetupEnvFile()

	svc, err := router.NewServicesFromEnv(context.Background())
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	app := router.NewApplication(svc)
	err = app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}
