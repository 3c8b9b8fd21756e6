package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	fiberadapter "github.com/awslabs/aws-lambda-go-api-proxy/fiber"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/env"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/router"
)

// Collaborators are built during the init phase and reused by every warm
// invocation of the function.
var adapter *fiberadapter.FiberLambda

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return adapter.ProxyWithContextV2(ctx, req)
}

func main() {
	env.SetupEnvFile()

	svc, err := router.NewServicesFromEnv(context.Background())
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	adapter = fiberadapter.New(router.NewApplication(svc))

	lambda.Start(handler)
}
