package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tutormatch/match-pipeline/internal/auth"
	"github.com/tutormatch/match-pipeline/internal/aws"
)

func main() {
	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	secretName := os.Getenv("SECRET_NAME")
	if secretName == "" {
		secretName = "/api/token"
	}
	provider := aws.NewSecretsProvider(clients.SecretsManager)

	lambda.Start(func(ctx context.Context, req events.APIGatewayCustomAuthorizerRequest) (events.APIGatewayCustomAuthorizerResponse, error) {
		key, err := provider.APIKey(ctx, secretName)
		if err != nil {
			// deny on any error rather than failing the invocation
			log.Printf("authorization error: %v", err)
			return auth.BuildPolicy("unauthorized", auth.EffectDeny, req.MethodArn), nil
		}
		return auth.Authorize(req.AuthorizationToken, key, req.MethodArn), nil
	})
}
