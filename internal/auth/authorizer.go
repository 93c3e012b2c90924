package auth

import (
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Effects for the generated IAM policy.
const (
	EffectAllow = "Allow"
	EffectDeny  = "Deny"
)

// Authorize validates the presented bearer token against the expected API key
// and returns the API Gateway policy. An empty expected key denies everything.
func Authorize(token, expectedKey, methodArn string) events.APIGatewayCustomAuthorizerResponse {
	token = strings.TrimPrefix(token, "Bearer ")

	if token != "" && token == expectedKey {
		return BuildPolicy("authorized-user", EffectAllow, methodArn)
	}
	return BuildPolicy("unauthorized", EffectDeny, methodArn)
}

// BuildPolicy returns an execute-api policy for methodArn with the given effect.
func BuildPolicy(principalID, effect, methodArn string) events.APIGatewayCustomAuthorizerResponse {
	return events.APIGatewayCustomAuthorizerResponse{
		PrincipalID: principalID,
		PolicyDocument: events.APIGatewayCustomAuthorizerPolicy{
			Version: "2012-10-17",
			Statement: []events.IAMPolicyStatement{
				{
					Action:   []string{"execute-api:Invoke"},
					Effect:   effect,
					Resource: []string{methodArn},
				},
			},
		},
		Context: map[string]interface{}{
			"authorized": effect == EffectAllow,
		},
	}
}
