package conf

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"goa.design/clue/log"
)

// ResolveSecrets fills the JWT key from AWS Secrets Manager when only a
// secret name is configured. The secret may be the raw key or a JSON
// object with a "key" field.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	if c.Jwt.Key != "" || c.Jwt.SecretName == "" {
		return nil
	}

	value, err := getSecretFromAWS(ctx, c.Store.Region, c.Jwt.SecretName)
	if err != nil {
		return fmt.Errorf("failed to get jwt key from AWS: %w", err)
	}

	c.Jwt.Key = parseJwtSecret(value)
	if c.Jwt.Key == "" {
		return fmt.Errorf("secret %s holds an empty jwt key", c.Jwt.SecretName)
	}
	return nil
}

func parseJwtSecret(value string) string {
	var secret struct {
		Key string `json:"key"`
	}
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &secret) == nil {
		return secret.Key
	}
	return trimmed
}

func getSecretFromAWS(ctx context.Context, region string, secretName string) (string, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithLogger(log.AsAWSLogger(ctx)))
	if err != nil {
		return "", err
	}
	svc := secretsmanager.NewFromConfig(cfg)
	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	result, err := svc.GetSecretValue(ctx, input)
	if err != nil {
		return "", err
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretName)
	}
	return *result.SecretString, nil
}
