package bootstrap

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	appconfig "github.com/wolfman30/prescription-ai-portal/internal/config"
	"github.com/wolfman30/prescription-ai-portal/internal/documents"
	"github.com/wolfman30/prescription-ai-portal/internal/events"
	"github.com/wolfman30/prescription-ai-portal/internal/identity"
	"github.com/wolfman30/prescription-ai-portal/internal/notify"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

// BuildDocumentStore selects the document store named by DOCUMENT_STORE.
func BuildDocumentStore(cfg *appconfig.Config, awsCfg aws.Config, pool *pgxpool.Pool, logger *logging.Logger) (documents.Store, error) {
	switch cfg.DocumentStore {
	case "", "memory":
		logger.Warn("using in-memory document store; data is lost on restart")
		return documents.NewMemoryStore(), nil
	case "dynamodb":
		client := dynamodb.NewFromConfig(awsCfg)
		logger.Info("using dynamodb document store", "table_prefix", cfg.DynamoTablePrefix)
		return documents.NewDynamoStore(client, cfg.DynamoTablePrefix, cfg.DocumentQueryLimit, logger), nil
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("bootstrap: DOCUMENT_STORE=postgres requires DATABASE_URL")
		}
		logger.Info("using postgres document store")
		return documents.NewPostgresStore(pool, cfg.DocumentQueryLimit, logger), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown DOCUMENT_STORE %q", cfg.DocumentStore)
	}
}

// BuildIdentityBackend selects the identity provider named by IDENTITY_PROVIDER.
func BuildIdentityBackend(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (identity.Backend, error) {
	switch cfg.IdentityProvider {
	case "", "local":
		logger.Warn("using local identity provider; accounts are lost on restart")
		return identity.NewLocalBackend(bcrypt.DefaultCost), nil
	case "cognito":
		if strings.TrimSpace(cfg.CognitoUserPoolID) == "" || strings.TrimSpace(cfg.CognitoClientID) == "" {
			return nil, fmt.Errorf("bootstrap: cognito requires COGNITO_USER_POOL_ID and COGNITO_CLIENT_ID")
		}
		logger.Info("using cognito identity provider", "user_pool_id", cfg.CognitoUserPoolID)
		return identity.NewCognitoBackend(cip.NewFromConfig(awsCfg), identity.CognitoConfig{
			Region:     cfg.AWSRegion,
			UserPoolID: cfg.CognitoUserPoolID,
			ClientID:   cfg.CognitoClientID,
		}, logger), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown IDENTITY_PROVIDER %q", cfg.IdentityProvider)
	}
}

// BuildNotificationFeed returns the Redis feed when NOTIFICATION_FEED=redis
// and a client is available, otherwise the in-memory feed.
func BuildNotificationFeed(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) notify.Feed {
	if cfg.NotificationFeed == "redis" {
		if redisClient != nil {
			return notify.NewRedisFeed(redisClient, cfg.NotificationTTL, cfg.NotificationMaxKeep)
		}
		logger.Warn("redis notification feed requested but redis unavailable; using memory feed")
	}
	return notify.NewMemoryFeed(cfg.NotificationMaxKeep)
}

// BuildEmailSender selects the welcome email transport.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if cfg.SendGridAPIKey != "" {
			return notify.NewSendGridSender(notify.SendGridConfig{
				APIKey:    cfg.SendGridAPIKey,
				FromEmail: cfg.EmailFromAddress,
				FromName:  cfg.EmailFromName,
			}, logger)
		}
		logger.Warn("sendgrid selected but SENDGRID_API_KEY empty; emails will be logged only")
	case "ses":
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail:        cfg.EmailFromAddress,
			FromName:         cfg.EmailFromName,
			ConfigurationSet: cfg.SESConfigurationSet,
		}, logger)
	}
	return notify.NewStubEmailSender(logger)
}

// BuildEventSink returns the publisher events are delivered to: SQS when a
// queue is configured, otherwise the log.
func BuildEventSink(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) events.Publisher {
	if strings.TrimSpace(cfg.PatientEventsQueueURL) != "" {
		return events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.PatientEventsQueueURL, logger)
	}
	return events.NewLogPublisher(logger)
}
