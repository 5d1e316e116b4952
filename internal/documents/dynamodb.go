package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

var documentsTracer = otel.Tracer("portal.internal.documents")

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore keeps each collection in its own table, keyed by the string
// attribute "id". Table names are tablePrefix + collection.
type DynamoStore struct {
	client      dynamoAPI
	tablePrefix string
	maxResults  int
	logger      *logging.Logger
}

var _ Store = (*DynamoStore)(nil)

// NewDynamoStore builds a store backed by the provided DynamoDB client.
func NewDynamoStore(client dynamoAPI, tablePrefix string, maxResults int, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("documents: dynamodb client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &DynamoStore{client: client, tablePrefix: tablePrefix, maxResults: maxResults, logger: logger}
}

// TableName returns the table backing a collection.
func (s *DynamoStore) TableName(collection string) string {
	return s.tablePrefix + collection
}

func (s *DynamoStore) Get(ctx context.Context, collection, id string) (Record, error) {
	if err := validateKey(collection, id); err != nil {
		return nil, err
	}
	ctx, span := documentsTracer.Start(ctx, "documents.dynamodb.get")
	defer span.End()
	span.SetAttributes(attribute.String("portal.collection", collection))

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.TableName(collection)),
		Key:            map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("documents: get %s/%s: %w", collection, id, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("documents: unmarshal %s/%s: %w", collection, id, err)
	}
	return rec, nil
}

func (s *DynamoStore) Set(ctx context.Context, collection, id string, fields Record) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	ctx, span := documentsTracer.Start(ctx, "documents.dynamodb.set")
	defer span.End()
	span.SetAttributes(attribute.String("portal.collection", collection))

	item, err := attributevalue.MarshalMap(withID(fields, id))
	if err != nil {
		return fmt.Errorf("documents: marshal %s/%s: %w", collection, id, err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.TableName(collection)),
		Item:      item,
	}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("documents: put %s/%s: %w", collection, id, err)
	}
	return nil
}

// Query scans the collection table with a filter expression, following
// pagination until limit matches are collected or the table is exhausted.
func (s *DynamoStore) Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Record, error) {
	if strings.TrimSpace(collection) == "" {
		return nil, ErrInvalidKey
	}
	ctx, span := documentsTracer.Start(ctx, "documents.dynamodb.query")
	defer span.End()
	span.SetAttributes(attribute.String("portal.collection", collection))

	limit = effectiveLimit(limit, s.maxResults)
	input := &dynamodb.ScanInput{TableName: aws.String(s.TableName(collection))}
	if len(filters) > 0 {
		names := make(map[string]string, len(filters))
		values := make(map[string]types.AttributeValue, len(filters))
		clauses := make([]string, 0, len(filters))
		for i, f := range filters {
			name := fmt.Sprintf("#f%d", i)
			value := fmt.Sprintf(":v%d", i)
			names[name] = f.Field
			values[value] = &types.AttributeValueMemberS{Value: f.Value}
			clauses = append(clauses, name+" = "+value)
		}
		input.FilterExpression = aws.String(strings.Join(clauses, " AND "))
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}

	var out []Record
	for {
		page, err := s.client.Scan(ctx, input)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("documents: scan %s: %w", collection, err)
		}
		for _, item := range page.Items {
			var rec Record
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				return nil, fmt.Errorf("documents: unmarshal %s item: %w", collection, err)
			}
			out = append(out, rec)
			if len(out) == limit {
				return out, nil
			}
		}
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

// IsMissingTable reports whether err came from a table that does not exist.
func IsMissingTable(err error) bool {
	var notFound *types.ResourceNotFoundException
	return errors.As(err, &notFound)
}
