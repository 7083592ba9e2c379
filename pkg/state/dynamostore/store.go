// Package dynamostore persists session snapshots in a DynamoDB table keyed
// by the string attribute "id".
package dynamostore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/goliatone/go-session-state/pkg/state"
)

// DefaultTable is used when Config.Table is empty.
const DefaultTable = "session_snapshots"

// API is the subset of the DynamoDB client the store calls.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Config holds configuration for the Store.
type Config struct {
	// Table is the snapshot table name.
	// Default: "session_snapshots"
	Table string
	// ConsistentRead requests strongly consistent reads on Load.
	ConsistentRead bool
}

func (c *Config) validate() {
	if c.Table == "" {
		c.Table = DefaultTable
	}
}

// Store implements state.Store over DynamoDB.
type Store struct {
	client API
	config Config
}

type record struct {
	ID         string            `dynamodbav:"id"`
	Session    string            `dynamodbav:"session_id"`
	Model      string            `dynamodbav:"model"`
	Snapshot   state.Snapshot    `dynamodbav:"snapshot"`
	SnapshotID string            `dynamodbav:"snapshot_id,omitempty"`
	ETag       string            `dynamodbav:"etag,omitempty"`
	UpdatedAt  string            `dynamodbav:"updated_at"`
	Extra      map[string]string `dynamodbav:"extra,omitempty"`
}

// New creates a Store over client.
func New(client API, config Config) *Store {
	config.validate()
	return &Store{client: client, config: config}
}

// NewFromEnv loads the default AWS configuration (environment, shared
// config files, instance roles) and builds a DynamoDB client from it.
func NewFromEnv(ctx context.Context, config Config, optFns ...func(*awsconfig.LoadOptions) error) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("dynamostore: load aws config: %w", err)
	}
	return New(dynamodb.NewFromConfig(cfg), config), nil
}

// Table returns the configured table name.
func (s *Store) Table() string { return s.config.Table }

// Load reads the snapshot stored for ref.
func (s *Store) Load(ctx context.Context, ref state.Ref) (state.Snapshot, state.Meta, bool, error) {
	id, err := ref.Identifier()
	if err != nil {
		return state.Snapshot{}, state.Meta{}, false, err
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.Table),
		Key:            map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: aws.Bool(s.config.ConsistentRead),
	})
	if err != nil {
		return state.Snapshot{}, state.Meta{}, false, fmt.Errorf("dynamostore: get %s: %w", id, err)
	}
	if out == nil || out.Item == nil {
		return state.Snapshot{}, state.Meta{}, false, nil
	}

	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return state.Snapshot{}, state.Meta{}, false, fmt.Errorf("dynamostore: decode %s: %w", id, err)
	}
	meta := state.Meta{SnapshotID: rec.SnapshotID, ETag: rec.ETag, Extra: rec.Extra}
	if rec.UpdatedAt != "" {
		if meta.UpdatedAt, err = time.Parse(time.RFC3339Nano, rec.UpdatedAt); err != nil {
			return state.Snapshot{}, state.Meta{}, false, fmt.Errorf("dynamostore: decode %s updated_at: %w", id, err)
		}
	}
	return rec.Snapshot, meta, true, nil
}

// Save writes the snapshot for ref, replacing any previous item.
func (s *Store) Save(ctx context.Context, ref state.Ref, snapshot state.Snapshot, meta state.Meta) (state.Meta, error) {
	id, err := ref.Identifier()
	if err != nil {
		return state.Meta{}, err
	}
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = time.Now()
	}
	meta.UpdatedAt = meta.UpdatedAt.UTC()

	item, err := attributevalue.MarshalMap(record{
		ID:         id,
		Session:    ref.Session,
		Model:      ref.Model,
		Snapshot:   snapshot,
		SnapshotID: meta.SnapshotID,
		ETag:       meta.ETag,
		UpdatedAt:  meta.UpdatedAt.Format(time.RFC3339Nano),
		Extra:      meta.Extra,
	})
	if err != nil {
		return state.Meta{}, fmt.Errorf("dynamostore: encode %s: %w", id, err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.Table),
		Item:      item,
	}); err != nil {
		return state.Meta{}, fmt.Errorf("dynamostore: put %s: %w", id, err)
	}
	return meta, nil
}

// List scans the table for stored refs, ordered by identifier.
func (s *Store) List(ctx context.Context) ([]state.Ref, error) {
	var (
		refs  []state.Ref
		start map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(s.config.Table),
			ProjectionExpression: aws.String("session_id, model"),
			ExclusiveStartKey:    start,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamostore: scan: %w", err)
		}
		var page []record
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("dynamostore: decode scan: %w", err)
		}
		for _, rec := range page {
			refs = append(refs, state.Ref{Session: rec.Session, Model: rec.Model})
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		start = out.LastEvaluatedKey
	}
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].String() < refs[j].String()
	})
	return refs, nil
}

var (
	_ state.Store  = (*Store)(nil)
	_ state.Lister = (*Store)(nil)
	_ API          = (*dynamodb.Client)(nil)
)
