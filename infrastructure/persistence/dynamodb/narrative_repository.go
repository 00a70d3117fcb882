// Package dynamodb implements the persistence ports on DynamoDB.
//
// Narratives live in a single table keyed PK=NARRATIVE#<id>, SK=METADATA,
// with a GSI on (ActiveFlag, UpdatedAt) so the candidate-pool query reads a
// time window instead of scanning. One PutItem per upsert is the engine's
// atomicity unit.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"pulse-backend/application/ports"
	"pulse-backend/domain/core/entities"
	"pulse-backend/domain/core/valueobjects"
	"pulse-backend/infrastructure/observability"
	pkgerrors "pulse-backend/pkg/errors"
)

const (
	narrativeKeyPrefix = "NARRATIVE#"
	metadataSortKey    = "METADATA"
	activeFlagValue    = "ACTIVE"
)

// NarrativeRepository implements ports.NarrativeRepository on DynamoDB.
type NarrativeRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	metrics   *observability.Collector
	logger    *zap.Logger
}

// Compile-time interface check
var _ ports.NarrativeRepository = (*NarrativeRepository)(nil)

// NewNarrativeRepository creates a DynamoDB-backed narrative repository.
func NewNarrativeRepository(client *dynamodb.Client, tableName, indexName string, metrics *observability.Collector, logger *zap.Logger) *NarrativeRepository {
	return &NarrativeRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		metrics:   metrics,
		logger:    logger,
	}
}

// narrativeRecord is the persisted shape of a Narrative.
type narrativeRecord struct {
	PK              string           `dynamodbav:"PK"`
	SK              string           `dynamodbav:"SK"`
	NarrativeID     string           `dynamodbav:"NarrativeID"`
	Theme           string           `dynamodbav:"Theme"`
	Summary         string           `dynamodbav:"Summary,omitempty"`
	Entities        []string         `dynamodbav:"Entities,omitempty"`
	ArticleIDs      []string         `dynamodbav:"ArticleIDs,omitempty"`
	ArticleCount    int              `dynamodbav:"ArticleCount"`
	Nucleus         string           `dynamodbav:"Nucleus,omitempty"`
	TopActors       []string         `dynamodbav:"TopActors,omitempty"`
	KeyActions      []string         `dynamodbav:"KeyActions,omitempty"`
	Relationships   []pairRecord     `dynamodbav:"Relationships,omitempty"`
	MentionVelocity float64          `dynamodbav:"MentionVelocity"`
	LifecycleState  string           `dynamodbav:"LifecycleState"`
	Momentum        string           `dynamodbav:"Momentum"`
	FirstSeen       string           `dynamodbav:"FirstSeen"`
	LastUpdated     string           `dynamodbav:"LastUpdated"`
	Timeline        []snapshotRecord `dynamodbav:"Timeline,omitempty"`
	Peak            *snapshotRecord  `dynamodbav:"Peak,omitempty"`
	DaysActive      int              `dynamodbav:"DaysActive"`
	MergedInto      string           `dynamodbav:"MergedInto,omitempty"`
	Version         int              `dynamodbav:"Version"`

	// GSI attributes. ActiveFlag is absent on tombstones so merged-away
	// records fall out of the index entirely.
	ActiveFlag string `dynamodbav:"ActiveFlag,omitempty"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

type pairRecord struct {
	EntityA string `dynamodbav:"A"`
	EntityB string `dynamodbav:"B"`
	Weight  int    `dynamodbav:"Weight"`
}

type snapshotRecord struct {
	Date         string   `dynamodbav:"Date"`
	ArticleCount int      `dynamodbav:"ArticleCount"`
	Entities     []string `dynamodbav:"Entities,omitempty"`
	Velocity     float64  `dynamodbav:"Velocity"`
}

// Upsert persists the narrative as a single PutItem.
func (r *NarrativeRepository) Upsert(ctx context.Context, narrative *entities.Narrative) error {
	if narrative == nil {
		return pkgerrors.NewValidation("narrative cannot be nil")
	}

	record := toRecord(narrative)
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal narrative")
	}

	start := time.Now()
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	r.observe("PutItem", start, err)
	if err != nil {
		return mapDynamoError(err, "failed to upsert narrative")
	}
	return nil
}

// GetByID retrieves a narrative by id.
func (r *NarrativeRepository) GetByID(ctx context.Context, id valueobjects.NarrativeID) (*entities.Narrative, error) {
	start := time.Now()
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       narrativeKey(id.String()),
	})
	r.observe("GetItem", start, err)
	if err != nil {
		return nil, mapDynamoError(err, "failed to get narrative")
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFound("narrative not found: " + id.String())
	}

	var record narrativeRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal narrative")
	}
	return fromRecord(&record)
}

// GetArticleRefs reads the ArticleCount and ArticleIDs attributes exactly as
// stored. Unlike GetByID it performs no rehydration, so count drift and
// duplicate ids in the persisted record stay visible to the caller.
func (r *NarrativeRepository) GetArticleRefs(ctx context.Context, id valueobjects.NarrativeID) (ports.ArticleRefs, error) {
	start := time.Now()
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(r.tableName),
		Key:                  narrativeKey(id.String()),
		ProjectionExpression: aws.String("ArticleCount, ArticleIDs"),
	})
	r.observe("GetItem", start, err)
	if err != nil {
		return ports.ArticleRefs{}, mapDynamoError(err, "failed to get narrative article refs")
	}
	if out.Item == nil {
		return ports.ArticleRefs{}, pkgerrors.NewNotFound("narrative not found: " + id.String())
	}

	var refs struct {
		ArticleCount int      `dynamodbav:"ArticleCount"`
		ArticleIDs   []string `dynamodbav:"ArticleIDs"`
	}
	if err := attributevalue.UnmarshalMap(out.Item, &refs); err != nil {
		return ports.ArticleRefs{}, pkgerrors.Wrap(err, "failed to unmarshal article refs")
	}
	return ports.ArticleRefs{StoredCount: refs.ArticleCount, ArticleIDs: refs.ArticleIDs}, nil
}

// FindActive queries the ActiveFlag GSI for reachable, non-tombstone
// narratives updated at or after the cutoff.
func (r *NarrativeRepository) FindActive(ctx context.Context, updatedSince time.Time) ([]*entities.Narrative, error) {
	keyCond := expression.Key("ActiveFlag").Equal(expression.Value(activeFlagValue)).
		And(expression.Key("UpdatedAt").GreaterThanEqual(
			expression.Value(updatedSince.UTC().Format(time.RFC3339))))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to build active-pool query")
	}

	var narratives []*entities.Narrative
	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	for paginator.HasMorePages() {
		start := time.Now()
		page, err := paginator.NextPage(ctx)
		r.observe("Query", start, err)
		if err != nil {
			return nil, mapDynamoError(err, "failed to query active narratives")
		}
		for _, item := range page.Items {
			var record narrativeRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, pkgerrors.Wrap(err, "failed to unmarshal narrative")
			}
			narrative, err := fromRecord(&record)
			if err != nil {
				return nil, err
			}
			if narrative.IsTombstone() || !narrative.LifecycleState().Reachable() {
				continue
			}
			narratives = append(narratives, narrative)
		}
	}

	return narratives, nil
}

// FindByState queries the ActiveFlag GSI and filters on lifecycle state.
func (r *NarrativeRepository) FindByState(ctx context.Context, state valueobjects.LifecycleState, limit int) ([]*entities.Narrative, error) {
	keyCond := expression.Key("ActiveFlag").Equal(expression.Value(activeFlagValue))
	filter := expression.Name("LifecycleState").Equal(expression.Value(string(state)))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to build state query")
	}

	var narratives []*entities.Narrative
	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	for paginator.HasMorePages() {
		start := time.Now()
		page, err := paginator.NextPage(ctx)
		r.observe("Query", start, err)
		if err != nil {
			return nil, mapDynamoError(err, "failed to query narratives by state")
		}
		for _, item := range page.Items {
			var record narrativeRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, pkgerrors.Wrap(err, "failed to unmarshal narrative")
			}
			narrative, err := fromRecord(&record)
			if err != nil {
				return nil, err
			}
			narratives = append(narratives, narrative)
			if limit > 0 && len(narratives) >= limit {
				return narratives, nil
			}
		}
	}

	return narratives, nil
}

func narrativeKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: narrativeKeyPrefix + id},
		"SK": &types.AttributeValueMemberS{Value: metadataSortKey},
	}
}

func (r *NarrativeRepository) observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.metrics.DBOperations.WithLabelValues(operation, r.tableName, status).Inc()
	r.metrics.DBDuration.WithLabelValues(operation, r.tableName).Observe(time.Since(start).Seconds())
}

// toRecord flattens the aggregate into its persisted shape.
func toRecord(n *entities.Narrative) *narrativeRecord {
	fp := n.Fingerprint()

	rels := make([]pairRecord, 0, len(n.Relationships()))
	for _, rel := range n.Relationships() {
		rels = append(rels, pairRecord{EntityA: rel.EntityA, EntityB: rel.EntityB, Weight: rel.Weight})
	}

	timeline := make([]snapshotRecord, 0, len(n.Timeline()))
	for _, snap := range n.Timeline() {
		timeline = append(timeline, toSnapshotRecord(snap))
	}

	var peak *snapshotRecord
	if p := n.PeakActivity(); p != nil {
		rec := toSnapshotRecord(*p)
		peak = &rec
	}

	record := &narrativeRecord{
		PK:              narrativeKeyPrefix + n.ID().String(),
		SK:              metadataSortKey,
		NarrativeID:     n.ID().String(),
		Theme:           n.Theme(),
		Summary:         n.Summary(),
		Entities:        n.Entities(),
		ArticleIDs:      n.ArticleIDs(),
		ArticleCount:    n.ArticleCount(),
		Nucleus:         fp.NucleusEntity(),
		TopActors:       fp.TopActors(),
		KeyActions:      fp.KeyActions(),
		Relationships:   rels,
		MentionVelocity: n.MentionVelocity(),
		LifecycleState:  string(n.LifecycleState()),
		Momentum:        string(n.Momentum()),
		FirstSeen:       n.FirstSeen().UTC().Format(time.RFC3339),
		LastUpdated:     n.LastUpdated().UTC().Format(time.RFC3339),
		Timeline:        timeline,
		Peak:            peak,
		DaysActive:      n.DaysActive(),
		Version:         n.Version(),
		UpdatedAt:       n.LastUpdated().UTC().Format(time.RFC3339),
	}

	if n.IsTombstone() {
		record.MergedInto = n.MergedInto().String()
	} else {
		record.ActiveFlag = activeFlagValue
	}
	return record
}

// fromRecord rebuilds the aggregate from its persisted shape.
func fromRecord(record *narrativeRecord) (*entities.Narrative, error) {
	id, err := valueobjects.ParseNarrativeID(record.NarrativeID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "invalid narrative id in store")
	}

	firstSeen, err := time.Parse(time.RFC3339, record.FirstSeen)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "invalid FirstSeen in store")
	}
	lastUpdated, err := time.Parse(time.RFC3339, record.LastUpdated)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "invalid LastUpdated in store")
	}

	rels := make([]valueobjects.EntityRelationship, 0, len(record.Relationships))
	for _, p := range record.Relationships {
		rels = append(rels, valueobjects.NewEntityRelationship(p.EntityA, p.EntityB, p.Weight))
	}

	timeline := make([]valueobjects.TimelineSnapshot, 0, len(record.Timeline))
	for _, s := range record.Timeline {
		snap, err := fromSnapshotRecord(s)
		if err != nil {
			return nil, err
		}
		timeline = append(timeline, snap)
	}

	var peak *valueobjects.TimelineSnapshot
	if record.Peak != nil {
		snap, err := fromSnapshotRecord(*record.Peak)
		if err != nil {
			return nil, err
		}
		peak = &snap
	}

	var mergedInto valueobjects.NarrativeID
	if record.MergedInto != "" {
		mergedInto, err = valueobjects.ParseNarrativeID(record.MergedInto)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "invalid MergedInto in store")
		}
	}

	return entities.ReconstructNarrative(
		id,
		record.Theme,
		record.Summary,
		record.Entities,
		record.ArticleIDs,
		valueobjects.ReconstructFingerprint(record.Nucleus, record.TopActors, record.KeyActions),
		rels,
		record.MentionVelocity,
		valueobjects.LifecycleState(record.LifecycleState),
		valueobjects.Momentum(record.Momentum),
		firstSeen,
		lastUpdated,
		timeline,
		peak,
		record.DaysActive,
		mergedInto,
		record.Version,
	)
}

func toSnapshotRecord(snap valueobjects.TimelineSnapshot) snapshotRecord {
	return snapshotRecord{
		Date:         snap.Date.Format("2006-01-02"),
		ArticleCount: snap.ArticleCount,
		Entities:     snap.Entities,
		Velocity:     snap.Velocity,
	}
}

func fromSnapshotRecord(record snapshotRecord) (valueobjects.TimelineSnapshot, error) {
	date, err := time.Parse("2006-01-02", record.Date)
	if err != nil {
		return valueobjects.TimelineSnapshot{}, pkgerrors.Wrap(err, "invalid snapshot date in store")
	}
	return valueobjects.TimelineSnapshot{
		Date:         date.UTC(),
		ArticleCount: record.ArticleCount,
		Entities:     record.Entities,
		Velocity:     record.Velocity,
	}, nil
}

// mapDynamoError translates SDK failures into the application error
// taxonomy so retry policies upstream can classify them.
func mapDynamoError(err error, message string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ProvisionedThroughputExceededException", "ThrottlingException":
			return pkgerrors.NewRateLimited(message, err)
		case "ResourceNotFoundException":
			return pkgerrors.NewNotFound(fmt.Sprintf("%s: %s", message, apiErr.ErrorMessage()))
		}
	}
	return pkgerrors.NewInternal(message, err)
}
