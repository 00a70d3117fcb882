package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"pulse-backend/application/ports"
	"pulse-backend/domain/core/entities"
	"pulse-backend/domain/core/valueobjects"
	"pulse-backend/infrastructure/observability"
	pkgerrors "pulse-backend/pkg/errors"
)

const (
	articleKeyPrefix   = "ARTICLE#"
	unassignedFlag     = "UNASSIGNED"
	unassignedIndexKey = "AssignFlag"
)

// ArticleRepository implements ports.ArticleRepository on DynamoDB. The
// article table is owned by the ingestion pipeline; this engine only reads
// recent unassigned items and writes the narrative back-reference.
type ArticleRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	metrics   *observability.Collector
	logger    *zap.Logger
}

// Compile-time interface check
var _ ports.ArticleRepository = (*ArticleRepository)(nil)

// NewArticleRepository creates a DynamoDB-backed article repository.
func NewArticleRepository(client *dynamodb.Client, tableName, indexName string, metrics *observability.Collector, logger *zap.Logger) *ArticleRepository {
	return &ArticleRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		metrics:   metrics,
		logger:    logger,
	}
}

// articleRecord is the persisted shape of an Article.
type articleRecord struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	ArticleID   string `dynamodbav:"ArticleID"`
	Title       string `dynamodbav:"Title"`
	Text        string `dynamodbav:"Text,omitempty"`
	PublishedAt string `dynamodbav:"PublishedAt"`

	Nucleus       string         `dynamodbav:"Nucleus,omitempty"`
	Actors        []string       `dynamodbav:"Actors,omitempty"`
	ActorSalience map[string]int `dynamodbav:"ActorSalience,omitempty"`
	Actions       []string       `dynamodbav:"Actions,omitempty"`
	Tensions      []string       `dynamodbav:"Tensions,omitempty"`

	NarrativeID string `dynamodbav:"NarrativeID,omitempty"`

	// AssignFlag is present only while the article has no narrative, so
	// assigned articles drop out of the unassigned GSI.
	AssignFlag string `dynamodbav:"AssignFlag,omitempty"`
}

// FindUnassigned queries the unassigned GSI for articles published at or
// after the cutoff, up to limit.
func (r *ArticleRepository) FindUnassigned(ctx context.Context, publishedSince time.Time, limit int) ([]*entities.Article, error) {
	keyCond := expression.Key(unassignedIndexKey).Equal(expression.Value(unassignedFlag)).
		And(expression.Key("PublishedAt").GreaterThanEqual(
			expression.Value(publishedSince.UTC().Format(time.RFC3339))))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to build unassigned query")
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	var articles []*entities.Article
	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		start := time.Now()
		page, err := paginator.NextPage(ctx)
		r.observe("Query", start, err)
		if err != nil {
			return nil, mapDynamoError(err, "failed to query unassigned articles")
		}
		for _, item := range page.Items {
			var record articleRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, pkgerrors.Wrap(err, "failed to unmarshal article")
			}
			article, err := articleFromRecord(&record)
			if err != nil {
				return nil, err
			}
			articles = append(articles, article)
			if limit > 0 && len(articles) >= limit {
				return articles, nil
			}
		}
	}

	return articles, nil
}

// GetByID retrieves an article by id.
func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*entities.Article, error) {
	start := time.Now()
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       articleKey(id),
	})
	r.observe("GetItem", start, err)
	if err != nil {
		return nil, mapDynamoError(err, "failed to get article")
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFound("article not found: " + id)
	}

	var record articleRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal article")
	}
	return articleFromRecord(&record)
}

// AssignNarrative writes the narrative back-reference and removes the
// unassigned flag, all in one conditional update.
func (r *ArticleRepository) AssignNarrative(ctx context.Context, articleID string, narrativeID valueobjects.NarrativeID) error {
	update := expression.Set(expression.Name("NarrativeID"), expression.Value(narrativeID.String())).
		Remove(expression.Name(unassignedIndexKey))
	cond := expression.AttributeExists(expression.Name("PK"))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return pkgerrors.Wrap(err, "failed to build assign update")
	}

	start := time.Now()
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       articleKey(articleID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	r.observe("UpdateItem", start, err)
	if err != nil {
		return mapDynamoError(err, "failed to assign narrative to article")
	}
	return nil
}

// ReassignNarrative repoints every article referencing the merged-away id.
// The scan-then-update is acceptable because merges are rare and small.
func (r *ArticleRepository) ReassignNarrative(ctx context.Context, from, to valueobjects.NarrativeID) error {
	filter := expression.Name("NarrativeID").Equal(expression.Value(from.String()))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return pkgerrors.Wrap(err, "failed to build reassign scan")
	}

	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ProjectionExpression:      aws.String("PK, SK, ArticleID"),
	})

	for paginator.HasMorePages() {
		start := time.Now()
		page, err := paginator.NextPage(ctx)
		r.observe("Scan", start, err)
		if err != nil {
			return mapDynamoError(err, "failed to scan articles for reassignment")
		}
		for _, item := range page.Items {
			var record articleRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return pkgerrors.Wrap(err, "failed to unmarshal article key")
			}
			if err := r.AssignNarrative(ctx, record.ArticleID, to); err != nil {
				return err
			}
		}
	}

	return nil
}

func (r *ArticleRepository) observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.metrics.DBOperations.WithLabelValues(operation, r.tableName, status).Inc()
	r.metrics.DBDuration.WithLabelValues(operation, r.tableName).Observe(time.Since(start).Seconds())
}

func articleKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: articleKeyPrefix + id},
		"SK": &types.AttributeValueMemberS{Value: metadataSortKey},
	}
}

func articleFromRecord(record *articleRecord) (*entities.Article, error) {
	publishedAt, err := time.Parse(time.RFC3339, record.PublishedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "invalid PublishedAt in store")
	}
	return &entities.Article{
		ID:          record.ArticleID,
		Title:       record.Title,
		Text:        record.Text,
		PublishedAt: publishedAt,
		Extraction: entities.Extraction{
			NucleusEntity: record.Nucleus,
			Actors:        record.Actors,
			ActorSalience: record.ActorSalience,
			Actions:       record.Actions,
			Tensions:      record.Tensions,
		},
		NarrativeID: record.NarrativeID,
	}, nil
}
