package modules

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"

	"github.com/streamlet-go/streamlet/internal/errkind"
	"github.com/streamlet-go/streamlet/internal/metric"
	"github.com/streamlet-go/streamlet/internal/registry"
	"github.com/streamlet-go/streamlet/internal/schema"
)

func init() {
	registry.Register(registry.Registration{
		Variant: registry.Output,
		Type:    "dynamodb",
		ConnectionSchema: schema.Object(
			schema.Optional("region", schema.String(), "us-east-1"),
			schema.Optional("access_key", schema.String(), ""),
			schema.Optional("secret_key", schema.String(), ""),
		),
		ParamsSchema: schema.Object(
			schema.Optional("table_name", schema.String(), "streamlet_metrics"),
		),
		New: newDynamoDBOutput,
	})
}

// dynamodbOutput writes one item per metric, grounded on
// DynamoDBManager.ensureTableExists/Set in
// pkg/runtime/dynamodb_node.go (session construction, on-demand
// table creation, dynamodbattribute marshaling).
type dynamodbOutput struct {
	Base
	client    *dynamodb.DynamoDB
	tableName string
}

func newDynamoDBOutput(name string, config map[string]interface{}) (registry.Instance, error) {
	region := stringParam(config, "region", "us-east-1")
	accessKey := stringParam(config, "access_key", "")
	secretKey := stringParam(config, "secret_key", "")

	var sess *session.Session
	var err error
	if accessKey != "" && secretKey != "" {
		sess, err = session.NewSession(&aws.Config{
			Region:      aws.String(region),
			Credentials: credentials.NewStaticCredentials(accessKey, secretKey, ""),
		})
	} else {
		sess, err = session.NewSession(&aws.Config{Region: aws.String(region)})
	}
	if err != nil {
		return nil, errkind.New(errkind.StartupHookFailed, fmt.Errorf("dynamodb session failed: %w", err)).WithModule(name)
	}

	return &dynamodbOutput{
		Base:      NewBase(name),
		client:    dynamodb.New(sess),
		tableName: stringParam(config, "table_name", "streamlet_metrics"),
	}, nil
}

func (d *dynamodbOutput) OnConnect() error {
	_, err := d.client.DescribeTable(&dynamodb.DescribeTableInput{TableName: aws.String(d.tableName)})
	if err == nil {
		return nil
	}

	_, err = d.client.CreateTable(&dynamodb.CreateTableInput{
		TableName: aws.String(d.tableName),
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{AttributeName: aws.String("metric_key"), AttributeType: aws.String("S")},
			{AttributeName: aws.String("timestamp"), AttributeType: aws.String("N")},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{AttributeName: aws.String("metric_key"), KeyType: aws.String("HASH")},
			{AttributeName: aws.String("timestamp"), KeyType: aws.String("RANGE")},
		},
		BillingMode: aws.String("PAY_PER_REQUEST"),
	})
	if err != nil {
		return errkind.New(errkind.StartupHookFailed, fmt.Errorf("dynamodb create table failed: %w", err)).WithModule(d.Name())
	}
	return d.client.WaitUntilTableExists(&dynamodb.DescribeTableInput{TableName: aws.String(d.tableName)})
}

// Emit writes one item per metric with a (metric_key, timestamp) key.
func (d *dynamodbOutput) Emit(ctx context.Context, f *metric.MetricFrame) error {
	for _, m := range f.All() {
		item := map[string]interface{}{
			"metric_key": f.TaskName + ":" + m.Name,
			"timestamp":  f.Timestamp.UnixNano(),
			"attributes": scalarMapToAny(m.Attributes),
		}
		if m.Value != nil {
			item["value"] = m.Value.Any()
		}

		av, err := dynamodbattribute.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("dynamodb output: marshal failed: %w", err)
		}
		_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(d.tableName),
			Item:      av,
		})
		if err != nil {
			return fmt.Errorf("dynamodb output: put item failed: %w", err)
		}
	}
	return nil
}

func scalarMapToAny(m map[string]metric.Scalar) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}
