// Package submddb stores submissions in a DynamoDB table keyed by id.
package submddb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/guregu/dynamo/v2"
	"github.com/ieltsdesk/backend/subm"
	"goa.design/clue/log"
)

// SubmRow is the table item. The lower-cased name and the UTC date exist
// only so scans can filter server side.
type SubmRow struct {
	ID               string  `dynamo:"id,hash" dynamodbav:"id"` // partition key
	StudentName      string  `dynamo:"student_name" dynamodbav:"student_name"`
	StudentNameLower string  `dynamo:"student_name_lower" dynamodbav:"student_name_lower"`
	TaskType         string  `dynamo:"task_type" dynamodbav:"task_type"`
	Question         string  `dynamo:"question" dynamodbav:"question"`
	EssayText        string  `dynamo:"essay_text" dynamodbav:"essay_text"`
	WordCount        int     `dynamo:"word_count" dynamodbav:"word_count"`
	TimeSpent        string  `dynamo:"time_spent" dynamodbav:"time_spent"`
	ImagePath        *string `dynamo:"image_path" dynamodbav:"image_path,omitempty"`
	PdfPath          string  `dynamo:"pdf_path" dynamodbav:"pdf_path"`
	SubmittedAt      string  `dynamo:"submitted_at_rfc3339_utc" dynamodbav:"submitted_at_rfc3339_utc"`
	SubmittedDate    string  `dynamo:"submitted_date" dynamodbav:"submitted_date"`
	Checked          bool    `dynamo:"checked" dynamodbav:"checked"`
	Version          int64   `dynamo:"version" dynamodbav:"version"` // bumped on every update
}

type DynamoDbSubmRepo struct {
	ddbClient *dynamodb.Client
	tableName string
	submTable *dynamo.Table
}

var _ subm.Repo = (*DynamoDbSubmRepo)(nil)

func NewDynamoDbSubmRepo(ddbClient *dynamodb.Client, tableName string) *DynamoDbSubmRepo {
	repo := &DynamoDbSubmRepo{
		ddbClient: ddbClient,
		tableName: tableName,
	}
	db := dynamo.NewFromIface(repo.ddbClient)
	table := db.Table(repo.tableName)
	repo.submTable = &table
	return repo
}

// NewFromRegion loads the default AWS config for region with SDK logging
// routed through the context logger.
func NewFromRegion(ctx context.Context, region string, tableName string) (*DynamoDbSubmRepo, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithLogger(log.AsAWSLogger(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewDynamoDbSubmRepo(dynamodb.NewFromConfig(cfg), tableName), nil
}

func rowFromSubm(s subm.Submission) SubmRow {
	row := SubmRow{
		ID:               s.ID,
		StudentName:      s.StudentName,
		StudentNameLower: strings.ToLower(s.StudentName),
		TaskType:         s.TaskType,
		Question:         s.Question,
		EssayText:        s.EssayText,
		WordCount:        s.WordCount,
		TimeSpent:        s.TimeSpent,
		ImagePath:        s.ImagePath,
		PdfPath:          s.PdfPath,
		Checked:          s.Checked,
		Version:          1,
	}
	if !s.SubmittedAt.IsZero() {
		row.SubmittedAt = s.SubmittedAt.UTC().Format(time.RFC3339Nano)
		row.SubmittedDate = s.SubmittedAt.UTC().Format(subm.DateLayout)
	}
	return row
}

func (row SubmRow) toSubm() (subm.Submission, error) {
	s := subm.Submission{
		ID:          row.ID,
		StudentName: row.StudentName,
		TaskType:    row.TaskType,
		Question:    row.Question,
		EssayText:   row.EssayText,
		WordCount:   row.WordCount,
		TimeSpent:   row.TimeSpent,
		ImagePath:   row.ImagePath,
		PdfPath:     row.PdfPath,
		Checked:     row.Checked,
	}
	if row.SubmittedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, row.SubmittedAt)
		if err != nil {
			return subm.Submission{}, fmt.Errorf("invalid submitted_at of %s: %w", row.ID, err)
		}
		s.SubmittedAt = t.UTC()
	}
	return s, nil
}

func (ddb *DynamoDbSubmRepo) Create(ctx context.Context, s subm.Submission) error {
	row := rowFromSubm(s)
	err := ddb.submTable.Put(row).If("attribute_not_exists(id)").Run(ctx)
	if err != nil {
		if dynamo.IsCondCheckFailed(err) {
			return subm.ErrAlreadyExists
		}
		return fmt.Errorf("failed to put submission: %w", err)
	}
	return nil
}

func (ddb *DynamoDbSubmRepo) Get(ctx context.Context, id string) (subm.Submission, error) {
	var row SubmRow
	err := ddb.submTable.Get("id", id).One(ctx, &row)
	if err != nil {
		if errors.Is(err, dynamo.ErrNotFound) {
			return subm.Submission{}, subm.ErrNotFound
		}
		return subm.Submission{}, fmt.Errorf("failed to get submission: %w", err)
	}
	return row.toSubm()
}

func (ddb *DynamoDbSubmRepo) List(ctx context.Context, f subm.Filter) ([]subm.Submission, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(ddb.tableName),
	}

	filterExpr, ok, err := buildScanFilter(f)
	if err != nil {
		return nil, err
	}
	if ok {
		input.FilterExpression = filterExpr.Filter()
		input.ExpressionAttributeNames = filterExpr.Names()
		input.ExpressionAttributeValues = filterExpr.Values()
	}

	var all []subm.Submission
	paginator := dynamodb.NewScanPaginator(ddb.ddbClient, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submissions: %w", err)
		}

		var rows []SubmRow
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &rows); err != nil {
			return nil, fmt.Errorf("failed to unmarshal submissions: %w", err)
		}
		for _, row := range rows {
			s, err := row.toSubm()
			if err != nil {
				return nil, err
			}
			all = append(all, s)
		}
	}

	// the scan filter already narrowed the items; Apply sorts them
	return f.Apply(all), nil
}

// buildScanFilter translates f into a DynamoDB filter expression. ok is
// false when f matches everything.
func buildScanFilter(f subm.Filter) (expr expression.Expression, ok bool, err error) {
	var conds []expression.ConditionBuilder
	if f.Search != "" {
		conds = append(conds, expression.Name("student_name_lower").Contains(strings.ToLower(f.Search)))
	}
	if f.TaskType != "" {
		conds = append(conds, expression.Name("task_type").Equal(expression.Value(f.TaskType)))
	}
	if f.Date != "" {
		conds = append(conds, expression.Name("submitted_date").Equal(expression.Value(f.Date)))
	}
	if f.Checked != nil {
		conds = append(conds, expression.Name("checked").Equal(expression.Value(*f.Checked)))
	}
	if len(conds) == 0 {
		return expression.Expression{}, false, nil
	}

	cond := conds[0]
	if len(conds) > 1 {
		cond = expression.And(conds[0], conds[1], conds[2:]...)
	}

	expr, err = expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		return expression.Expression{}, false, fmt.Errorf("failed to build scan filter: %w", err)
	}
	return expr, true, nil
}

func (ddb *DynamoDbSubmRepo) SetChecked(ctx context.Context, id string, checked bool) (subm.Submission, error) {
	var row SubmRow
	err := ddb.submTable.Update("id", id).
		Set("checked", checked).
		Add("version", 1).
		If("attribute_exists(id)").
		Value(ctx, &row)
	if err != nil {
		if dynamo.IsCondCheckFailed(err) {
			return subm.Submission{}, subm.ErrNotFound
		}
		return subm.Submission{}, fmt.Errorf("failed to update submission: %w", err)
	}
	return row.toSubm()
}

func (ddb *DynamoDbSubmRepo) Delete(ctx context.Context, id string) error {
	err := ddb.submTable.Delete("id", id).If("attribute_exists(id)").Run(ctx)
	if err != nil {
		if dynamo.IsCondCheckFailed(err) {
			return subm.ErrNotFound
		}
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	return nil
}
