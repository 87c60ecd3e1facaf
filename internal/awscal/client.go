// Package awscal wraps the AWS SSM Change Calendar API behind a narrow
// contract: fetch calendar text and state, and manage calendar documents.
package awscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/koyomi-dev/koyomi/internal/logging"
)

// ErrCalendarNotFound means the named change calendar does not exist in
// the account/region.
var ErrCalendarNotFound = errors.New("change calendar not found")

// SSMAPI is the subset of the SSM client the wrapper needs. Tests inject a
// fake implementation.
type SSMAPI interface {
	GetDocument(ctx context.Context, in *ssm.GetDocumentInput, opts ...func(*ssm.Options)) (*ssm.GetDocumentOutput, error)
	DescribeDocument(ctx context.Context, in *ssm.DescribeDocumentInput, opts ...func(*ssm.Options)) (*ssm.DescribeDocumentOutput, error)
	ListDocuments(ctx context.Context, in *ssm.ListDocumentsInput, opts ...func(*ssm.Options)) (*ssm.ListDocumentsOutput, error)
	GetCalendarState(ctx context.Context, in *ssm.GetCalendarStateInput, opts ...func(*ssm.Options)) (*ssm.GetCalendarStateOutput, error)
	CreateDocument(ctx context.Context, in *ssm.CreateDocumentInput, opts ...func(*ssm.Options)) (*ssm.CreateDocumentOutput, error)
	UpdateDocument(ctx context.Context, in *ssm.UpdateDocumentInput, opts ...func(*ssm.Options)) (*ssm.UpdateDocumentOutput, error)
	DeleteDocument(ctx context.Context, in *ssm.DeleteDocumentInput, opts ...func(*ssm.Options)) (*ssm.DeleteDocumentOutput, error)
}

// Calendar is one fetched change calendar: its raw ICS text plus the
// metadata callers report on.
type Calendar struct {
	Name    string
	Content string
	Version string
	State   string
}

// Client wraps the SSM API.
type Client struct {
	api    SSMAPI
	logger logging.Logger
}

// New builds a Client using the default AWS credential chain, honoring the
// given region and optional named profile.
func New(ctx context.Context, region, profile string, logger logging.Logger) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}
	return &Client{api: ssm.NewFromConfig(cfg), logger: logger}, nil
}

// NewWithAPI builds a Client around an existing API implementation.
func NewWithAPI(api SSMAPI, logger logging.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// GetCalendar fetches the document text and current state of a change
// calendar.
func (c *Client) GetCalendar(ctx context.Context, name string) (*Calendar, error) {
	out, err := c.api.GetDocument(ctx, &ssm.GetDocumentInput{
		Name:           aws.String(name),
		DocumentFormat: types.DocumentFormatText,
	})
	if err != nil {
		return nil, mapNotFound(name, err)
	}

	cal := &Calendar{Name: name, Content: aws.ToString(out.Content), Version: aws.ToString(out.DocumentVersion)}
	state, err := c.State(ctx, name)
	if err != nil {
		// State is informational; the calendar text is still usable.
		if c.logger != nil {
			c.logger.Warn("fetching calendar state", logging.Field{Key: "calendar", Value: name}, logging.Field{Key: "error", Value: err})
		}
	} else {
		cal.State = state
	}
	return cal, nil
}

// State returns the calendar's current state, "OPEN" or "CLOSED".
func (c *Client) State(ctx context.Context, name string) (string, error) {
	out, err := c.api.GetCalendarState(ctx, &ssm.GetCalendarStateInput{CalendarNames: []string{name}})
	if err != nil {
		return "", mapNotFound(name, err)
	}
	return string(out.State), nil
}

// Exists reports whether the named change calendar exists.
func (c *Client) Exists(ctx context.Context, name string) (bool, error) {
	_, err := c.api.DescribeDocument(ctx, &ssm.DescribeDocumentInput{Name: aws.String(name)})
	if err != nil {
		if errors.Is(mapNotFound(name, err), ErrCalendarNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("describing calendar %s: %w", name, err)
	}
	return true, nil
}

// List returns the names of every change calendar in the account.
func (c *Client) List(ctx context.Context) ([]string, error) {
	var names []string
	var next *string
	for {
		out, err := c.api.ListDocuments(ctx, &ssm.ListDocumentsInput{
			Filters: []types.DocumentKeyValuesFilter{
				{Key: aws.String("DocumentType"), Values: []string{"ChangeCalendar"}},
			},
			NextToken: next,
		})
		if err != nil {
			return nil, fmt.Errorf("listing change calendars: %w", err)
		}
		for _, id := range out.DocumentIdentifiers {
			names = append(names, aws.ToString(id.Name))
		}
		next = out.NextToken
		if next == nil {
			break
		}
	}
	return names, nil
}

// Create creates a new change calendar document with the given ICS text
// and tags, returning the created document version.
func (c *Client) Create(ctx context.Context, name, icsContent string, tags map[string]string) (string, error) {
	in := &ssm.CreateDocumentInput{
		Name:           aws.String(name),
		Content:        aws.String(icsContent),
		DocumentType:   types.DocumentTypeChangeCalendar,
		DocumentFormat: types.DocumentFormatText,
	}
	for k, v := range tags {
		in.Tags = append(in.Tags, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	out, err := c.api.CreateDocument(ctx, in)
	if err != nil {
		var exists *types.DocumentAlreadyExists
		if errors.As(err, &exists) {
			return "", fmt.Errorf("change calendar %s already exists: %w", name, err)
		}
		return "", fmt.Errorf("creating change calendar %s: %w", name, err)
	}
	if c.logger != nil {
		c.logger.Info("change calendar created", logging.Field{Key: "calendar", Value: name})
	}
	if out.DocumentDescription == nil {
		return "", nil
	}
	return aws.ToString(out.DocumentDescription.DocumentVersion), nil
}

// Update replaces the document content of an existing change calendar and
// returns the new document version.
func (c *Client) Update(ctx context.Context, name, icsContent string) (string, error) {
	out, err := c.api.UpdateDocument(ctx, &ssm.UpdateDocumentInput{
		Name:            aws.String(name),
		Content:         aws.String(icsContent),
		DocumentVersion: aws.String("$LATEST"),
	})
	if err != nil {
		return "", mapNotFound(name, err)
	}
	if c.logger != nil {
		c.logger.Info("change calendar updated", logging.Field{Key: "calendar", Value: name})
	}
	if out.DocumentDescription == nil {
		return "", nil
	}
	return aws.ToString(out.DocumentDescription.DocumentVersion), nil
}

// Delete removes a change calendar document.
func (c *Client) Delete(ctx context.Context, name string) error {
	if _, err := c.api.DeleteDocument(ctx, &ssm.DeleteDocumentInput{Name: aws.String(name)}); err != nil {
		return mapNotFound(name, err)
	}
	if c.logger != nil {
		c.logger.Info("change calendar deleted", logging.Field{Key: "calendar", Value: name})
	}
	return nil
}

// mapNotFound translates the SDK's document-missing errors into
// ErrCalendarNotFound, keeping the original for %w inspection.
func mapNotFound(name string, err error) error {
	var invalid *types.InvalidDocument
	if errors.As(err, &invalid) {
		return fmt.Errorf("%w: %s", ErrCalendarNotFound, name)
	}
	return fmt.Errorf("calendar %s: %w", name, err)
}

// DefaultTags returns the tag set applied to calendars this tool creates.
func DefaultTags(year int) map[string]string {
	return map[string]string{
		"Source":      "JapaneseGovernment",
		"Type":        "Holiday",
		"Year":        fmt.Sprintf("%d", year),
		"CreatedBy":   "koyomi",
		"CreatedDate": time.Now().UTC().Format(time.RFC3339),
	}
}
