// Package archive stores JSON snapshots of generated weeks in S3.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// DaySnapshot is one filled day at generation time.
type DaySnapshot struct {
	Day      string    `json:"day"`
	Date     string    `json:"date"`
	DishID   uuid.UUID `json:"dish_id"`
	DishName string    `json:"dish_name"`
	Category string    `json:"category"`
	Favorite bool      `json:"favorite"`
}

// WeekSnapshot is what a regeneration produced.
type WeekSnapshot struct {
	ScopeID     uuid.UUID     `json:"scope_id"`
	WeekStart   string        `json:"week_start"`
	GeneratedAt time.Time     `json:"generated_at"`
	GeneratedBy uuid.UUID     `json:"generated_by"`
	Days        []DaySnapshot `json:"days"`
	Warnings    []string      `json:"warnings"`
}

// PutObjectAPI is the part of the S3 client the archiver needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes snapshots to plans/<scope>/<weekStart>.json.
// A later regeneration of the same week overwrites the object.
type S3Archiver struct {
	client PutObjectAPI
	bucket string
}

// NewS3Archiver creates an archiver for bucket.
func NewS3Archiver(client PutObjectAPI, bucket string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket}
}

// Key returns the object key of a week.
func Key(scopeID uuid.UUID, weekStart string) string {
	return fmt.Sprintf("plans/%s/%s.json", scopeID, weekStart)
}

// Archive uploads snap.
func (a *S3Archiver) Archive(ctx context.Context, snap WeekSnapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode week snapshot: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(Key(snap.ScopeID, snap.WeekStart)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload week snapshot: %w", err)
	}
	return nil
}
