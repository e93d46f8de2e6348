package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Record key shapes mirror the single-table design of the main backend:
// user records are keyed Pk="STUDENT#<id>"|"SPONSOR#<id>"|"MERCHANT#<id>",
// Sk="USER"; pay-activation flags are keyed Pk=<userId>, Sk="RAPYD#USER".
const (
	SortKeyUser      = "USER"
	SortKeyActivated = "RAPYD#USER"

	PrefixStudent  = "STUDENT#"
	PrefixSponsor  = "SPONSOR#"
	PrefixMerchant = "MERCHANT#"

	keyNamespace = "kudu:"
	scanPageSize = 200
)

// Connect initializes a Redis client from URL or host:port input.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// UserRecord is one entity row from the shared table.
type UserRecord struct {
	Pk         string         `json:"Pk"`
	Sk         string         `json:"Sk"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Store reads and writes the shared key-value records this service touches:
// entity listings and pay-activation flags.
type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func recordKey(pk, sk string) string {
	return keyNamespace + pk + "|" + sk
}

// SetActivated marks a user's pay capability as provisioned on the provider.
func (s *Store) SetActivated(ctx context.Context, userID string, activated bool) error {
	key := recordKey(userID, SortKeyActivated)
	return s.client.HSet(ctx, key, map[string]any{
		"activated":    activated,
		"activated_at": time.Now().UTC().Format(time.RFC3339),
	}).Err()
}

func (s *Store) IsActivated(ctx context.Context, userID string) (bool, error) {
	key := recordKey(userID, SortKeyActivated)
	raw, err := s.client.HGet(ctx, key, "activated").Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return raw == "1" || raw == "true", nil
}

func (s *Store) PutUserRecord(ctx context.Context, rec UserRecord) error {
	if rec.Sk == "" {
		rec.Sk = SortKeyUser
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal user record: %w", err)
	}
	return s.client.Set(ctx, recordKey(rec.Pk, rec.Sk), data, 0).Err()
}

func (s *Store) ListStudents(ctx context.Context) ([]UserRecord, error) {
	return s.scanByPrefix(ctx, PrefixStudent)
}

func (s *Store) ListSponsors(ctx context.Context) ([]UserRecord, error) {
	return s.scanByPrefix(ctx, PrefixSponsor)
}

func (s *Store) ListMerchants(ctx context.Context) ([]UserRecord, error) {
	return s.scanByPrefix(ctx, PrefixMerchant)
}

func (s *Store) scanByPrefix(ctx context.Context, pkPrefix string) ([]UserRecord, error) {
	match := keyNamespace + pkPrefix + "*|" + SortKeyUser

	var records []UserRecord
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, scanPageSize).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s records: %w", pkPrefix, err)
		}

		for _, key := range keys {
			raw, err := s.client.Get(ctx, key).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, err
			}
			var rec UserRecord
			if err := json.Unmarshal([]byte(raw), &rec); err != nil {
				continue
			}
			records = append(records, rec)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return records, nil
}
