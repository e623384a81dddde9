package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	CategoryListKey    = "categories:list"
	IdentityKeyPrefix  = "identity:%d"
	IdentityKeyPattern = "identity:*"
	BlacklistKeyPrefix = "blacklist:%s"
)

const (
	CategoryListTTL = 5 * time.Minute
	IdentityTTL     = 2 * time.Minute
)

func IdentityKey(userID uint) string {
	return fmt.Sprintf(IdentityKeyPrefix, userID)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// InvalidateIdentity drops the cached identity so the next request re-reads the user.
func InvalidateIdentity(ctx context.Context, userID uint) {
	Invalidate(ctx, IdentityKey(userID))
}

// InvalidateAllIdentities drops every cached identity. Used after bulk user
// deletes, where the affected ids are not known.
func InvalidateAllIdentities(ctx context.Context) error {
	if client == nil {
		return nil
	}
	iter := client.Scan(ctx, 0, IdentityKeyPattern, 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			if err := client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return client.Del(ctx, batch...).Err()
	}
	return nil
}

// InvalidateCategories drops the cached category list, whose event counts
// change whenever events or categories are written.
func InvalidateCategories(ctx context.Context) {
	Invalidate(ctx, CategoryListKey)
}

// RevokeToken blacklists a token id until it would have expired anyway.
// Without Redis revocation is a no-op.
func RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	if client == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return client.Set(ctx, BlacklistKey(jti), "1", ttl).Err()
}

// IsTokenRevoked reports whether jti was blacklisted. Redis errors are returned
// so the caller decides whether to fail open.
func IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if client == nil || jti == "" {
		return false, nil
	}
	n, err := client.Exists(ctx, BlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
