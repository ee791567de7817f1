package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	model "github.com/glkeru/loyalty/marketplace/internal/models"
	redis "github.com/redis/go-redis/v9"
)

type CacheService struct {
	client *redis.Client
}

func NewCacheService() (serv *CacheService, err error) {

	// config
	addr := os.Getenv("MARKETPLACE_CACHE_URL")
	if addr == "" {
		return nil, fmt.Errorf("env MARKETPLACE_CACHE_URL is not set")
	}
	user := os.Getenv("MARKETPLACE_CACHE_USER")
	if user == "" {
		return nil, fmt.Errorf("env MARKETPLACE_CACHE_USER is not set")
	}
	pwd := os.Getenv("MARKETPLACE_CACHE_PWD")
	if pwd == "" {
		return nil, fmt.Errorf("env MARKETPLACE_CACHE_PWD is not set")
	}
	// redis
	db := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    pwd,
		Username:    user,
		DB:          0,
		MaxRetries:  5,
		DialTimeout: 10 * time.Second,
	})
	err = db.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}

	return &CacheService{db}, nil
}

func walletKey(user string) string {
	return "wallet:" + user
}

func (c *CacheService) GetWallet(ctx context.Context, user string) (wallet []model.WalletEntry, err error) {
	val, err := c.client.Get(ctx, walletKey(user)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("wallet %s: %w", user, model.ErrNotFound)
	} else if err != nil {
		return nil, err
	}

	err = json.Unmarshal([]byte(val), &wallet)
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (c *CacheService) SetWallet(ctx context.Context, user string, wallet []model.WalletEntry) (err error) {
	data, err := json.Marshal(wallet)
	if err != nil {
		return err
	}
	err = c.client.Set(ctx, walletKey(user), data, 5*time.Minute).Err()
	if err != nil {
		return err
	}
	return nil
}

func (c *CacheService) InvalidateWallet(ctx context.Context, user string) error {
	err := c.client.Del(ctx, walletKey(user)).Err()
	if err != nil {
		return err
	}
	return nil
}
