package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yuzvak/checkout-service/internal/domain/checkout"
	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

// CartStore keeps each user's cart in the hash cart:<user>, one JSON encoded line per product.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

func NewCartStore(conn *Connection, ttl time.Duration, log *logger.Logger) *CartStore {
	if log == nil {
		log = logger.Nop()
	}
	return &CartStore{
		client: conn.GetClient(),
		ttl:    ttl,
		logger: log,
	}
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

// AddLine stores a line, adding to the quantity when the product is already in the cart.
func (s *CartStore) AddLine(ctx context.Context, userID string, line checkout.CartLine) error {
	if line.ProductID == "" {
		return fmt.Errorf("cart line requires a product id")
	}
	if line.Quantity < 1 {
		line.Quantity = 1
	}

	key := cartKey(userID)
	existing, err := s.client.HGet(ctx, key, line.ProductID).Result()
	switch {
	case err == redis.Nil:
	case err != nil:
		return fmt.Errorf("read cart line: %w", err)
	default:
		var current checkout.CartLine
		if err := json.Unmarshal([]byte(existing), &current); err == nil {
			line.Quantity += current.Quantity
		}
	}

	payload, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("encode cart line: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, line.ProductID, payload)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store cart line: %w", err)
	}
	return nil
}

func (s *CartStore) RemoveLine(ctx context.Context, userID, productID string) error {
	return s.client.HDel(ctx, cartKey(userID), productID).Err()
}

func (s *CartStore) Snapshot(ctx context.Context, userID, currency string) (checkout.CartSnapshot, error) {
	raw, err := s.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return checkout.CartSnapshot{}, fmt.Errorf("read cart: %w", err)
	}

	lines := make([]checkout.CartLine, 0, len(raw))
	for productID, value := range raw {
		var line checkout.CartLine
		if err := json.Unmarshal([]byte(value), &line); err != nil {
			s.logger.Warn("Skipping unreadable cart line", "user_id", userID, "product_id", productID, "error", err)
			continue
		}
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].ProductID < lines[j].ProductID
	})

	return checkout.NewCartSnapshot(lines, currency)
}

func (s *CartStore) Clear(ctx context.Context, userID string) error {
	return s.client.Del(ctx, cartKey(userID)).Err()
}

// ForUser binds the store to one user so it can serve as a checkout cart.
func (s *CartStore) ForUser(userID, currency string) checkout.Cart {
	return &userCart{store: s, userID: userID, currency: currency}
}

type userCart struct {
	store    *CartStore
	userID   string
	currency string
}

func (c *userCart) Snapshot(ctx context.Context) (checkout.CartSnapshot, error) {
	return c.store.Snapshot(ctx, c.userID, c.currency)
}

func (c *userCart) Clear(ctx context.Context) error {
	return c.store.Clear(ctx, c.userID)
}
