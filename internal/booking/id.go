package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/oklog/ulid/v2"
)

// Sequencer выдаёт монотонный счётчик бронирований в пределах суток.
type Sequencer interface {
	Next(ctx context.Context, day string) (int64, error)
}

// AtomicSequencer считает в памяти процесса. Подходит для одного инстанса;
// уникальность между инстансами обеспечивает случайный хвост и unique-индекс.
type AtomicSequencer struct {
	mu  sync.Mutex
	day string
	n   int64
}

func NewAtomicSequencer() *AtomicSequencer {
	return &AtomicSequencer{}
}

func (s *AtomicSequencer) Next(_ context.Context, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day != day {
		s.day = day
		s.n = 0
	}
	s.n++
	return s.n, nil
}

// RedisSequencer ведёт общий для всех инстансов счётчик на INCR.
type RedisSequencer struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSequencer(client *redis.Client) *RedisSequencer {
	return &RedisSequencer{
		client: client,
		prefix: "booking:seq:",
		ttl:    48 * time.Hour,
	}
}

func (s *RedisSequencer) Next(ctx context.Context, day string) (int64, error) {
	key := s.prefix + day
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	if n == 1 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return 0, fmt.Errorf("redis expire %s: %w", key, err)
		}
	}
	return n, nil
}

// IDGenerator строит человекочитаемый код бронирования:
// BK-YYYYMMDD-NNNNNN-XXXXXX (дата, суточный номер, хвост ULID).
type IDGenerator struct {
	seq Sequencer
}

func NewIDGenerator(seq Sequencer) *IDGenerator {
	if seq == nil {
		seq = NewAtomicSequencer()
	}
	return &IDGenerator{seq: seq}
}

func (g *IDGenerator) Next(ctx context.Context, now time.Time) (string, error) {
	day := now.UTC().Format("20060102")
	n, err := g.seq.Next(ctx, day)
	if err != nil {
		return "", err
	}
	tail := ulid.Make().String()
	return fmt.Sprintf("BK-%s-%06d-%s", day, n, tail[len(tail)-6:]), nil
}
