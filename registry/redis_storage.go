package registry

import (
	"context"
	"fmt"
	"strings"

	rd "github.com/go-redis/redis/v9"
	"github.com/praxis-ai/praxis/config"
	"github.com/praxis-ai/praxis/logger"
	"github.com/praxis-ai/praxis/util"
	"go.uber.org/zap"
)

const WORKFLOW_DEF string = "WORKFLOW"

// RedisStorage persists registry records behind the Export/Import boundary.
// Direct action handlers do not survive serialization, imported definitions
// reference them by handler name and resolve at execution time.
type RedisStorage struct {
	redisClient    rd.UniversalClient
	namespace      string
	encoderDecoder util.EncoderDecoder[Record]
}

func NewRedisStorage(conf config.RedisStorageConfig) *RedisStorage {
	redisClient := rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs: conf.Addrs,
	})
	return &RedisStorage{
		redisClient:    redisClient,
		namespace:      conf.Namespace,
		encoderDecoder: util.NewJsonEncoderDecoder[Record](),
	}
}

func (s *RedisStorage) getNamespaceKey(args ...string) string {
	return fmt.Sprintf("%s:%s", s.namespace, strings.Join(args, ":"))
}

func (s *RedisStorage) Save(ctx context.Context, rec Record) error {
	key := s.getNamespaceKey(WORKFLOW_DEF)
	data, err := s.encoderDecoder.Encode(rec)
	if err != nil {
		return err
	}
	err = s.redisClient.HSet(ctx, key, []string{rec.Workflow.Name, string(data)}).Err()
	if err != nil {
		logger.Error("error saving workflow definition", zap.String("workflow", rec.Workflow.Name), zap.Error(err))
		return err
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, name string) error {
	key := s.getNamespaceKey(WORKFLOW_DEF)
	return s.redisClient.HDel(ctx, key, name).Err()
}

func (s *RedisStorage) Load(ctx context.Context) ([]Record, error) {
	key := s.getNamespaceKey(WORKFLOW_DEF)
	values, err := s.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(values))
	for name, raw := range values {
		rec, err := s.encoderDecoder.Decode([]byte(raw))
		if err != nil {
			logger.Error("skipping undecodable workflow record", zap.String("workflow", name), zap.Error(err))
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

// Sync writes every in memory record out and loads any stored records that
// are not yet registered, wiring a process restart back to its catalog.
func (s *RedisStorage) Sync(ctx context.Context, reg *Registry) error {
	stored, err := s.Load(ctx)
	if err != nil {
		return err
	}
	for _, rec := range stored {
		if _, err := reg.FindByName(rec.Workflow.Name); err == nil {
			continue
		}
		if err := reg.Register(rec.Workflow, rec.Metadata, false); err != nil {
			logger.Error("error importing stored workflow", zap.String("workflow", rec.Workflow.Name), zap.Error(err))
		}
	}
	for _, rec := range reg.Export() {
		if err := s.Save(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
