package config

type StorageType string

const STORAGE_TYPE_MEMORY StorageType = "memory"
const STORAGE_TYPE_REDIS StorageType = "redis"

type Config struct {
	HttpPort             int
	MaxDepth             int
	SimilarityTopK       int
	SimilarityThreshold  float64
	OracleUrl            string
	OracleModel          string
	OracleTimeoutSeconds int
	CacheTTLSeconds      int
	AsyncRunCapacity     int
	StorageType          StorageType
	RedisConfig          RedisStorageConfig
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
}
