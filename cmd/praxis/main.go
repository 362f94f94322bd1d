package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/praxis-ai/praxis/action"
	"github.com/praxis-ai/praxis/agent"
	"github.com/praxis-ai/praxis/config"
	"github.com/praxis-ai/praxis/engine"
	"github.com/praxis-ai/praxis/oracle"
	"github.com/praxis-ai/praxis/registry"
	"github.com/praxis-ai/praxis/rest"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}

type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().Int("max-depth", 5, "maximum recursive solve depth")
	cmd.Flags().Int("similarity-top-k", 3, "candidates returned by similarity lookup")
	cmd.Flags().Float64("similarity-threshold", 0.3, "minimum score to consider reusing a workflow")
	cmd.Flags().String("oracle-url", "http://localhost:11434", "base url of the reasoning oracle endpoint")
	cmd.Flags().String("oracle-model", "llama3", "model name sent to the oracle endpoint")
	cmd.Flags().Int("oracle-timeout", 120, "oracle call timeout in seconds")
	cmd.Flags().Int("cache-ttl", 300, "oracle response cache ttl in seconds")
	cmd.Flags().Int("async-capacity", 512, "async run queue capacity")
	cmd.Flags().String("storage-impl", "memory", "registry storage implementation")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "praxis", "namespace used in storage")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.MaxDepth = viper.GetInt("max-depth")
	c.cfg.SimilarityTopK = viper.GetInt("similarity-top-k")
	c.cfg.SimilarityThreshold = viper.GetFloat64("similarity-threshold")
	c.cfg.OracleUrl = viper.GetString("oracle-url")
	c.cfg.OracleModel = viper.GetString("oracle-model")
	c.cfg.OracleTimeoutSeconds = viper.GetInt("oracle-timeout")
	c.cfg.CacheTTLSeconds = viper.GetInt("cache-ttl")
	c.cfg.AsyncRunCapacity = viper.GetInt("async-capacity")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	reg := registry.New()
	if c.cfg.StorageType == config.STORAGE_TYPE_REDIS {
		storage := registry.NewRedisStorage(c.cfg.RedisConfig)
		if err := storage.Sync(context.Background(), reg); err != nil {
			return err
		}
	}
	provider := oracle.NewHTTPProvider(c.cfg.OracleUrl, c.cfg.OracleModel,
		time.Duration(c.cfg.OracleTimeoutSeconds)*time.Second)
	oracleClient, err := oracle.NewClient(provider, time.Duration(c.cfg.CacheTTLSeconds)*time.Second)
	if err != nil {
		return err
	}
	handlers := action.NewHandlers()
	eng := engine.New(reg, handlers)
	ag := agent.New(oracleClient, reg, eng, agent.Config{
		MaxDepth:            c.cfg.MaxDepth,
		SimilarityTopK:      c.cfg.SimilarityTopK,
		SimilarityThreshold: c.cfg.SimilarityThreshold,
	})

	var wg sync.WaitGroup
	asyncRunner := engine.NewAsyncRunner(eng, ag, reg, &wg, c.cfg.AsyncRunCapacity)
	asyncRunner.Start()

	server, err := rest.NewServer(c.cfg.HttpPort, ag, reg, asyncRunner)
	if err != nil {
		return err
	}
	go func() {
		if err := server.Start(); err != nil {
			log.Println(err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	asyncRunner.Stop()
	err = server.Stop()
	wg.Wait()
	return err
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "praxis",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
