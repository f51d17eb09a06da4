package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/turnon/taskdb/store"

	"gopkg.in/yaml.v3"
)

// Config is the configuration shared by the server and the seeder
type Config struct {
	Listen     string `yaml:"listen"`
	Collection string `yaml:"collection"`
	Storage    struct {
		Dir string `yaml:"dir"`
	} `yaml:"storage"`
}

// LoadConfig reads a yaml config file and fills in defaults
func LoadConfig(cfgPath string) (*Config, error) {
	bytesArr, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(bytesArr, &cfg); err != nil {
		return nil, err
	}

	if cfg.Listen == "" {
		cfg.Listen = ":3333"
	}
	if cfg.Collection == "" {
		cfg.Collection = "tasks"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "database"
	}
	return &cfg, nil
}

// mainServer owns the wired-up collection and api
type mainServer struct {
	cfg *Config
}

// subordinate is anything the main server waits on before exiting
type subordinate interface {
	wait() chan struct{}
}

// Run starts the api from a config file and blocks until shutdown
func Run(cfgPath string) {
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		panic(err)
	}

	srv := mainServer{cfg: cfg}
	<-srv.run()
}

// run opens the collection and serves until the signal context ends
func (srv *mainServer) run() chan struct{} {
	ch := make(chan struct{})
	sigCtx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	tasks, err := store.Open(srv.cfg.Storage.Dir, srv.cfg.Collection)
	if err != nil {
		log.Error().Str("mod", "server").Msgf("open collection err: %v", err)
		close(ch)
		return ch
	}

	children := []subordinate{
		newApi(sigCtx, srv.cfg.Listen, tasks),
	}

	go func() {
		for _, child := range children {
			<-child.wait()
		}
		close(ch)
	}()

	return ch
}
