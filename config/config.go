// Copyright 2026 Tesserai
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the YAML configuration file for the docpipe
// command. A missing file yields defaults, so the command runs without
// any configuration against local services.
package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tesserai/docpipe/ai"
)

// AIConfig configures the embedding, generation and segmentation
// gateways.
type AIConfig struct {
	EmbeddingHost       string  `yaml:"embedding_host"`
	EmbeddingModel      string  `yaml:"embedding_model"`
	GenerationHost      string  `yaml:"generation_host"`
	GenerationModel     string  `yaml:"generation_model"`
	SegmentationHost    string  `yaml:"segmentation_host"`
	SegmentationKey     string  `yaml:"segmentation_key"`
	EmbedRequestsPerSec float64 `yaml:"embed_requests_per_sec"`
}

// QueueConfig configures the in-process work queue.
type QueueConfig struct {
	PoolSize    int           `yaml:"pool_size"`
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

// ReconcileConfig configures the background sweep.
type ReconcileConfig struct {
	Interval   time.Duration `yaml:"interval"`
	SweepLimit int           `yaml:"sweep_limit"`
}

// Config is the root configuration structure.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	AI        AIConfig        `yaml:"ai"`
	Queue     QueueConfig     `yaml:"queue"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

// Load reads a config from path. A missing file returns defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := &Config{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// GatewayConfig converts the AI section into the gateway configuration.
func (c *Config) GatewayConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithGenerationHost(c.AI.GenerationHost),
		ai.WithGenerationModel(c.AI.GenerationModel),
		ai.WithSegmentation(c.AI.SegmentationHost, c.AI.SegmentationKey),
	}
	if c.AI.EmbedRequestsPerSec > 0 {
		opts = append(opts, ai.WithEmbedRequestsPerSecond(c.AI.EmbedRequestsPerSec))
	}
	return ai.NewConfig(opts...)
}

func applyDefaults(cfg *Config) {
	defaults := ai.DefaultConfig()
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.AI.EmbeddingHost == "" {
		cfg.AI.EmbeddingHost = defaults.EmbeddingHost
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = defaults.EmbeddingModel
	}
	if cfg.AI.GenerationHost == "" {
		cfg.AI.GenerationHost = defaults.GenerationHost
	}
	if cfg.AI.GenerationModel == "" {
		cfg.AI.GenerationModel = defaults.GenerationModel
	}
	if cfg.AI.SegmentationHost == "" {
		cfg.AI.SegmentationHost = defaults.SegmentationHost
	}
	if cfg.AI.EmbedRequestsPerSec == 0 {
		cfg.AI.EmbedRequestsPerSec = defaults.EmbedRequestsPerSecond
	}
	if cfg.Queue.MaxAttempts == 0 {
		cfg.Queue.MaxAttempts = 3
	}
	if cfg.Queue.BaseDelay == 0 {
		cfg.Queue.BaseDelay = 100 * time.Millisecond
	}
	if cfg.Reconcile.Interval == 0 {
		cfg.Reconcile.Interval = time.Minute
	}
	if cfg.Reconcile.SweepLimit == 0 {
		cfg.Reconcile.SweepLimit = 30
	}
}
