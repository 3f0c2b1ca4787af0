/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/carverauto/fleetcmd/pkg/config"
	"github.com/carverauto/fleetcmd/pkg/core"
	"github.com/carverauto/fleetcmd/pkg/kv"
	"github.com/carverauto/fleetcmd/pkg/logger"
	"github.com/carverauto/fleetcmd/pkg/version"
)

const shutdownTimeout = 5 * time.Second

// Run loads configuration, builds the engine and executes cfg.SubCmd,
// writing results to out.
func Run(ctx context.Context, cfg *CmdConfig, out io.Writer) error {
	engineCfg, err := LoadConfig(ctx, cfg.ConfigFile)
	if err != nil {
		return err
	}

	log, err := logger.New(ctx, engineCfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	otelCfg := &engineCfg.Logging.OTel

	tp, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: version.GetVersion(),
		Logger:         log,
		OTel:           otelCfg,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if _, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: version.GetVersion(),
		OTel:           otelCfg,
	}); err != nil && !errors.Is(err, logger.ErrOTelMetricsDisabled) {
		log.Warn().Err(err).Msg("Metrics export disabled")
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Debug().Err(err).Msg("Tracer provider shutdown failed")
		}

		if err := logger.ShutdownOTEL(); err != nil {
			log.Debug().Err(err).Msg("OTel shutdown failed")
		}
	}()

	engine, err := core.NewEngine(ctx, engineCfg, log)
	if err != nil {
		return err
	}

	defer func() {
		if err := engine.Close(); err != nil {
			log.Warn().Err(err).Msg("Engine close failed")
		}
	}()

	return NewRunner(engine, out, cfg.Output).Run(ctx, cfg)
}

// LoadConfig reads the engine configuration from the source selected by
// CONFIG_SOURCE. For the kv source the bucket is reached through
// FLEETCMD_NATS_URL and FLEETCMD_KV_BUCKET.
func LoadConfig(ctx context.Context, path string) (*core.Config, error) {
	loader := config.NewConfig(nil)

	if strings.EqualFold(strings.TrimSpace(os.Getenv("CONFIG_SOURCE")), "kv") {
		store, err := kv.NewNatsStore(ctx, &kv.Config{
			NATSURL: os.Getenv(config.DefaultEnvPrefix + "NATS_URL"),
			Bucket:  os.Getenv(config.DefaultEnvPrefix + "KV_BUCKET"),
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to open config bucket: %w", err)
		}

		defer func() { _ = store.Close() }()

		loader.SetKVStore(store)
	}

	var cfg core.Config

	if err := loader.LoadAndValidate(ctx, path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}
