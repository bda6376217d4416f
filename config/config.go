/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package config holds the gateway's build-time constants and an optional
// YAML overlay on top of them. The defaults are the only thing the reactor,
// detector, session table and congestion controller depend on; Load is a
// convenience for operators, not a required step.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of the gateway's runtime tunables.
type Config struct {
	MaxClients            int           `yaml:"max_clients"`
	MaxEvents             int           `yaml:"max_events"`
	BufferSize            int           `yaml:"buffer_size"`
	PollTimeout           time.Duration `yaml:"poll_timeout"`
	ServerAddr            string        `yaml:"server_addr"`
	ServerPort            int           `yaml:"server_port"`
	RateWindow            time.Duration `yaml:"rate_limit_window"`
	MaxMsgsPerSec         int           `yaml:"max_msgs_per_sec"`
	MaxQueueDepth         int           `yaml:"max_queue_depth"`
	SlowStartThresh       int           `yaml:"slow_start_threshold"`
	CongestionBackoff     float64       `yaml:"congestion_backoff"`
	StateTableSize        int           `yaml:"state_table_size"`
	ConnTimeout           time.Duration `yaml:"connection_timeout"`
	ConfidenceHigh        int           `yaml:"confidence_high"`
	ConfidenceMedium      int           `yaml:"confidence_medium"`
	ConfidenceLow         int           `yaml:"confidence_low"`
	MinConfidence         int           `yaml:"min_confidence_threshold"`
	MaxConfidence         int           `yaml:"max_confidence_threshold"`
	ConfidenceHistorySize int           `yaml:"confidence_history_size"`
	AdaptiveLearningRate  float64       `yaml:"adaptive_learning_rate"`
	StaleSweepInterval    time.Duration `yaml:"stale_sweep_interval"`
	StatsEmitInterval     time.Duration `yaml:"stats_emit_interval"`
	ShutdownDrainTimeout  time.Duration `yaml:"shutdown_drain_timeout"`
}

// Default returns the build-time constants from the gateway's external
// interfaces section, verbatim.
func Default() Config {
	return Config{
		MaxClients:            10000,
		MaxEvents:             1000,
		BufferSize:            4096,
		PollTimeout:           1 * time.Second,
		ServerAddr:            "0.0.0.0",
		ServerPort:            8080,
		RateWindow:            1 * time.Second,
		MaxMsgsPerSec:         100,
		MaxQueueDepth:         1000,
		SlowStartThresh:       64,
		CongestionBackoff:     0.5,
		StateTableSize:        1024,
		ConnTimeout:           300 * time.Second,
		ConfidenceHigh:        90,
		ConfidenceMedium:      70,
		ConfidenceLow:         50,
		MinConfidence:         30,
		MaxConfidence:         100,
		ConfidenceHistorySize: 1000,
		AdaptiveLearningRate:  0.1,
		StaleSweepInterval:    30 * time.Second,
		StatsEmitInterval:     60 * time.Second,
		ShutdownDrainTimeout:  500 * time.Millisecond,
	}
}

// Load overlays a YAML file's fields onto Default, leaving any field the
// file omits at its default value. A missing path is not an error: it
// behaves exactly like an empty overlay, since the loader is a convenience,
// not a required startup step.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return cfg, err
	}

	if err = yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
