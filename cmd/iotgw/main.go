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

// Command iotgw is the gateway's thin entry point: it loads
// configuration, wires the detector, session table, metrics registry
// and logger onto a context, then runs the reactor until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/nabbar/iotgw/config"
	"github.com/nabbar/iotgw/detect"
	"github.com/nabbar/iotgw/gwctx"
	"github.com/nabbar/iotgw/logger"
	"github.com/nabbar/iotgw/metrics"
	"github.com/nabbar/iotgw/reactor"
	"github.com/nabbar/iotgw/session"
)

func main() {
	cfgPath := flag.String("config", "", "path to an optional YAML config overlay")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		os.Stderr.WriteString("config load failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New("iotgw", logger.GetLevelString(*logLevel))
	det := detect.New()
	tbl := session.New(cfg.MaxClients)
	met := metrics.New()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctx = gwctx.WithValue(ctx, gwctx.KeyConfig, cfg)
	ctx = gwctx.WithValue(ctx, gwctx.KeyLogger, log)
	ctx = gwctx.WithValue(ctx, gwctx.KeyDetector, det)
	ctx = gwctx.WithValue(ctx, gwctx.KeySessions, tbl)
	ctx = gwctx.WithValue(ctx, gwctx.KeyStats, met)

	r := reactor.New(ctx)
	if err = r.ListenAndServe(ctx); err != nil {
		log.Error("reactor exited with error", logger.NewFields().Add("error", err.Error()))
		os.Exit(1)
	}
}
