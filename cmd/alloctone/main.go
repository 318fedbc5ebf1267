package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/RenatoCabral2022/alloctone/internal/config"
	"github.com/RenatoCabral2022/alloctone/internal/meter"
	"github.com/RenatoCabral2022/alloctone/internal/osc"
	"github.com/RenatoCabral2022/alloctone/internal/player"
	"github.com/RenatoCabral2022/alloctone/internal/synth"
	"github.com/RenatoCabral2022/alloctone/internal/wav"
)

func main() {
	cfg := config.Load()

	logger, _ := zap.NewProduction()
	if cfg.Debug {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	shape, err := osc.ParseWaveshape(cfg.Waveshape)
	if err != nil {
		logger.Fatal("bad WAVESHAPE", zap.Error(err))
	}

	logger.Info("alloctone starting",
		zap.String("listen", cfg.ListenAddr),
		zap.String("waveshape", shape.String()),
		zap.Int("sampleIntervalMS", cfg.SampleIntervalMS),
		zap.Int("meterIntervalMS", cfg.MeterIntervalMS),
		zap.Int("runDurationSec", cfg.RunDurationSec),
	)

	m := meter.New(time.Duration(cfg.MeterIntervalMS) * time.Millisecond)
	m.Start()

	s := synth.New(synth.Config{
		Supplier:  m.Rate,
		Map:       func(v float64) float64 { return v / 1e6 },
		Waveshape: shape,
		Interval:  time.Duration(cfg.SampleIntervalMS) * time.Millisecond,
	}, logger)

	if err := s.Start(); err != nil {
		logger.Fatal("start synth", zap.Error(err))
	}

	if cfg.Churn {
		logger.Info("churn workload enabled")
		go churn()
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.Status())
	})
	r.Get("/snapshot.wav", func(w http.ResponseWriter, _ *http.Request) {
		pcm := s.Snapshot(5 * time.Second)
		if len(pcm) == 0 {
			http.Error(w, "no audio captured yet", http.StatusNotFound)
			return
		}
		var buf bytes.Buffer
		if err := wav.Encode(&buf, pcm, player.SampleRate); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(buf.Bytes())
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go func() {
		logger.Info("debug API listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("debug API failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if cfg.RunDurationSec > 0 {
		select {
		case <-quit:
		case <-time.After(time.Duration(cfg.RunDurationSec) * time.Second):
		}
	} else {
		<-quit
	}

	logger.Info("shutting down")
	s.Stop()
	m.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

// churn allocates garbage in a tight loop so the allocation rate, and
// with it the tone, has something to track on an otherwise idle process.
func churn() {
	for {
		b := bytes.Repeat([]byte("derp"), 64*1024)
		b[0] = byte(time.Now().UnixNano())
	}
}
