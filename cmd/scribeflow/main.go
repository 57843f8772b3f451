// Command scribeflow runs the transcription and summarization service:
// media uploads go through a vendor ASR adapter and a vendor LLM adapter,
// producing a diarized transcript and a Markdown summary per task.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/taoxee/scribeflow/asr"
	"github.com/taoxee/scribeflow/asr/deepgram"
	"github.com/taoxee/scribeflow/asr/elevenlabs"
	asropenai "github.com/taoxee/scribeflow/asr/openai"
	"github.com/taoxee/scribeflow/asr/tencent"
	"github.com/taoxee/scribeflow/asr/xfyun"
	"github.com/taoxee/scribeflow/config"
	"github.com/taoxee/scribeflow/events"
	"github.com/taoxee/scribeflow/llm"
	"github.com/taoxee/scribeflow/llm/minimax"
	"github.com/taoxee/scribeflow/llm/openaicompat"
	"github.com/taoxee/scribeflow/logger"
	"github.com/taoxee/scribeflow/metrics"
	"github.com/taoxee/scribeflow/pipeline"
	"github.com/taoxee/scribeflow/provider"
	"github.com/taoxee/scribeflow/server"
	"github.com/taoxee/scribeflow/taskstore"
	"github.com/taoxee/scribeflow/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "scribeflow: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Init(cfg.Logging)
	log := logger.GetGlobalLogger().WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Endpoint != "" {
		mp, err := metrics.InitProvider(ctx, cfg.Metrics)
		if err != nil {
			return err
		}
		defer mp.Shutdown(context.Background())
	}
	m, err := metrics.Default()
	if err != nil {
		return err
	}

	store, err := taskstore.New(cfg.Storage.TasksDir, nil)
	if err != nil {
		return err
	}

	asrReg, err := buildASRRegistry()
	if err != nil {
		return err
	}
	llmReg := buildLLMRegistry()
	hub := events.NewHub()

	orch, err := pipeline.New(pipeline.Options{
		ASR:     asrReg,
		LLM:     llmReg,
		Store:   store,
		Hub:     hub,
		Metrics: m,
		Prompt:  &cfg.Prompt,
	})
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, nil)
	handlers := server.NewHandlers(orch, store, hub, cfg.Server.MaxUploadMB, cfg.Server.StaticDir)
	handlers.Register(srv.Engine())

	if err := srv.Start(ctx); err != nil {
		return err
	}
	log.Info("scribeflow ready", logger.Fields(
		"version", version.Short(),
		"addr", srv.Addr(),
		"tasks_dir", store.Root(),
		"asr_vendors", asrReg.List(),
		"llm_vendors", llmReg.List(),
	))

	<-ctx.Done()
	log.Info("shutdown signal received")
	return srv.Stop(context.Background())
}

func buildASRRegistry() (*provider.Registry[asr.Provider], error) {
	reg := asr.NewRegistry()

	openaiASR, err := asropenai.NewOpenAI()
	if err != nil {
		return nil, err
	}
	groqASR, err := asropenai.NewGroq()
	if err != nil {
		return nil, err
	}
	dg, err := deepgram.New()
	if err != nil {
		return nil, err
	}
	el, err := elevenlabs.New()
	if err != nil {
		return nil, err
	}
	tc, err := tencent.New()
	if err != nil {
		return nil, err
	}
	xf, err := xfyun.New()
	if err != nil {
		return nil, err
	}

	reg.Register(openaiASR)
	reg.Register(groqASR)
	reg.Register(dg)
	reg.Register(el)
	reg.Register(tc)
	reg.Register(xf)
	return reg, nil
}

func buildLLMRegistry() *provider.Registry[llm.Provider] {
	reg := llm.NewRegistry()
	reg.Register(openaicompat.NewOpenAI())
	reg.Register(openaicompat.NewGroq())
	reg.Register(openaicompat.NewZhipu())
	reg.Register(openaicompat.NewTencent())
	reg.Register(openaicompat.NewAliyun())
	reg.Register(minimax.NewCN())
	reg.Register(minimax.NewGlobal())
	return reg
}
