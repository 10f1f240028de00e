package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/genassist-chat/client/internal/config"
	"github.com/zhouzirui/genassist-chat/client/internal/handler"
	"github.com/zhouzirui/genassist-chat/client/internal/logging"
	"github.com/zhouzirui/genassist-chat/client/internal/model/operator"
	"github.com/zhouzirui/genassist-chat/client/internal/service/ai"
	"github.com/zhouzirui/genassist-chat/client/internal/service/chat"
	"github.com/zhouzirui/genassist-chat/client/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logCloser, err := logging.Setup(cfg.Log, true)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	shutdownTelemetry, err := telemetry.Init(ctx, "genassist-devserver", cfg.Telemetry, cfg.Log)
	if err != nil {
		log.Printf("warning: telemetry disabled: %v", err)
	} else {
		defer shutdownTelemetry()
	}

	operatorStore := operator.NewMemoryStore(operator.Seed())
	chatService := chat.NewService()

	// 未配置大模型时退回到回声坐席
	var responder ai.Responder = ai.EchoResponder{}
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing with echo replies - 请检查 Ark 模型相关环境变量")
		} else {
			responder = aiService
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置，坐席回复使用回声模式")
	}

	switch {
	case cfg.Server.Synthesis.Enabled():
		log.Printf("合成接口使用火山引擎 TTS，默认音色 %s", cfg.Server.Synthesis.Voice)
	case cfg.Server.TTSFile == "":
		log.Println("DEV_TTS_FILE 未配置，合成接口将不返回音频")
	}

	router := handler.NewRouter(cfg.Server, operatorStore, chatService, responder)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("GenAssist dev server listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
