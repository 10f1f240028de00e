package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/genassist-chat/client/internal/audio"
	"github.com/zhouzirui/genassist-chat/client/internal/client/conversation"
	"github.com/zhouzirui/genassist-chat/client/internal/client/tts"
	"github.com/zhouzirui/genassist-chat/client/internal/client/voice"
	"github.com/zhouzirui/genassist-chat/client/internal/config"
	"github.com/zhouzirui/genassist-chat/client/internal/logging"
	"github.com/zhouzirui/genassist-chat/client/internal/storage"
	"github.com/zhouzirui/genassist-chat/client/internal/telemetry"
	"github.com/zhouzirui/genassist-chat/client/internal/widget"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// 终端界面独占标准输出，日志只写文件
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(os.TempDir(), "genassist", "chatwidget.log")
	}
	logCloser, err := logging.Setup(cfg.Log, false)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	ctx := context.Background()
	shutdownTelemetry, err := telemetry.Init(ctx, "genassist-chatwidget", cfg.Telemetry, cfg.Log)
	if err != nil {
		log.Printf("warning: telemetry disabled: %v", err)
	} else {
		defer shutdownTelemetry()
	}

	store, err := storage.OpenSQLite(cfg.Client.StorePath)
	if err != nil {
		log.Fatalf("failed to open conversation store: %v", err)
	}
	defer store.Close()

	events := widget.NewEvents()

	api := conversation.NewAPIClient(cfg.Client.BaseURL, cfg.Client.APIKey, cfg.Client.Timeout)
	transport := conversation.NewWSTransport(cfg.Client.BaseURL, cfg.Client.APIKey,
		conversation.WithLanguage(cfg.Client.Language),
		conversation.WithTopics(cfg.Client.Topics),
	)
	manager := conversation.NewManager(api, transport, store,
		conversation.WithStorageKey(cfg.Client.StorageKey),
		conversation.WithOperator(cfg.Client.OperatorID, cfg.Client.DataSourceID),
		conversation.WithEchoLocally(cfg.Client.EchoLocally),
		conversation.WithStateHandler(events.OnState),
	)
	manager.SetMessageHandler(events.OnMessage)

	device := audio.NewDevice()
	defer device.Close()

	signaler := voice.NewHTTPSignaler(cfg.Client.BaseURL, cfg.Client.APIKey, cfg.Voice.RealtimeURL, cfg.Voice.RealtimeModel, cfg.Client.Timeout)
	session := voice.NewSession(signaler, &voice.PionPeerFactory{ICEServers: cfg.Voice.ICEServers}, device, events.VoiceCallbacks())

	speaker := tts.NewClient(cfg.Client.BaseURL, cfg.Client.APIKey,
		tts.WithVoice(cfg.TTS.Voice),
		tts.WithTimeout(cfg.TTS.Timeout),
		tts.WithPlayer(device),
	)

	model := widget.New(manager, session, speaker, events)
	_, runErr := tea.NewProgram(model, tea.WithAltScreen()).Run()

	// 先停止事件投递，再断开连接，保留持久化的会话标识
	events.Close()
	session.Stop()
	if err := manager.Disconnect(); err != nil {
		log.Printf("disconnect failed: %v", err)
	}

	if runErr != nil {
		log.Fatalf("chat widget exited: %v", runErr)
	}
}
