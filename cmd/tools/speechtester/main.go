package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/genassist-chat/client/internal/audio"
	"github.com/zhouzirui/genassist-chat/client/internal/client/tts"
	"github.com/zhouzirui/genassist-chat/client/internal/client/voice"
	"github.com/zhouzirui/genassist-chat/client/internal/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	mode := flag.String("mode", "", "测试模式: tts 或 voice")
	text := flag.String("text", "", "TTS 输入文本")
	outputPath := flag.String("out", "", "TTS 输出音频文件路径 (默认自动生成)")
	play := flag.Bool("play", false, "TTS 合成后直接播放")
	voiceName := flag.String("voice", "", "TTS 声音，默认使用配置中的 TTS_VOICE")
	duration := flag.Duration("duration", 20*time.Second, "voice 模式保持会话的时长")
	timeout := flag.Duration("timeout", cfg.TTS.Timeout, "TTS 请求超时时间")

	flag.Parse()

	if *mode != "tts" && *mode != "voice" {
		flag.Usage()
		log.Fatal("请通过 -mode=tts 或 -mode=voice 指定测试模式")
	}

	device := audio.NewDevice()
	defer device.Close()

	switch *mode {
	case "tts":
		if *voiceName == "" {
			*voiceName = cfg.TTS.Voice
		}
		runTTS(cfg, device, *text, *voiceName, *outputPath, *play, *timeout)
	case "voice":
		runVoice(cfg, device, *duration)
	}
}

func runTTS(cfg *config.Config, device *audio.Device, text, voiceName, outputPath string, play bool, timeout time.Duration) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("TTS 模式需要通过 -text 提供待合成文本")
	}

	client := tts.NewClient(cfg.Client.BaseURL, cfg.Client.APIKey,
		tts.WithVoice(voiceName),
		tts.WithTimeout(timeout),
		tts.WithPlayer(device),
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Printf("开始进行 TTS 测试: base=%s voice=%q", cfg.Client.BaseURL, voiceName)

	result, err := client.Synthesize(ctx, text)
	if err != nil {
		log.Fatalf("TTS 调用失败: %v", err)
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.mp3", time.Now().Unix())
	}
	if err := os.WriteFile(outputPath, result.Data, 0o644); err != nil {
		log.Fatalf("写入音频文件失败: %v", err)
	}
	log.Printf("TTS 合成成功: 输出文件 %s, bytes=%d, chunks=%d", outputPath, result.Size(), result.Chunks)

	if play {
		if err := device.Play(ctx, result); err != nil {
			log.Fatalf("播放失败: %v", err)
		}
	}
}

func runVoice(cfg *config.Config, device *audio.Device, duration time.Duration) {
	signaler := voice.NewHTTPSignaler(cfg.Client.BaseURL, cfg.Client.APIKey, cfg.Voice.RealtimeURL, cfg.Voice.RealtimeModel, cfg.Client.Timeout)
	peers := &voice.PionPeerFactory{ICEServers: cfg.Voice.ICEServers}

	session := voice.NewSession(signaler, peers, device, voice.Callbacks{
		OnTranscript: func(text string) {
			log.Printf("识别结果: %s", text)
		},
		OnError: func(err error) {
			log.Printf("[ERROR] 语音会话错误: %v", err)
		},
		OnStateChange: func(state voice.State) {
			log.Printf("状态变化: phase=%s recording=%v", state.Phase, state.Recording)
		},
	})
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	if err := session.Start(ctx); err != nil {
		log.Fatalf("语音会话启动失败: %v", err)
	}
	log.Printf("语音会话已建立，保持 %s，请对着麦克风说话", duration)

	<-ctx.Done()
	session.Stop()
	log.Println("语音会话结束")
}
