package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pixelarena/client"
	"pixelarena/view"
)

const (
	releaseVersion = "0.1.0"
)

// Pixel Arena 入口：连接竞技场服务端并打开游戏窗口
func main() {
	log.SetFlags(0)
	// 可选的 .env，变量会被 viper 按 PIXELARENA_ 前缀读取
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	// 优雅退出（Ctrl+C）
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).ExecuteContext(ctx))
}

func play(ctx context.Context, cfg *Config) error {
	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := client.InitLogger(cfg.logFile, cfg.debug); err != nil {
		return err
	}
	defer client.SyncLogger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c, err := client.NewClient(client.Options{
		ServerURL:     cfg.server,
		MaxRetries:    cfg.reconnectAttempts,
		RetryDelay:    cfg.reconnectDelay,
		MaxRetryDelay: cfg.reconnectMaxDelay,
		RetryJitter:   0.5,
		TickRate:      cfg.tickRate,
	})
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer c.Close()

	if cfg.statusAddr != "" {
		go func() {
			if err := client.ServeStatus(ctx, cfg.statusAddr, c); err != nil {
				client.Log.Errorw("status server stopped", "addr", cfg.statusAddr, "error", err)
			}
		}()
	}

	opts := client.DefaultRenderOptions
	opts.ShowGrid = cfg.grid
	game := view.NewGame(c, client.NewRenderer(opts))
	err = view.Run(ctx, game, "Pixel Arena")
	client.Log.Info("Shutting down...")
	return err
}
