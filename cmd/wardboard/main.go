package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"wardboard/internal/config"
	"wardboard/internal/server"
	"wardboard/internal/util"
)

var (
	port    = flag.Int("port", 0, "待ち受けポート (config.toml が優先。port 未設定のときのみ有効)")
	devMode = flag.Bool("dev", false, "開発モード")
	dataDir = flag.String("dataDir", "", "データディレクトリ (設定ファイルを上書き)")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  Wardboard - 入退院分析・予測ツール")
	fmt.Println("==========================================")

	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		log.Printf("設定の読み込みに失敗したため既定値を使います: %v", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}

	// コマンドライン引数による上書き
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	srv := server.NewServer(cfg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	go func() {
		fmt.Printf("サービスを起動しています。ポート %d で待ち受け中...\n", cfg.Server.Port)
		if err := srv.Run(addr); err != nil {
			log.Fatalf("サービスの起動に失敗: %v", err)
		}
	}()

	if !cfg.Server.DevMode {
		fmt.Printf("ブラウザを開いています: %s\n", url)
		if err := util.OpenBrowserWithFallback(url); err != nil {
			fmt.Printf("ブラウザを自動で開けませんでした。手動でアクセスしてください: %s\n", url)
		}
	} else {
		fmt.Printf("開発モード: %s へアクセスしてください\n", url)
	}

	fmt.Println("\nCtrl+C で停止します...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nサービスを停止しています...")
	if err := srv.Close(); err != nil {
		log.Printf("終了処理に失敗: %v", err)
	}
}
