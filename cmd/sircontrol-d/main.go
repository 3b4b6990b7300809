package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hexperiment/sircontrol/pkg/api"
	"github.com/hexperiment/sircontrol/pkg/engine"
	"github.com/hexperiment/sircontrol/pkg/store"
	"github.com/hexperiment/sircontrol/pkg/store/redis"
	"github.com/hexperiment/sircontrol/web"
)

func main() {
	fmt.Println(`{"level":"info","msg":"system_started","component":"sircontrol-d"}`)

	config, err := LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Printf(`{"level":"fatal","msg":"failed_to_load_config","error":"%v"}`+"\n", err)
		os.Exit(1)
	}

	st, err := store.NewStore(config.DBPath)
	if err != nil {
		fmt.Printf(`{"level":"fatal","msg":"failed_to_init_store","error":"%v"}`+"\n", err)
		os.Exit(1)
	}
	fmt.Printf(`{"level":"info","msg":"store_initialized","path":"%s"}`+"\n", config.DBPath)

	runner := engine.NewRunner(st)
	runner.SetTimeout(config.RunTimeout)

	// Optional Redis mirror for the run summaries.
	if config.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: config.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			fmt.Printf(`{"level":"warn","msg":"redis_unreachable","addr":"%s","error":"%v"}`+"\n", config.RedisAddr, err)
		} else {
			runner.SetSummarySink(redis.NewRunMirror(rdb))
			fmt.Printf(`{"level":"info","msg":"redis_mirror_enabled","addr":"%s"}`+"\n", config.RedisAddr)
		}
		cancel()
	}

	server := api.NewServer(st, runner, config.Addr)

	switch config.WebAssetsMode {
	case "embedded":
		assets, err := web.Assets()
		if err != nil {
			fmt.Printf(`{"level":"fatal","msg":"failed_to_load_web_assets","error":"%v"}`+"\n", err)
			os.Exit(1)
		}
		server.SetStaticFS(assets)
	case "fs":
		server.SetStaticFS(os.DirFS(config.WebDir))
	case "off":
		// API only.
	}

	if config.TLSCertFile != "" {
		server.SetTLS(config.TLSCertFile, config.TLSKeyFile)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		fmt.Printf(`{"level":"info","msg":"shutdown_initiated","signal":"%s"}`+"\n", sig)
	case err := <-serverErr:
		if err != nil {
			fmt.Printf(`{"level":"fatal","msg":"server_failed","error":"%v"}`+"\n", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_stop_server","error":"%v"}`+"\n", err)
	}

	if err := st.Close(); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_close_store","error":"%v"}`+"\n", err)
	} else {
		fmt.Println(`{"level":"info","msg":"store_closed"}`)
	}

	fmt.Println(`{"level":"info","msg":"shutdown_complete"}`)
}
