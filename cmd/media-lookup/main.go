// media-lookup — разрешение SKU в медиа через кэш индекса картинок.
//
// Та же логика, что у серверов приложений: индекс берется из кэш-бакета,
// публичный URL строится по очищенному ключу.
//
// Использование:
//
//	go run ./cmd/media-lookup LD-0001 LD-0002
//	go run ./cmd/media-lookup -refresh LD-0001
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/ilkoid/poncho-catalog/pkg/config"
	"github.com/ilkoid/poncho-catalog/pkg/media"
	"github.com/ilkoid/poncho-catalog/pkg/s3storage"
	"github.com/ilkoid/poncho-catalog/pkg/utils"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	refresh := flag.Bool("refresh", false, "force an index reload before lookups")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] sku...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*configPath, *refresh, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, refresh bool, skus []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireS3(); err != nil {
		return err
	}
	if err := utils.InitLogger(cfg.App.LogPrefix + "-media"); err != nil {
		return err
	}
	defer utils.Close()

	store, err := s3storage.New(cfg.S3)
	if err != nil {
		return fmt.Errorf("s3 init: %w", err)
	}

	ctx := context.Background()
	cache := media.New(store, media.OptionsFromConfig(cfg.Storage, cfg.Media))
	if refresh {
		// Ошибка видна оператору, но поиск продолжается по тому, что есть
		if err := cache.Refresh(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  refresh failed: %v\n", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	found := 0
	for _, sku := range skus {
		m, ok := cache.Lookup(ctx, sku)
		if !ok {
			fmt.Printf("%s: not found\n", sku)
			continue
		}
		found++
		if err := enc.Encode(m); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "Resolved %d/%d (cache: %s, %d SKUs)\n", found, len(skus), cache.State(), cache.Size())
	return nil
}
