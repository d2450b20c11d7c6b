// Package main 是批处理命令行：执行完整流水线、校验数据完整性、把帖子发布到 Kafka。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"meme-guard-go/internal/app"
	"meme-guard-go/internal/config"
	"meme-guard-go/internal/ingest"
	"meme-guard-go/pkg/kafka"
	"meme-guard-go/pkg/log"
	"meme-guard-go/pkg/storage"
	"meme-guard-go/pkg/tasks"
)

func main() {
	cliApp := &cli.App{
		Name:  "pipeline",
		Usage: "meme moderation batch pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "./configs/config.yaml",
				Usage:   "path to config file",
				EnvVars: []string{"MEMEGUARD_CONFIG"},
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "max lines read per input file (overrides data.limit, 0 keeps config)",
			},
		},
		Before: func(cctx *cli.Context) error {
			// .env 是可选的
			_ = godotenv.Load()
			cfg, err := config.Load(cctx.String("config"))
			if err != nil {
				return err
			}
			if n := cctx.Int("limit"); n > 0 {
				cfg.Data.Limit = n
			}
			config.Conf = cfg
			log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
			return nil
		},
		After: func(cctx *cli.Context) error {
			log.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "reset stores, train on the training file and serve the serving file",
				Action: runPipeline,
			},
			{
				Name:  "verify",
				Usage: "compare images referenced by a JSONL file with images on disk",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "JSONL file relative to data.base_dir (default: data.train_file)"},
				},
				Action: verifyData,
			},
			{
				Name:  "publish",
				Usage: "publish posts from a JSONL file to the Kafka topic",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "JSONL file relative to data.base_dir (default: data.serve_file)"},
				},
				Action: publishPosts,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func dataFile(cfg config.Config, name, fallback string) string {
	if name == "" {
		name = fallback
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.Data.BaseDir, name)
}

func runPipeline(cctx *cli.Context) error {
	a, err := app.New(cctx.Context, config.Conf)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Runner.Run(cctx.Context)
	if err != nil {
		return err
	}
	fmt.Printf("run %s: trained=%v, train ingested=%d (missing images %d), serve ingested=%d (missing images %d), decisions=%d\n",
		report.RunID, report.ModelTrained,
		report.TrainStats.Ingested, report.TrainStats.MissingImages,
		report.ServeStats.Ingested, report.ServeStats.MissingImages,
		len(report.Decisions))
	return nil
}

func verifyData(cctx *cli.Context) error {
	cfg := config.Conf
	report, err := ingest.Verify(cfg.Data.BaseDir, dataFile(cfg, cctx.String("file"), cfg.Data.TrainFile))
	if err != nil {
		return err
	}
	fmt.Printf("referenced=%d on_disk=%d missing_from_disk=%d extra_on_disk=%d\n",
		report.Referenced, report.OnDisk, len(report.MissingFromDisk), len(report.ExtraOnDisk))
	printFirst("missing from disk", report.MissingFromDisk)
	printFirst("extra on disk", report.ExtraOnDisk)
	return nil
}

func printFirst(label string, items []string) {
	if len(items) == 0 {
		return
	}
	n := len(items)
	if n > 5 {
		n = 5
	}
	fmt.Printf("%s (first %d): %v\n", label, n, items[:n])
}

func publishPosts(cctx *cli.Context) error {
	cfg := config.Conf
	posts, stats, err := ingest.ReadPosts(cctx.Context, dataFile(cfg, cctx.String("file"), cfg.Data.ServeFile), cfg.Data.Limit, storage.NewFileSource(cfg.Data.BaseDir))
	if err != nil {
		return err
	}

	kafka.InitProducer(cfg.Kafka)
	defer kafka.CloseProducer()

	batch := make([]tasks.PostTask, 0, len(posts))
	for _, p := range posts {
		batch = append(batch, tasks.NewPostTask(p))
	}
	sent, err := kafka.PublishAll(cctx.Context, batch)
	fmt.Printf("published %d/%d posts to %s (skipped %d with missing images)\n", sent, len(posts), cfg.Kafka.Topic, stats.MissingImages)
	return err
}
