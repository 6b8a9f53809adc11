package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"github.com/murakmii/toolpath/internal"
	"github.com/murakmii/toolpath/internal/blob"
	"github.com/murakmii/toolpath/internal/convert"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"os"
)

type config struct {
	s3         blob.MinioConfig
	lists      bool
	compress   string
	parallel   int
	metrics    string
	args       []string
	registry   *prometheus.Registry
	logger     *zap.Logger
	store      blob.Store
	subcommand string
}

func main() {
	if len(os.Args) < 2 {
		panic("usage: toolpath <convert|inspect|columns|stats> [flags] <args>")
	}

	cfg, err := parseFlags(os.Args[1], os.Args[2:])
	if err != nil {
		panic(err)
	}
	defer cfg.logger.Sync()

	ctx := context.Background()
	switch cfg.subcommand {
	case "convert":
		err = convertFile(ctx, cfg)
	case "inspect":
		err = inspect(ctx, cfg)
	case "columns":
		err = columns(ctx, cfg)
	case "stats":
		err = stats(ctx, cfg)
	default:
		panic("unknown command")
	}

	if cfg.metrics != "" {
		if werr := prometheus.WriteToTextfile(cfg.metrics, cfg.registry); werr != nil {
			cfg.logger.Error("failed to write metrics", zap.Error(werr))
		}
	}

	if err != nil {
		panic(err)
	}
}

func parseFlags(subcommand string, args []string) (*config, error) {
	cfg := &config{subcommand: subcommand}

	fs := flag.NewFlagSet(subcommand, flag.ExitOnError)
	fs.StringVar(&cfg.s3.Endpoint, "s3-endpoint", "", "S3 compatible endpoint for s3:// paths")
	fs.StringVar(&cfg.s3.AccessKey, "s3-access-key", os.Getenv("AWS_ACCESS_KEY_ID"), "S3 access key")
	fs.StringVar(&cfg.s3.SecretKey, "s3-secret-key", os.Getenv("AWS_SECRET_ACCESS_KEY"), "S3 secret key")
	fs.BoolVar(&cfg.s3.Secure, "s3-secure", true, "use TLS for S3")
	fs.BoolVar(&cfg.lists, "lists", false, "include list columns in the table")
	fs.StringVar(&cfg.compress, "compression", "zstd", "parquet compression (none, snappy, gzip, lz4, zstd)")
	fs.IntVar(&cfg.parallel, "parallelism", 0, "number of layers rebuilt concurrently")
	fs.StringVar(&cfg.metrics, "metrics-file", "", "write prometheus metrics to this file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.args = fs.Args()

	var err error
	if cfg.logger, err = zap.NewProduction(); err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	router := &blob.Router{Local: blob.NewLocalStore()}
	if cfg.s3.Endpoint != "" {
		if router.S3, err = blob.DialMinio(cfg.s3); err != nil {
			return nil, err
		}
	}
	cfg.store = blob.CompressedStore{Store: router}
	cfg.registry = prometheus.NewRegistry()

	return cfg, nil
}

func (cfg *config) arg(i int) string {
	if i >= len(cfg.args) {
		panic(fmt.Sprintf("%s: missing argument #%d", cfg.subcommand, i+1))
	}
	return cfg.args[i]
}

func (cfg *config) converter() *convert.Converter {
	return convert.New(
		convert.WithStore(cfg.store),
		convert.WithLogger(cfg.logger),
		convert.WithRegisterer(cfg.registry),
		convert.WithIncludeLists(cfg.lists),
		convert.WithParallelism(cfg.parallel),
		convert.WithParquetCompression(cfg.compress),
	)
}

// 入出力の形式は拡張子で決まる(.parquet か、それ以外は ada3dp)
func convertFile(ctx context.Context, cfg *config) error {
	src, dst := cfg.arg(0), cfg.arg(1)
	c := cfg.converter()

	tp, err := c.Load(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to load '%s': %w", src, err)
	}

	if err := c.Save(ctx, tp, dst); err != nil {
		return fmt.Errorf("failed to save '%s': %w", dst, err)
	}

	cfg.logger.Info("converted", zap.String("src", src), zap.String("dst", dst), zap.Int("rows", tp.Table.Len()))
	return nil
}

func openParquet(ctx context.Context, cfg *config) (*internal.Parquet, error) {
	data, err := cfg.store.Get(ctx, cfg.arg(0))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	return internal.NewParquet(bytes.NewReader(data)), nil
}

func inspect(ctx context.Context, cfg *config) error {
	par, err := openParquet(ctx, cfg)
	if err != nil {
		return err
	}

	inspected, err := par.Inspect(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect parquet file: %w", err)
	}

	return printJSON(inspected)
}

func columns(ctx context.Context, cfg *config) error {
	par, err := openParquet(ctx, cfg)
	if err != nil {
		return err
	}

	reader, err := internal.NewReader(ctx, par)
	if err != nil {
		return fmt.Errorf("failed to create reader: %w", err)
	}

	leaves := reader.MetaData().Leaves()
	result := make([]*internal.ColumnStats, 0, len(leaves))
	for _, path := range leaves {
		s, err := reader.ColumnStats(ctx, path...)
		if err != nil {
			return fmt.Errorf("failed to read column %v: %w", path, err)
		}
		result = append(result, s)
	}

	return printJSON(result)
}

func stats(ctx context.Context, cfg *config) error {
	summaries, err := cfg.converter().Stats(ctx, cfg.arg(0))
	if err != nil {
		return fmt.Errorf("failed to summarize '%s': %w", cfg.arg(0), err)
	}
	return printJSON(summaries)
}

func printJSON(v any) error {
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	fmt.Println(string(j))
	return nil
}
