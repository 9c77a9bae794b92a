package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xxxsen/spark/internal/ai"
	"github.com/xxxsen/spark/internal/config"
	"github.com/xxxsen/spark/internal/service"
)

const notePreviewChars = 300

type batchFile struct {
	Blocks []batchBlock `yaml:"blocks"`
}

type batchBlock struct {
	SourceKind string         `yaml:"source_kind"`
	RawContent string         `yaml:"raw_content"`
	Metadata   map[string]any `yaml:"metadata"`
	MediaFile  string         `yaml:"media_file"`
	MediaMIME  string         `yaml:"media_mime"`
}

func loadBatch(path string) ([]service.IngestRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open batch: %w", err)
	}
	var batch batchFile
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	if len(batch.Blocks) == 0 {
		return nil, fmt.Errorf("batch %s has no blocks", path)
	}
	reqs := make([]service.IngestRequest, 0, len(batch.Blocks))
	for i, b := range batch.Blocks {
		req := service.IngestRequest{
			SourceKind: b.SourceKind,
			RawContent: b.RawContent,
			Metadata:   b.Metadata,
		}
		if b.MediaFile != "" {
			mediaPath := b.MediaFile
			if !filepath.IsAbs(mediaPath) {
				mediaPath = filepath.Join(filepath.Dir(path), mediaPath)
			}
			raw, err := os.ReadFile(mediaPath)
			if err != nil {
				return nil, fmt.Errorf("block %d: read media: %w", i, err)
			}
			req.Media = &ai.Media{MIMEType: b.MediaMIME, Data: raw}
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func runIngest(ctx context.Context, cfg *config.Config, path string, out io.Writer) error {
	reqs, err := loadBatch(path)
	if err != nil {
		return err
	}
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	if err := ingestBatch(ctx, a.service, reqs, cfg.Pipeline.TopK, out); err != nil {
		return err
	}
	a.logSummary(ctx, "batch done")
	return nil
}

// ingestBatch processes reqs in order, then prints the related blocks of each
// one against the final corpus.
func ingestBatch(ctx context.Context, svc *service.SparkService, reqs []service.IngestRequest, topK int, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	views := make([]*service.BlockView, 0, len(reqs))
	for i, req := range reqs {
		view, err := svc.Ingest(ctx, req)
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		views = append(views, view)
		printBlock(out, i+1, view)
	}

	fmt.Fprintln(out, "== links ==")
	for _, v := range views {
		related, err := svc.Related(ctx, v.ID, topK)
		if err != nil {
			return err
		}
		if len(related) == 0 {
			fmt.Fprintf(out, "%s: no related blocks\n", v.Title)
			continue
		}
		for _, r := range related {
			fmt.Fprintf(out, "%s -> %s (%.4f) %s\n", v.Title, r.Block.Title, r.Score, strings.Join(r.SharedTags, " "))
		}
	}
	return nil
}

func printBlock(out io.Writer, n int, v *service.BlockView) {
	fmt.Fprintf(out, "[%d] %s (%s, %s)\n", n, v.Title, v.SourceKind, v.Status)
	if len(v.AITags) > 0 {
		fmt.Fprintf(out, "    tags: %s\n", strings.Join(v.AITags, " "))
	}
	note := []rune(v.ProcessedContent)
	if len(note) > notePreviewChars {
		note = append(note[:notePreviewChars], []rune("...")...)
	}
	fmt.Fprintf(out, "    %s\n\n", strings.ReplaceAll(string(note), "\n", "\n    "))
}
