package main

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/podrewind/guest-engine/internal/model"
)

var (
	extractEpisodeID   string
	extractTitle       string
	extractDescription string
	extractFile        string
	extractConcurrency int
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract guests from an episode title/description",
	Long:  "Runs one extraction from flags, or a batch from a JSONL file of {episode_id, title, description} lines.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if extractFile != "" {
			return runBatch(cmd, env)
		}

		if extractTitle == "" && extractDescription == "" {
			return eris.New("either --file or --title/--description is required")
		}

		req := model.ExtractionRequest{
			EpisodeID:   extractEpisodeID,
			Title:       extractTitle,
			Description: extractDescription,
		}
		if req.EpisodeID == "" {
			req.EpisodeID = uuid.New().String()
		}

		result := env.engine.Extract(ctx, req)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func runBatch(cmd *cobra.Command, env *env) error {
	f, err := os.Open(extractFile)
	if err != nil {
		return eris.Wrapf(err, "open %s", extractFile)
	}
	defer f.Close()

	var mu sync.Mutex
	enc := json.NewEncoder(cmd.OutOrStdout())

	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(extractConcurrency)

	var processed, succeeded int
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req model.ExtractionRequest
		if err := json.Unmarshal(line, &req); err != nil {
			return eris.Wrap(err, "parse episode line")
		}
		if req.EpisodeID == "" {
			req.EpisodeID = uuid.New().String()
		}

		g.Go(func() error {
			result := env.engine.Extract(gctx, req)

			mu.Lock()
			defer mu.Unlock()
			processed++
			if result.Success {
				succeeded++
			}
			return enc.Encode(struct {
				EpisodeID string `json:"episode_id"`
				model.ExtractionResult
			}{req.EpisodeID, result})
		})
	}
	if err := scanner.Err(); err != nil {
		return eris.Wrapf(err, "read %s", extractFile)
	}

	if err := g.Wait(); err != nil {
		return err
	}

	zap.L().Info("batch extraction complete",
		zap.Int("processed", processed),
		zap.Int("succeeded", succeeded),
	)
	return nil
}

func init() {
	extractCmd.Flags().StringVar(&extractEpisodeID, "episode-id", "", "episode correlation ID (generated when empty)")
	extractCmd.Flags().StringVar(&extractTitle, "title", "", "episode title")
	extractCmd.Flags().StringVar(&extractDescription, "description", "", "episode description")
	extractCmd.Flags().StringVar(&extractFile, "file", "", "JSONL file of episodes to process")
	extractCmd.Flags().IntVar(&extractConcurrency, "concurrency", 4, "max concurrent extractions in batch mode")
	rootCmd.AddCommand(extractCmd)
}
