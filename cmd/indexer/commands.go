package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"bangla-rag-be/internal/config"
	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/internal/repository/specification"
	"bangla-rag-be/pkg/events"
	pktNats "bangla-rag-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func rebuildCMD() *cobra.Command {
	var manifestPath string

	var rebuild = &cobra.Command{
		Use:   "rebuild",
		Short: "Chunk, embed and index every document in the corpus manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(true)
			if err != nil {
				return err
			}
			defer d.close()

			if manifestPath == "" {
				manifestPath = d.cfg.Index.ManifestPath
			}
			color.Cyan("Rebuilding knowledge base from %s", manifestPath)

			report, err := d.indexService().RebuildFromPath(cmd.Context(), manifestPath)
			if report != nil {
				fmt.Printf("documents: %d\nchunks: %d\nfailed embeddings: %d\nduration: %.1fs\n",
					report.Documents, report.Chunks, report.FailedEmbedding, report.DurationSeconds)
				printCounts(report.ChunksByType)
			}
			if err != nil {
				if report != nil && report.Aborted {
					color.Yellow("Rebuild aborted, the previous index was kept")
				}
				return err
			}
			color.Green("Knowledge base rebuilt")
			return nil
		},
	}
	rebuild.Flags().StringVarP(&manifestPath, "manifest", "m", "", "corpus manifest (default CORPUS_MANIFEST)")
	return rebuild
}

func statsCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show indexed chunk counts by content type",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(false)
			if err != nil {
				return err
			}
			defer d.close()

			total, byType, err := d.indexService().Stats(cmd.Context())
			if err != nil {
				return err
			}
			color.Cyan("Indexed chunks: %d", total)
			counts := make(map[string]int, len(byType))
			for k, v := range byType {
				counts[k] = int(v)
			}
			printCounts(counts)
			return nil
		},
	}
}

func clearCMD() *cobra.Command {
	var yes bool

	var clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every indexed chunk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the index without --yes")
			}
			d, err := loadDeps(false)
			if err != nil {
				return err
			}
			defer d.close()

			if err := d.indexService().Clear(cmd.Context()); err != nil {
				return err
			}
			color.Green("Vector store cleared")
			return nil
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return clearCmd
}

func listCMD() *cobra.Command {
	var contentType, sourceFile string
	var limit, offset int
	var newestFirst bool

	var list = &cobra.Command{
		Use:   "list",
		Short: "List stored chunks",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(false)
			if err != nil {
				return err
			}
			defer d.close()

			repo, err := d.repository()
			if err != nil {
				return err
			}

			specs := []specification.Specification{specification.ByContentType{ContentType: contentType}}
			if sourceFile != "" {
				specs = append(specs, specification.BySourceFile{SourceFile: sourceFile})
			}
			if newestFirst {
				specs = append(specs, specification.OrderBy{Field: "created_at", Desc: true})
			}
			specs = append(specs, specification.Pagination{Limit: limit, Offset: offset})

			chunks, err := repo.FindAll(cmd.Context(), specs...)
			if err != nil {
				return err
			}
			for _, c := range chunks {
				color.New(color.FgYellow).Printf("%s ", c.Id)
				fmt.Printf("[%s #%d] %s\n", c.ContentType, c.ChunkIndex, preview(c.Document, 80))
			}
			color.Cyan("%d chunks", len(chunks))
			return nil
		},
	}
	list.Flags().StringVarP(&contentType, "type", "t", "", "content type (mcq, creative, table, general)")
	list.Flags().StringVar(&sourceFile, "source", "", "source file")
	list.Flags().IntVar(&limit, "limit", 20, "page size")
	list.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	list.Flags().BoolVar(&newestFirst, "newest", false, "order by creation time, newest first")
	return list
}

func showCMD() *cobra.Command {
	var show = &cobra.Command{
		Use:   "show [chunk-id]",
		Short: "Print one stored chunk with its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(false)
			if err != nil {
				return err
			}
			defer d.close()

			repo, err := d.repository()
			if err != nil {
				return err
			}
			chunks, err := repo.FindAll(cmd.Context(), specification.ByID{ID: args[0]})
			if err != nil {
				return err
			}
			if len(chunks) == 0 {
				return fmt.Errorf("chunk %s not found", args[0])
			}

			c := chunks[0]
			color.New(color.FgYellow).Println(c.Id)
			fmt.Printf("type: %s  source: %s  index: %d  created: %s\n", c.ContentType, c.SourceFile, c.ChunkIndex, c.CreatedAt.Format(time.RFC3339))
			keys := make([]string, 0, len(c.Metadata))
			for k := range c.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("  %s = %v\n", k, c.Metadata[k])
			}
			fmt.Println(c.Document)
			return nil
		},
	}
	return show
}

func searchCMD() *cobra.Command {
	var contentType string
	var limit int

	var search = &cobra.Command{
		Use:   "search [query]",
		Short: "Embed a query and show the nearest chunks with their distance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(true)
			if err != nil {
				return err
			}
			defer d.close()

			repo, err := d.repository()
			if err != nil {
				return err
			}
			vector, err := d.embedder.EmbedQuery(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			hits, err := repo.SearchSimilar(cmd.Context(), vector, limit, specification.ByContentType{ContentType: contentType})
			if err != nil {
				return err
			}
			for i, h := range hits {
				color.New(color.FgGreen).Printf("%d. %.4f ", i+1, h.Distance)
				fmt.Printf("[%s] %s\n", h.Chunk.ContentType, preview(h.Chunk.Document, 100))
			}
			return nil
		},
	}
	search.Flags().StringVarP(&contentType, "type", "t", "", "restrict to one content type")
	search.Flags().IntVarP(&limit, "k", "k", 5, "number of hits")
	return search
}

func triggerCMD() *cobra.Command {
	var requestedBy string

	var trigger = &cobra.Command{
		Use:   "trigger",
		Short: "Ask running servers to rebuild the index over NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			pub, err := pktNats.NewPublisher(cfg.App.NatsURL, logger.NewNopLogger())
			if err != nil {
				return err
			}
			defer pub.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := pub.Publish(ctx, events.NewIndexRequested(requestedBy)); err != nil {
				return err
			}
			color.Green("Rebuild requested on %s", pktNats.Subject(events.TypeIndexRequested))
			return nil
		},
	}
	trigger.Flags().StringVar(&requestedBy, "by", hostname(), "requester recorded in the event")
	return trigger
}

func printCounts(counts map[string]int) {
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("  %-10s %d\n", t, counts[t])
	}
}

func preview(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "indexer"
	}
	return h
}
