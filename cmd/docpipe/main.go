// Copyright 2026 Tesserai
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/tesserai/docpipe"
	"github.com/tesserai/docpipe/config"
	"github.com/tesserai/docpipe/queue"
)

func main() {
	app := &cli.App{
		Name:  "docpipe",
		Usage: "Multi-tenant document analysis and retrieval pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   "docpipe.yaml",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the pipeline with the background reconciler until interrupted",
				Action: serveCommand,
			},
			{
				Name:  "document",
				Usage: "Manage documents",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Store a document and analyze it",
						ArgsUsage: "[content file, - for stdin]",
						Action:    documentAddCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "tenant", Usage: "Tenant identifier", Required: true},
							&cli.StringFlag{Name: "user", Usage: "Creating user identifier", Required: true},
							&cli.StringFlag{Name: "title", Usage: "Document title", Required: true},
						},
					},
					{
						Name:   "list",
						Usage:  "List a tenant's documents, newest first",
						Action: documentListCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "tenant", Usage: "Tenant identifier", Required: true},
							&cli.IntFlag{Name: "offset", Usage: "Number of documents to skip", Value: 0},
							&cli.IntFlag{Name: "limit", Usage: "Maximum documents to return", Value: 20},
						},
					},
					{
						Name:      "retry",
						Usage:     "Re-run analysis for a document",
						ArgsUsage: "<document id>",
						Action:    documentRetryCommand,
					},
					{
						Name:      "delete",
						Usage:     "Delete a document and its index entries",
						ArgsUsage: "<document id>",
						Action:    documentDeleteCommand,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Semantic search over a tenant's documents",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tenant", Usage: "Tenant identifier", Required: true},
				},
			},
			{
				Name:  "chat",
				Usage: "Manage conversations",
				Subcommands: []*cli.Command{
					{
						Name:      "create",
						Usage:     "Start a conversation with a first question",
						ArgsUsage: "<input>",
						Action:    chatCreateCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "tenant", Usage: "Tenant identifier", Required: true},
							&cli.StringFlag{Name: "user", Usage: "User identifier", Required: true},
							&cli.StringFlag{Name: "title", Usage: "Chat title"},
							&cli.StringFlag{Name: "context", Usage: "System context ahead of the first message"},
						},
					},
					{
						Name:      "input",
						Usage:     "Append a message to a conversation and generate a reply",
						ArgsUsage: "<input>",
						Action:    chatInputCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "chat", Usage: "Chat identifier", Required: true},
						},
					},
					{
						Name:   "list",
						Usage:  "List a user's conversations, newest first",
						Action: chatListCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "tenant", Usage: "Tenant identifier", Required: true},
							&cli.StringFlag{Name: "user", Usage: "User identifier", Required: true},
							&cli.IntFlag{Name: "offset", Usage: "Number of chats to skip", Value: 0},
							&cli.IntFlag{Name: "limit", Usage: "Maximum chats to return", Value: 20},
						},
					},
					{
						Name:      "history",
						Usage:     "Print a conversation in order",
						ArgsUsage: "<chat id>",
						Action:    chatHistoryCommand,
					},
					{
						Name:      "regenerate",
						Usage:     "Re-run a finished or failed generation",
						ArgsUsage: "<history id>",
						Action:    chatRegenerateCommand,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openService builds a Service from the configuration file named by the
// global --config flag.
func openService(c *cli.Context) (*docpipe.Service, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	gateway := cfg.GatewayConfig()
	if err := gateway.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	var queueOpts []queue.Option
	if cfg.Queue.PoolSize > 0 {
		queueOpts = append(queueOpts, queue.WithPoolSize(cfg.Queue.PoolSize))
	}
	queueOpts = append(queueOpts,
		queue.WithMaxAttempts(cfg.Queue.MaxAttempts),
		queue.WithBaseDelay(cfg.Queue.BaseDelay),
	)

	return docpipe.NewService(cfg.DataDir,
		docpipe.WithAIConfig(gateway),
		docpipe.WithQueueOptions(queueOpts...),
		docpipe.WithReconcileInterval(cfg.Reconcile.Interval),
		docpipe.WithReconcileSweepLimit(cfg.Reconcile.SweepLimit),
	)
}

func serveCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service.Start(ctx)
	fmt.Fprintln(os.Stderr, "docpipe running, press Ctrl-C to stop")

	<-ctx.Done()
	fmt.Fprintln(os.Stderr, "shutting down")
	return nil
}

func documentAddCommand(c *cli.Context) error {
	content, err := readInput(c)
	if err != nil {
		return err
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	document, err := service.CreateDocument(c.Context,
		c.String("tenant"), c.String("user"), c.String("title"), content)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	service.Drain()

	analyzed, err := service.GetDocument(c.Context, document.ID)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\t%s\n", analyzed.ID, analyzed.Status, analyzed.Title)
	return nil
}

func documentListCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	documents, count, err := service.ListDocuments(c.Context,
		c.String("tenant"), c.Int("offset"), c.Int("limit"))
	if err != nil {
		return err
	}

	for _, document := range documents {
		fmt.Printf("%s\t%s\t%s\n", document.ID, document.Status, document.Title)
	}
	fmt.Fprintf(os.Stderr, "%d of %d documents\n", len(documents), count)
	return nil
}

func documentRetryCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("document id is required")
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	if err := service.RetryDocument(c.Context, id); err != nil {
		return err
	}
	service.Drain()

	document, err := service.GetDocument(c.Context, id)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\n", document.ID, document.Status)
	return nil
}

func documentDeleteCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("document id is required")
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	return service.DeleteDocument(c.Context, id)
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is required")
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	results, err := service.Search(c.Context, c.String("tenant"), query)
	if err != nil {
		return err
	}

	for _, result := range results {
		fmt.Printf("%s (%.3f)\n", result.Document.Title, result.BestScore)
		for _, hit := range result.Sentences {
			marker := " "
			if hit.Highlighted {
				marker = "*"
			}
			fmt.Printf("  %s %s\n", marker, hit.Sentence.Content)
		}
	}
	return nil
}

func chatCreateCommand(c *cli.Context) error {
	input := strings.Join(c.Args().Slice(), " ")

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	chat, err := service.CreateChat(c.Context,
		c.String("tenant"), c.String("user"), c.String("title"), c.String("context"), input)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	service.Drain()

	fmt.Printf("chat %s\n", chat.ID)
	return printLatestAnswer(c, service, chat.ID)
}

func chatInputCommand(c *cli.Context) error {
	input := strings.Join(c.Args().Slice(), " ")

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	if _, err := service.ChatInput(c.Context, c.String("chat"), input); err != nil {
		return err
	}
	service.Drain()

	return printLatestAnswer(c, service, c.String("chat"))
}

func chatListCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	chats, count, err := service.ListChats(c.Context,
		c.String("tenant"), c.String("user"), c.Int("offset"), c.Int("limit"))
	if err != nil {
		return err
	}

	for _, chat := range chats {
		fmt.Printf("%s\t%s\n", chat.ID, chat.Title)
	}
	fmt.Fprintf(os.Stderr, "%d of %d chats\n", len(chats), count)
	return nil
}

func chatHistoryCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("chat id is required")
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	entries, err := service.ListHistories(c.Context, id, 0, 0)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Printf("[%s] %s\n", entry.Role, entry.Content)
	}
	return nil
}

func chatRegenerateCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("history id is required")
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	if err := service.RegenerateHistory(c.Context, id); err != nil {
		return err
	}
	service.Drain()

	entry, err := service.GetHistory(c.Context, id)
	if err != nil {
		return err
	}
	fmt.Printf("[%s] %s\n", entry.Role, entry.Content)
	return nil
}

func printLatestAnswer(c *cli.Context, service *docpipe.Service, chatID string) error {
	entries, err := service.ListHistories(c.Context, chatID, 0, 0)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	last := entries[len(entries)-1]
	fmt.Printf("[%s] %s\n", last.Role, last.Content)
	return nil
}

// readInput returns the document content named by the first argument, or
// stdin when the argument is "-" or absent.
func readInput(c *cli.Context) (string, error) {
	source := c.Args().First()
	if source == "" || source == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", source, err)
	}
	return string(data), nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
