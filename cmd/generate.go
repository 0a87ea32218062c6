package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/articlegen/internal/article"
	"github.com/JakeFAU/articlegen/internal/client"
)

type generateOptions struct {
	input      string
	bulk       bool
	url        string
	provider   string
	apiKey     string
	perKeyword int
	out        string
	server     string
	serviceKey string
}

// providerKeyEnv names the variable consulted when --api-key is omitted.
var providerKeyEnv = map[article.ProviderName]string{
	article.ProviderGemini: "GEMINI_API_KEY",
	article.ProviderGroq:   "GROQ_API_KEY",
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Submit a batch to a running server and download the archive",
		Example: `  articlegen generate --input pairs.txt --provider gemini --per-keyword 2
  articlegen generate --input keywords.txt --bulk --url https://example.com --provider groq`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.input, "input", "", `file with "keyword | URL" lines, or keyword lines with --bulk ("-" reads stdin)`)
	f.BoolVar(&opts.bulk, "bulk", false, "treat every input line as a keyword sharing --url")
	f.StringVar(&opts.url, "url", "", "URL shared by all keywords in bulk mode")
	f.StringVar(&opts.provider, "provider", string(article.ProviderGemini), "text provider: gemini or groq")
	f.StringVar(&opts.apiKey, "api-key", "", "provider API key (defaults to GEMINI_API_KEY or GROQ_API_KEY)")
	f.IntVar(&opts.perKeyword, "per-keyword", 1, "articles to generate per keyword")
	f.StringVar(&opts.out, "out", "articles.zip", "where to write the downloaded archive")
	f.StringVar(&opts.server, "server", "", "server base URL (defaults to client.server_url)")
	f.StringVar(&opts.serviceKey, "service-key", "", "X-API-Key for servers with auth enabled (defaults to auth.api_key)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts generateOptions) error {
	cfg, err := configFrom(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	raw, err := readInput(cmd.InOrStdin(), opts.input)
	if err != nil {
		return err
	}
	var keywords []article.KeywordEntry
	if opts.bulk {
		keywords, err = client.ParseBulk(raw, opts.url)
	} else {
		keywords, err = client.ParsePairs(raw)
	}
	if err != nil {
		return fmt.Errorf("parse input: %w", err)
	}

	provider := article.ProviderName(strings.ToLower(opts.provider))
	apiKey := opts.apiKey
	if apiKey == "" {
		apiKey = os.Getenv(providerKeyEnv[provider])
	}
	if strings.TrimSpace(apiKey) == "" {
		return errors.New("an API key is required: pass --api-key or set the provider's key variable")
	}

	serverURL := opts.server
	if serverURL == "" {
		serverURL = cfg.Client.ServerURL
	}
	serviceKey := opts.serviceKey
	if serviceKey == "" {
		serviceKey = cfg.Auth.APIKey
	}
	c, err := client.New(serverURL, client.Options{
		Timeout: time.Duration(cfg.Client.TimeoutSeconds) * time.Second,
		APIKey:  serviceKey,
	})
	if err != nil {
		return err
	}

	printLog := func(e article.LogEntry) {
		fmt.Fprintf(out, "[%s] %s\n", e.Timestamp.Format("15:04:05"), e.Message)
	}
	total := len(keywords) * opts.perKeyword
	printLog(article.LogEntry{Timestamp: time.Now(), Message: fmt.Sprintf("Starting generation of %d articles...", total), Type: article.LogInfo})

	ctx := cmd.Context()
	job, err := c.Submit(ctx, article.GenerationRequest{
		Keywords:           keywords,
		APIProvider:        provider,
		APIKey:             apiKey,
		ArticlesPerKeyword: opts.perKeyword,
	})
	if err != nil {
		msg := err.Error()
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		printLog(article.LogEntry{Timestamp: time.Now(), Message: "Error: " + msg, Type: article.LogError})
		return err
	}
	printLog(article.LogEntry{Timestamp: time.Now(), Message: "⋯ Initializing article generation...", Type: article.LogInfo})

	final, err := c.Watch(ctx, job.ID, cfg.PollInterval(), printLog)
	if err != nil {
		return err
	}
	if final.Status != article.JobStatusCompleted {
		return fmt.Errorf("job %s failed: %s", final.ID, final.FailureReason)
	}

	if err := downloadTo(cmd, c, job.ID, opts.out); err != nil {
		return err
	}
	fmt.Fprintf(out, "archive written to %s\n", opts.out)
	return nil
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path.
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func downloadTo(cmd *cobra.Command, c *client.Client, jobID, dest string) error {
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.CreateTemp(filepath.Dir(dest), ".articles-*.zip.part")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp) //nolint:errcheck // gone after a successful rename

	if err := c.Download(cmd.Context(), jobID, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
