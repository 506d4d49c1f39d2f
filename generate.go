package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/HugeFrog24/video-playbook/utils"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <video-uri>",
		Short: "Extract and rate playbooks for a video",
		Long: `Extract a playbook from the video at <video-uri> and ask the model to rate it,
repeated -n times. The video is registered as cached content first unless
--no-cache is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runGenerate,
	}

	cmd.Flags().String("mime-type", utils.DefaultMIMEType, "MIME type of the video")
	cmd.Flags().StringArray("event", nil, "Event captured during the recording (repeatable)")
	cmd.Flags().String("events-file", "", "File with one event per line")
	cmd.Flags().String("chat-file", "", "Chat transcript recorded with the video")
	cmd.Flags().String("model", "", "Model name (defaults to the configured model)")
	cmd.Flags().Bool("no-cache", false, "Send the video with every call instead of caching it")
	cmd.Flags().IntP("n", "n", utils.DefaultIterations, "Number of playbooks to generate")
	cmd.Flags().StringP("output", "o", "", "Write the run to this XML file")
	cmd.Flags().Bool("save", false, "Store the run in the history database")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := utils.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := utils.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	// Cancel on interrupt so in-flight model calls stop
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req, err := requestFromFlags(cmd, args[0], cfg)
	if err != nil {
		return err
	}

	service, err := cfg.NewModelService(ctx)
	if err != nil {
		return err
	}
	logger.Debug("model service ready", "provider", cfg.Provider, "model", req.Model, "api_key", utils.SanitizeToken(cfg.APIKey()))
	templates, err := cfg.Templates()
	if err != nil {
		return err
	}

	generator, err := utils.NewPlaybookGenerator(utils.GeneratorOptions{
		Service:          service,
		Templates:        templates,
		Detector:         utils.NewLinguaDetector(),
		CacheTTL:         cfg.CacheTTL,
		CacheDisplayName: cfg.CacheDisplayName,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	results, err := generator.GenerateProcess(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to generate playbooks: %w", err)
	}
	run := utils.NewRun(req, results)

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := utils.WriteXMLFile(output, run); err != nil {
			return err
		}
		logger.Info("XML results written", "path", output)
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		if err := saveRun(ctx, cfg, logger, run); err != nil {
			return err
		}
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	return printRun(cmd.OutOrStdout(), run, jsonOut)
}

func requestFromFlags(cmd *cobra.Command, videoURI string, cfg utils.Config) (utils.Request, error) {
	flags := cmd.Flags()
	mimeType, _ := flags.GetString("mime-type")
	events, _ := flags.GetStringArray("event")
	eventsFile, _ := flags.GetString("events-file")
	chatFile, _ := flags.GetString("chat-file")
	model, _ := flags.GetString("model")
	noCache, _ := flags.GetBool("no-cache")
	n, _ := flags.GetInt("n")

	if n < 1 {
		return utils.Request{}, fmt.Errorf("-n must be at least 1, got %d", n)
	}
	if model == "" {
		model = cfg.Model
	}

	if eventsFile != "" {
		lines, err := readLines(eventsFile)
		if err != nil {
			return utils.Request{}, fmt.Errorf("failed to read events file: %w", err)
		}
		events = append(events, lines...)
	}

	var chat []string
	if chatFile != "" {
		lines, err := readLines(chatFile)
		if err != nil {
			return utils.Request{}, fmt.Errorf("failed to read chat file: %w", err)
		}
		chat = lines
	}

	return utils.Request{
		VideoURI: videoURI,
		MIMEType: mimeType,
		Events:   events,
		Chat:     chat,
		Model:    model,
		Cache:    !noCache,
		N:        n,
	}, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func printRun(w io.Writer, run utils.Run, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Fprintf(w, "Run %s: %d playbooks for %s\n", run.ID, len(run.Results), run.VideoURI)
	for _, r := range run.Results {
		fmt.Fprintf(w, "\nPlaybook %d: %s (rating %d/5, supported: %t)\n", r.Number, r.Process.Issue, r.Feedback.Rating, r.Feedback.Support)
		if r.Process.TicketNumber != "" {
			fmt.Fprintf(w, "  Ticket: %s %s\n", r.Process.TicketPlatform, r.Process.TicketNumber)
		}
		for i, step := range r.Process.Actions {
			fmt.Fprintf(w, "  %d. [%s] %s: %s\n", i+1, step.TimeStamp, step.Speaker, step.ActionSummary)
		}
		if r.Feedback.Recommendations != "" {
			fmt.Fprintf(w, "  Recommendations: %s\n", r.Feedback.Recommendations)
		}
	}
	if run.BestIndex > 0 {
		fmt.Fprintf(w, "\nSuggested best playbook: %d\n", run.BestIndex)
	}
	return nil
}
