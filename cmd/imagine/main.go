// Command imagine generates an image from a natural-language prompt
// using either the free Hugging Face Inference API or the paid OpenAI
// images API, and saves the result to disk.
//
// Exit codes: 0 success, 1 usage error, 2 missing credential,
// 3 provider failure, 4 local I/O failure.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bitop-dev/imagine"
)

const (
	exitUsage             = 1
	exitCredentialMissing = 2
	exitProviderFailure   = 3
	exitLocalIO           = 4
)

var flags struct {
	provider  string
	model     string
	hfModel   string
	size      string
	quality   string
	outputDir string
	timeout   time.Duration
	verbose   bool
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	root := &cobra.Command{
		Use:   "imagine \"<prompt>\"",
		Short: "Generate an image from a text prompt",
		Long: `Generate an image from a text prompt.

By default the free Hugging Face Inference API is used. If it fails, the
command suggests retrying with the paid OpenAI API but never calls it on
its own. Pass --provider openai to use DALL-E explicitly.

Examples:
  $ imagine "a lighthouse at dawn, oil painting"
  $ imagine "a lighthouse at dawn" --provider openai --model dall-e-3 --quality hd
  $ imagine "a red fox" --hf-model stabilityai/stable-diffusion-xl-base-1.0`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	root.Flags().StringVarP(&flags.provider, "provider", "p", "auto", "provider: auto, huggingface or openai")
	root.Flags().StringVarP(&flags.model, "model", "m", "", "OpenAI model (dall-e-2 or dall-e-3)")
	root.Flags().StringVar(&flags.hfModel, "hf-model", "", "Hugging Face model id")
	root.Flags().StringVarP(&flags.size, "size", "s", "1024x1024", "image size")
	root.Flags().StringVarP(&flags.quality, "quality", "q", "", "image quality for dall-e-3: standard or hd")
	root.Flags().StringVarP(&flags.outputDir, "output-dir", "o", "", "output directory (default ~/Downloads)")
	root.Flags().DurationVar(&flags.timeout, "timeout", 0, "per-request timeout")
	root.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		suggestAlternate(err)
		os.Exit(exitCode(err))
	}
}

func run(cmd *cobra.Command, args []string) error {
	if flags.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	mode, err := imagine.ParseProviderMode(flags.provider)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := imagine.Request{
		Prompt:  args[0],
		Mode:    mode,
		Model:   flags.model,
		HFModel: flags.hfModel,
		Size:    flags.size,
		Quality: flags.quality,
		Timeout: flags.timeout,
	}

	fmt.Printf("Generating image (provider: %s)...\n", flags.provider)
	fmt.Printf("Prompt: %s\n", args[0])

	res, err := imagine.Generate(ctx, req)
	if err != nil {
		return err
	}

	for _, w := range res.Warnings {
		fmt.Fprintln(os.Stderr, "Warning:", w)
	}
	if res.RevisedPrompt != "" {
		fmt.Println("Revised prompt:", res.RevisedPrompt)
	}

	tag := ""
	if res.Provider == "huggingface" {
		tag = "HF"
	}
	path, err := imagine.SaveImage(res.Image, imagine.SaveOptions{
		Prompt:    args[0],
		Dir:       flags.outputDir,
		MediaType: res.MediaType,
		Tag:       tag,
	})
	if err != nil {
		return err
	}

	fmt.Println("Saved:", path)
	if cost := imagine.EstimateCost(res.Model, flags.size, flags.quality); cost > 0 {
		fmt.Printf("Estimated cost: $%.3f\n", cost)
	} else {
		fmt.Println("Cost: $0.00 (free)")
	}
	return nil
}

// suggestAlternate prints the manual fallback hint for automatic-mode
// failures. The alternate provider was not contacted; this is advice,
// not a report of an attempt.
func suggestAlternate(err error) {
	var e *imagine.Error
	if !errors.As(err, &e) || e.Alternate == "" {
		return
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "You can retry with the paid OpenAI API:")
	fmt.Fprintf(os.Stderr, "  imagine \"<prompt>\" --provider %s\n", e.Alternate)
	fmt.Fprintln(os.Stderr, "Cost: ~$0.02-0.08 per image (requires OPENAI_API_KEY)")
}

func exitCode(err error) int {
	var e *imagine.Error
	if !errors.As(err, &e) {
		return exitUsage
	}
	switch {
	case e.Code == imagine.CodeCredentialMissing:
		return exitCredentialMissing
	case e.Code == imagine.CodeLocalIO:
		return exitLocalIO
	case e.Code == imagine.CodeInvalidRequest:
		return exitUsage
	default:
		return exitProviderFailure
	}
}
