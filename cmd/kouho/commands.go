package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kouho/internal/cli"
	"github.com/hyperjump/kouho/internal/extract"
	"github.com/hyperjump/kouho/internal/matcher"
	"github.com/hyperjump/kouho/internal/models"
	"github.com/hyperjump/kouho/pkg/utils"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// withBackend runs fn against the server at --server, or against the store opened
// directly when --server is empty. The direct store is rebuilt into the index first.
func withBackend(ctx context.Context, opts *rootOptions, fn func(backend) error) error {
	if opts.serverURL != "" {
		logger := utils.MustLogger(opts.debug)
		defer logger.Sync()
		logger.Debug("using server", zap.String("url", opts.serverURL))
		return fn(newAPIClient(opts.serverURL))
	}
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()
	if err := components.Matcher.Start(ctx); err != nil {
		return err
	}
	return fn(components.Matcher)
}

func outputFormat(opts *rootOptions) (cli.OutputFormat, error) {
	return cli.ParseOutputFormat(opts.output)
}

// jobText returns the job description from --file, or all positional args joined by
// spaces so multi-word descriptions work with or without shell quoting.
func jobText(args []string, file string) (string, error) {
	if file != "" {
		text, err := extract.NewExtractor().Extract(file)
		if err != nil {
			return "", fmt.Errorf("read job description: %w", err)
		}
		return text, nil
	}
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return "", errors.New("job description is required (arguments or --file)")
	}
	return text, nil
}

func newUploadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload resume files (pdf, docx, odt, xlsx, txt, md)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), opts, func(b backend) error {
				return uploadFiles(cmd.Context(), b, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
			})
		},
	}
}

// uploadFiles uploads every path and reports each outcome. Existing resumes are
// reported and skipped; any other failure makes the command fail after the rest.
func uploadFiles(ctx context.Context, b backend, paths []string, out, errOut io.Writer) error {
	failed := 0
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", path, err)
			failed++
			continue
		}
		resp, err := b.Upload(ctx, matcher.UploadInput{Filename: filepath.Base(path), Content: content})
		switch {
		case errors.Is(err, matcher.ErrAlreadyExists):
			fmt.Fprintf(out, "%s: %s\n", filepath.Base(path), matcher.MessageExists)
		case err != nil:
			fmt.Fprintf(errOut, "%s: %v\n", path, err)
			failed++
		default:
			fmt.Fprintf(out, "%s: %s\n", resp.Filename, resp.Message)
			if resp.Warning != "" {
				fmt.Fprintf(errOut, "warning: %s\n", resp.Warning)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d upload(s) failed", failed, len(paths))
	}
	return nil
}

func newRankCmd(opts *rootOptions) *cobra.Command {
	var topK int
	var file string
	cmd := &cobra.Command{
		Use:   "rank [flags] <job description>",
		Short: "Rank stored resumes against a job description",
		Example: `  kouho rank senior go engineer with kubernetes
  kouho rank --top-k 10 --file job.pdf
  kouho rank --output json "data scientist"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(opts)
			if err != nil {
				return err
			}
			text, err := jobText(args, file)
			if err != nil {
				return err
			}
			return withBackend(cmd.Context(), opts, func(b backend) error {
				resp, err := b.Rank(cmd.Context(), models.RankRequest{Text: text, TopK: topK})
				if err != nil {
					return err
				}
				return cli.WriteRankResults(cmd.OutOrStdout(), resp, format)
			})
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of resumes to return (default from config)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the job description from a file")
	return cmd
}

func newExplainCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "explain [flags] <job description>",
		Short: "Show the keywords each resume shares with a job description",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(opts)
			if err != nil {
				return err
			}
			text, err := jobText(args, file)
			if err != nil {
				return err
			}
			return withBackend(cmd.Context(), opts, func(b backend) error {
				resp, err := b.Explain(cmd.Context(), models.ExplainRequest{Text: text})
				if err != nil {
					return err
				}
				return cli.WriteExplanations(cmd.OutOrStdout(), resp, format)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the job description from a file")
	return cmd
}

// confirmDelete asks before deleting; answering anything but yes aborts.
var confirmDelete = func(filename string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Delete resume %s", filename),
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete [flags] <filename>",
		Short: "Delete a resume from the store and the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			if !yes {
				ok, err := confirmDelete(filename)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}
			return withBackend(cmd.Context(), opts, func(b backend) error {
				resp, err := b.Delete(cmd.Context(), filename)
				if errors.Is(err, matcher.ErrNotFound) {
					return fmt.Errorf("%s: %s", filename, matcher.MessageNotFound)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				if resp.Warning != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", resp.Warning)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking for confirmation")
	return cmd
}

func newRebuildCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Re-embed every stored resume and rebuild the vector index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd.Context(), opts, func(b backend) error {
				resp, err := b.Rebuild(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d resume(s)\n", resp.Indexed)
				if resp.Warning != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", resp.Warning)
				}
				return nil
			})
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored resumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(opts)
			if err != nil {
				return err
			}
			return withBackend(cmd.Context(), opts, func(b backend) error {
				list, err := b.List(cmd.Context())
				if err != nil {
					return err
				}
				return cli.WriteResumeList(cmd.OutOrStdout(), list, format)
			})
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store and index status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(opts)
			if err != nil {
				return err
			}
			return withBackend(cmd.Context(), opts, func(b backend) error {
				st, err := b.Status(cmd.Context())
				if err != nil {
					return err
				}
				return cli.WriteStatus(cmd.OutOrStdout(), st, format)
			})
		},
	}
}
