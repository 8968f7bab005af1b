package cli

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/biofetch/internal/logger"
	"github.com/glorpus-work/biofetch/pkg/fetch"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	var (
		outFile    string
		postFields []string
		headers    []string
		large      bool
		noCache    bool
		dryRun     bool
		keepFailed bool
	)

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Download a resource through the cache",
		Long: "Fetch a resource over HTTP(S), FTP or SFTP, reusing the local " +
			"cache when the same request was downloaded before.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args[0], fetchFlags{
				outFile:    outFile,
				postFields: postFields,
				headers:    headers,
				large:      large,
				noCache:    noCache,
				dryRun:     dryRun,
				keepFailed: keepFailed,
			})
		},
	}

	cmd.Flags().StringVarP(&outFile, "out", "O", "", "write the fetched content to this file ('-' for stdout)")
	cmd.Flags().StringArrayVar(&postFields, "post", nil, "POST form field key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "extra request header 'Name: value' (repeatable)")
	cmd.Flags().BoolVar(&large, "large", false, "stream instead of buffering in memory")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the cache lookup")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve the cache path without downloading")
	cmd.Flags().BoolVar(&keepFailed, "keep-failed", false, "keep the partial file of a failed transfer under a .failed suffix")

	return cmd
}

type fetchFlags struct {
	outFile    string
	postFields []string
	headers    []string
	large      bool
	noCache    bool
	dryRun     bool
	keepFailed bool
}

func runFetch(cmd *cobra.Command, rawURL string, flags fetchFlags) error {
	_, client, err := loadClient()
	if err != nil {
		return err
	}

	req := &fetch.Request{
		URL:        rawURL,
		Large:      flags.large,
		KeepFailed: flags.keepFailed,
	}

	if len(flags.postFields) > 0 {
		req.Post = url.Values{}
		for _, field := range flags.postFields {
			key, value, found := strings.Cut(field, "=")
			if !found {
				return fmt.Errorf("invalid --post field %q, expected key=value", field)
			}
			req.Post.Add(key, value)
		}
	}

	if len(flags.headers) > 0 {
		req.Headers = http.Header{}
		for _, header := range flags.headers {
			name, value, found := strings.Cut(header, ":")
			if !found {
				return fmt.Errorf("invalid --header %q, expected 'Name: value'", header)
			}
			req.Headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
		}
	}

	ctx := cmd.Context()
	if flags.noCache {
		ctx = fetch.WithCacheOff(ctx)
	}
	if flags.dryRun {
		ctx = fetch.WithDryRun(ctx)
	}

	res, err := client.Fetch(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Close() }()

	if flags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), res.Path)
		return nil
	}

	if res.FromCache {
		logger.Debug("served from cache", logger.Fields{"path": res.Path})
	}

	return writeOutput(cmd, res, flags.outFile)
}

// writeOutput delivers the result: to stdout, to a file, or just reports the
// cache path when no output was requested.
func writeOutput(cmd *cobra.Command, res *fetch.Result, outFile string) error {
	if outFile == "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.Path)
		return nil
	}

	var out io.Writer
	if outFile == "-" {
		out = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outFile)
		if err != nil {
			return fmt.Errorf("could not create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	switch res.Kind {
	case fetch.KindSingleBlob:
		_, err := out.Write(res.Blob)
		return err
	case fetch.KindLineStream:
		for res.Lines.Scan() {
			if _, err := out.Write(res.Lines.Bytes()); err != nil {
				return err
			}
			if _, err := out.Write([]byte{'\n'}); err != nil {
				return err
			}
		}
		return res.Lines.Err()
	case fetch.KindRawHandle:
		_, err := io.Copy(out, res.Handle)
		return err
	case fetch.KindMultiFile:
		for name, member := range res.Members {
			fmt.Fprintf(out, "== %s ==\n", name)
			if _, err := io.Copy(out, member.Reader()); err != nil {
				return err
			}
		}
		return nil
	default:
		fmt.Fprintln(cmd.OutOrStdout(), res.Path)
		return nil
	}
}
