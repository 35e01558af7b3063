package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/adilg123/lzhuff/internal/api"
	"github.com/adilg123/lzhuff/internal/compression"
	"github.com/adilg123/lzhuff/internal/compression/algorithms/lzss"
	"github.com/adilg123/lzhuff/internal/compression/archive"
	"github.com/adilg123/lzhuff/internal/compression/compare"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func expectArgs(args []string, names ...string) error {
	if len(args) != len(names) {
		return fmt.Errorf("%w: want %d arguments (%v), got %d", errUsage, len(names), names, len(args))
	}
	return nil
}

func (a *app) compCommand(args []string) error {
	flags := flag.NewFlagSet("comp", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	progress := flags.Bool("progress", false, "show a progress bar while matching")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if err := expectArgs(flags.Args(), "source", "archive"); err != nil {
		return err
	}
	source, archiveName := flags.Arg(0), flags.Arg(1)

	data, err := os.ReadFile(source)
	if err != nil {
		return err
	}
	if int64(len(data)) > a.cfg.MaxFileSize {
		return fmt.Errorf("%s is %d bytes, the limit is %d", source, len(data), a.cfg.MaxFileSize)
	}

	var options compression.Options
	if *progress {
		options.Progress = a.stderr
	}
	compressed, stats, err := compression.Compress(data, options)
	if err != nil {
		return err
	}
	if err := os.WriteFile(archiveName, compressed, 0o644); err != nil {
		return err
	}

	a.logger.Debug("compressed",
		zap.String("source", source),
		zap.String("archive", archiveName),
		zap.Int("tokens", stats.TokenCount),
		zap.Uint64("checksum", stats.Checksum))
	fmt.Fprintf(a.stdout, "Compression successful: %d -> %d bytes (%.2f%%)\n",
		stats.OriginalSize, stats.ProcessedSize, stats.CompressionRatio)
	return nil
}

func (a *app) decompCommand(args []string) error {
	if err := expectArgs(args, "archive", "destination"); err != nil {
		return err
	}
	archiveName, destination := args[0], args[1]

	data, err := os.ReadFile(archiveName)
	if err != nil {
		return err
	}
	decompressed, stats, err := compression.Decompress(data)
	if err != nil {
		return fmt.Errorf("%s: %w", archiveName, err)
	}
	if err := os.WriteFile(destination, decompressed, 0o644); err != nil {
		return err
	}

	a.logger.Debug("decompressed",
		zap.String("archive", archiveName),
		zap.String("destination", destination),
		zap.Uint64("checksum", stats.Checksum))
	fmt.Fprintf(a.stdout, "Decompression successful: %d bytes\n", stats.ProcessedSize)
	return nil
}

func (a *app) sizeCommand(args []string) error {
	if err := expectArgs(args, "file"); err != nil {
		return err
	}
	info, err := os.Stat(args[0])
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s does not exist", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "File size: %d bytes\n", info.Size())
	return nil
}

func (a *app) equalCommand(args []string) error {
	if err := expectArgs(args, "first", "second"); err != nil {
		return err
	}
	equal, err := sameContent(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Files are equal: %t\n", equal)
	return nil
}

// sameContent compares two files by xxhash first and confirms a hash match
// byte by byte.
func sameContent(first, second string) (bool, error) {
	firstSum, firstSize, err := fileChecksum(first)
	if err != nil {
		return false, err
	}
	secondSum, secondSize, err := fileChecksum(second)
	if err != nil {
		return false, err
	}
	if firstSize != secondSize || firstSum != secondSum {
		return false, nil
	}

	f1, err := os.Open(first)
	if err != nil {
		return false, err
	}
	defer f1.Close()
	f2, err := os.Open(second)
	if err != nil {
		return false, err
	}
	defer f2.Close()

	r1, r2 := bufio.NewReader(f1), bufio.NewReader(f2)
	buf1, buf2 := make([]byte, 32*1024), make([]byte, 32*1024)
	for {
		n1, err1 := io.ReadFull(r1, buf1)
		n2, err2 := io.ReadFull(r2, buf2)
		if !bytes.Equal(buf1[:n1], buf2[:n2]) {
			return false, nil
		}
		done1 := errors.Is(err1, io.EOF) || errors.Is(err1, io.ErrUnexpectedEOF)
		done2 := errors.Is(err2, io.EOF) || errors.Is(err2, io.ErrUnexpectedEOF)
		if err1 != nil && !done1 {
			return false, err1
		}
		if err2 != nil && !done2 {
			return false, err2
		}
		if done1 || done2 {
			return done1 && done2, nil
		}
	}
}

func fileChecksum(path string) (uint64, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	digest := xxhash.New()
	n, err := io.Copy(digest, f)
	if err != nil {
		return 0, 0, err
	}
	return digest.Sum64(), n, nil
}

func (a *app) compareCommand(args []string) error {
	flags := flag.NewFlagSet("compare", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	chartPath := flags.String("chart", "", "write an SVG bar chart of the sizes to this file")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if err := expectArgs(flags.Args(), "file"); err != nil {
		return err
	}
	source := flags.Arg(0)

	data, err := os.ReadFile(source)
	if err != nil {
		return err
	}
	results, err := compare.Run(data)
	if err != nil {
		return err
	}

	if *chartPath != "" {
		if err := writeChart(*chartPath, filepath.Base(source), results); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "codec\tsize\tratio\ttime\tround trip\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%.2f%%\t%s\t%t\t\n", r.Name, r.Size, r.Ratio, r.Duration.Round(time.Microsecond), r.RoundTrip)
	}
	return tw.Flush()
}

func writeChart(path, title string, results []compare.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := compare.WriteChart(f, title, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *app) aboutCommand(args []string) error {
	if err := expectArgs(args); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "lzhuff %s\n", version)
	fmt.Fprintln(a.stdout, "Lossless archiver: LZ77 sliding-window tokens entropy coded with a Huffman tree.")
	fmt.Fprintf(a.stdout, "Window %d bytes, matches of %d to %d bytes.\n", lzss.WindowSize, lzss.MinMatch, lzss.MaxMatch)
	fmt.Fprintf(a.stdout, "Archive magic %q, header %d bytes.\n", string(archive.Magic[:]), archive.HeaderSize)
	return nil
}

func (a *app) serveCommand(args []string) error {
	if err := expectArgs(args); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.serve(ctx)
}

// serve runs the HTTP API until ctx is cancelled, then shuts it down
// gracefully.
func (a *app) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           api.NewRouter(a.cfg, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", server.Addr), zap.String("environment", a.cfg.Environment))
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("received interrupt signal, shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
