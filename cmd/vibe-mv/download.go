package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-mv/internal/genome"
)

// ncbiEfetchURL serves nucleotide records as FASTA.
const ncbiEfetchURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"

// fastaURL returns the NCBI download URL for accession.
func fastaURL(base, accession string) string {
	q := url.Values{}
	q.Set("db", "nuccore")
	q.Set("id", accession)
	q.Set("rettype", "fasta")
	q.Set("retmode", "text")
	return base + "?" + q.Encode()
}

func newDownloadCmd(g *globals) *cobra.Command {
	var (
		virus     string
		outputDir string
		baseURL   string
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download reference genomes from NCBI",
		Long: `Download the reference FASTA of each supported virus from NCBI into the
genomes directory. Files already present are kept.

Files downloaded:
  - NC_045512.2.fasta (SARS2, ~30KB)
  - NC_009942.1.fasta (WNV, ~11KB)
  - NC_002031.1.fasta (YFV, ~11KB)`,
		Example: `  vibe-mv download
  vibe-mv download --virus SARS2 --output /data/genomes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir == "" {
				outputDir = viper.GetString(keyGenomesDir)
			}
			if outputDir == "" {
				return fmt.Errorf("no genomes directory: set --output or genomes.dir")
			}
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", outputDir, err)
			}

			reg := genome.NewRegistry()
			viruses := reg.Viruses()
			if virus != "" {
				viruses = []string{virus}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Downloading reference genomes...\n")
			fmt.Fprintf(out, "Destination: %s\n\n", outputDir)

			loader := genome.NewLoader()
			loader.SetLogger(g.logger)
			for _, v := range viruses {
				layout, err := reg.Layout(v)
				if err != nil {
					return err
				}
				dest := filepath.Join(outputDir, genome.FileName(layout))
				if err := downloadFile(cmd.Context(), out, fastaURL(baseURL, layout.Accession), dest); err != nil {
					return fmt.Errorf("downloading %s: %w", v, err)
				}
				// Reject anything that does not parse as the expected genome.
				if _, err := loader.LoadFile(dest, layout); err != nil {
					os.Remove(dest)
					return fmt.Errorf("checking %s: %w", v, err)
				}
				g.logger.Debug("reference ready", zap.String("virus", v), zap.String("path", dest))
			}

			fmt.Fprintf(out, "\nDownload complete!\n")
			fmt.Fprintf(out, "To classify a substitution, run:\n")
			fmt.Fprintf(out, "  vibe-mv annotate --virus SARS2 23402 G\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&virus, "virus", "", "Only download this virus (default: all)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default: genomes.dir)")
	cmd.Flags().StringVar(&baseURL, "url", ncbiEfetchURL, "NCBI efetch endpoint")
	_ = cmd.Flags().MarkHidden("url")

	return cmd
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(ctx context.Context, out io.Writer, rawURL, destPath string) error {
	// Check if file already exists
	if info, err := os.Stat(destPath); err == nil {
		fmt.Fprintf(out, "  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Fprintf(out, "  Downloading %s...\n", filepath.Base(destPath))

	client := &http.Client{
		Timeout: 5 * time.Minute,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var downloaded int64
	pw := &progressWriter{
		out:        out,
		total:      resp.ContentLength,
		downloaded: &downloaded,
		lastPrint:  time.Now(),
	}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Fprintf(out, "    Done: %s\n", formatSize(downloaded))
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	out        io.Writer
	total      int64
	downloaded *int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	*pw.downloaded += int64(n)

	// Print progress every second
	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(*pw.downloaded) / float64(pw.total) * 100
			fmt.Fprintf(pw.out, "\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Fprintf(pw.out, "\r    Progress: %s  ", formatSize(*pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
