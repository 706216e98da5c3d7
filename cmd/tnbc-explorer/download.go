package main

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// UCSC Xena TCGA BRCA hub URLs
const (
	xenaBaseURL   = "https://tcga-xena-hub.s3.us-east-1.amazonaws.com/download"
	clinicalURL   = xenaBaseURL + "/TCGA.BRCA.sampleMap%2FBRCA_clinicalMatrix"
	expressionURL = xenaBaseURL + "/TCGA.BRCA.sampleMap%2FHiSeqV2.gz"
)

func newDownloadCmd() *cobra.Command {
	var outputDir string
	var force bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the TCGA BRCA clinical and expression tables",
		Long: `Download the TCGA BRCA clinical matrix and the HiSeqV2 gene expression
matrix (log2(norm_count+1)) from the UCSC Xena hub.

Files downloaded:
  - TCGA.BRCA.sampleMap_BRCA_clinicalMatrix.tsv (~2MB)
  - HiSeqV2 (~170MB uncompressed)`,
		Example: `  tnbc-explorer download
  tnbc-explorer download --output /data/tcga`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.Context(), outputDir, force)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&force, "force", false, "Download even if the files exist")

	return cmd
}

func runDownload(ctx context.Context, outputDir string, force bool) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", outputDir, err)
	}

	fmt.Printf("Downloading TCGA BRCA tables from UCSC Xena...\n")
	fmt.Printf("Destination: %s\n\n", outputDir)

	clinicalFile := filepath.Join(outputDir, defaultClinicalFile)
	if err := downloadFile(ctx, clinicalURL, clinicalFile, force); err != nil {
		return fmt.Errorf("downloading clinical table: %w", err)
	}

	expressionFile := filepath.Join(outputDir, defaultExpressionFile)
	if err := downloadFile(ctx, expressionURL, expressionFile, force); err != nil {
		return fmt.Errorf("downloading expression matrix: %w", err)
	}

	fmt.Printf("\nDownload complete!\n")
	fmt.Printf("To build the cohorts, run:\n")
	if outputDir == "." && viper.GetString("clinical_file") == defaultClinicalFile {
		fmt.Printf("  tnbc-explorer curate\n")
	} else {
		fmt.Printf("  tnbc-explorer curate --clinical %s --expression %s\n", clinicalFile, expressionFile)
	}
	return nil
}

// downloadFile downloads a file from URL to the destination path with
// progress. Gzipped URLs are decompressed on the fly.
func downloadFile(ctx context.Context, url, destPath string, force bool) error {
	// Check if file already exists
	if info, err := os.Stat(destPath); err == nil && !force {
		fmt.Printf("  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Printf("  Downloading %s...\n", filepath.Base(destPath))

	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: 30 * time.Minute, // Long timeout for large files
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	// Create destination file
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var downloaded int64
	pw := &progressWriter{
		total:      resp.ContentLength,
		downloaded: &downloaded,
		lastPrint:  time.Now(),
	}

	var src io.Reader = io.TeeReader(resp.Body, pw)
	if strings.HasSuffix(url, ".gz") {
		gz, err := gzip.NewReader(src)
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	written, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	// Rename temp file to final destination
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Printf("\n    Done: %s (%s on disk)\n", formatSize(downloaded), formatSize(written))
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
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
			fmt.Printf("\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Printf("\r    Progress: %s  ", formatSize(*pw.downloaded))
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
