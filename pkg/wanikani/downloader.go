package wanikani

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
)

// maxDownloadSize caps a reference download. The real files are well under 1 MB.
const maxDownloadSize = 32 * 1024 * 1024

// EnsureFile checks that path exists. If it does not and url is set, the file
// is downloaded from url (gzip bodies are decompressed) and written to path.
func EnsureFile(ctx context.Context, client *http.Client, path, url string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if url == "" {
		return fmt.Errorf("reference file %s not found and no download url configured", path)
	}

	log.Printf("Reference data not found at %s. Downloading from %s...", path, url)
	return download(ctx, client, url, path)
}

func download(ctx context.Context, client *http.Client, url, destPath string) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "jplevel-cli")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	body := bufio.NewReader(io.LimitReader(resp.Body, maxDownloadSize))
	var src io.Reader = body
	// gzip magic bytes
	if magic, err := body.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	// Validate before writing so a bad download never lands on disk.
	raw, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("failed to read download: %w", err)
	}
	if _, err := DecodeLevels(bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("downloaded data is not valid reference data: %w", err)
	}

	if dir := filepath.Dir(destPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := destPath + ".part"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return os.Rename(tmp, destPath)
}
