package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"depot/internal/config"
	"depot/internal/domain"
)

// Digest describes a piece of content after inspection: its identity hash,
// size, and detected type. The hash is SHA-256 over the exact bytes, hex
// encoded, and is the sole input to change detection.
type Digest struct {
	Hash      string
	Size      int64
	MimeType  string
	Extension string
}

// Intake inspects incoming content, whether uploaded directly or fetched from
// an external URL. It never touches the database; callers combine the digest
// with repository writes.
type Intake struct {
	client *http.Client
	logger *slog.Logger
}

func NewIntake(logger *slog.Logger) *Intake {
	return &Intake{
		client: &http.Client{Timeout: config.ExternalFetchTimeout},
		logger: logger,
	}
}

// DigestReader consumes r fully, hashing as it reads, and returns the digest
// alongside the buffered bytes. The filename is only a hint for the extension;
// the MIME type always comes from content sniffing.
func (in *Intake) DigestReader(r io.Reader, filename string) (*Digest, []byte, error) {
	hasher := sha256.New()

	data, err := io.ReadAll(io.TeeReader(r, hasher))
	if err != nil {
		return nil, nil, fmt.Errorf("read content: %w", err)
	}

	mtype := mimetype.Detect(data)

	return &Digest{
		Hash:      hex.EncodeToString(hasher.Sum(nil)),
		Size:      int64(len(data)),
		MimeType:  mtype.String(),
		Extension: pickExtension(filename, mtype),
	}, data, nil
}

// FetchExternal downloads the resource at rawURL, buffering it through a
// temporary file that is removed on every exit path. The client timeout
// bounds the whole fetch; a slow or dead origin fails the operation rather
// than hanging it.
func (in *Intake) FetchExternal(ctx context.Context, rawURL string) (*Digest, []byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, nil, &domain.ValidationError{Message: "url must be a valid http(s) URL"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := in.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrExternalFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("%w: unexpected status %d from %s", domain.ErrExternalFetch, resp.StatusCode, parsed.Host)
	}

	tmp, err := os.CreateTemp("", "depot-fetch-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			in.logger.Warn("failed to remove temp file", "path", tmp.Name(), "error", rmErr)
		}
	}()

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrExternalFetch, err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, nil, fmt.Errorf("rewind temp file: %w", err)
	}
	data, err := io.ReadAll(tmp)
	if err != nil {
		return nil, nil, fmt.Errorf("read temp file: %w", err)
	}

	mtype := mimetype.Detect(data)

	return &Digest{
		Hash:      hex.EncodeToString(hasher.Sum(nil)),
		Size:      size,
		MimeType:  mtype.String(),
		Extension: pickExtension(path.Base(parsed.Path), mtype),
	}, data, nil
}

// pickExtension resolves the stored extension: the filename's own extension
// wins, then the sniffed type's canonical extension, then "bin".
func pickExtension(filename string, mtype *mimetype.MIME) string {
	if ext := strings.TrimPrefix(path.Ext(filename), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if ext := strings.TrimPrefix(mtype.Extension(), "."); ext != "" {
		return ext
	}
	return "bin"
}
