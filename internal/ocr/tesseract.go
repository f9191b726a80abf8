package ocr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// TesseractProvider implements OCR by running the tesseract binary and
// reading its TSV output.
type TesseractProvider struct {
	name          string
	available     bool
	tesseractPath string
}

// NewTesseractProvider creates a provider for the binary at path, or the
// first "tesseract" on PATH when path is empty.
func NewTesseractProvider(path string) *TesseractProvider {
	if path == "" {
		path = "tesseract"
	}

	tesseractPath, err := exec.LookPath(path)
	available := err == nil

	if !available {
		log.Warn().Str("binary", path).Msg("Tesseract not found in PATH, OCR will be unavailable")
	} else {
		log.Debug().Str("tesseract_path", tesseractPath).Msg("Tesseract provider initialized")
	}

	return &TesseractProvider{
		name:          string(ProviderTypeTesseract),
		available:     available,
		tesseractPath: tesseractPath,
	}
}

func (p *TesseractProvider) Name() string {
	return p.name
}

func (p *TesseractProvider) IsAvailable() bool {
	return p.available
}

func (p *TesseractProvider) Close() error {
	return nil
}

// Recognize pipes the image through "tesseract stdin stdout ... tsv".
func (p *TesseractProvider) Recognize(ctx context.Context, pngData []byte, opts Options) ([]Token, error) {
	if !p.available {
		return nil, errors.New("tesseract is not available")
	}

	cmd := exec.CommandContext(ctx, p.tesseractPath, tesseractArgs(opts)...)
	cmd.Stdin = bytes.NewReader(pngData)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return ParseTSV(stdout.Bytes())
}

// Languages runs "tesseract --list-langs"
func (p *TesseractProvider) Languages(ctx context.Context, dataPath string) ([]string, error) {
	if !p.available {
		return nil, errors.New("tesseract is not available")
	}

	args := []string{"--list-langs"}
	if dataPath != "" {
		args = append([]string{"--tessdata-dir", dataPath}, args...)
	}

	output, err := exec.CommandContext(ctx, p.tesseractPath, args...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("tesseract --list-langs failed: %w", err)
	}

	var langs []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// First line is a header like: List of available languages in "/usr/share/tessdata/" (3):
		if line == "" || strings.HasPrefix(line, "List of") {
			continue
		}
		langs = append(langs, line)
	}
	sort.Strings(langs)
	return langs, nil
}

func tesseractArgs(opts Options) []string {
	args := []string{"stdin", "stdout"}
	if opts.DataPath != "" {
		args = append(args, "--tessdata-dir", opts.DataPath)
	}
	if len(opts.Languages) > 0 {
		args = append(args, "-l", strings.Join(opts.Languages, "+"))
	}
	args = append(args, "--psm", strconv.Itoa(opts.PSM))
	args = append(args, "--oem", strconv.Itoa(opts.OEM))
	return append(args, "tsv")
}

// ParseTSV reads tesseract's TSV report. Columns are located by header name;
// rows that do not carry a text column are skipped.
func ParseTSV(data []byte) ([]Token, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read tsv: %w", err)
		}
		return []Token{}, nil
	}

	header := strings.Split(strings.TrimRight(scanner.Text(), "\r"), "\t")
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{"left", "top", "width", "height", "conf", "text"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("tsv header missing column %q", name)
		}
	}

	field := func(fields []string, name string) string {
		if i := col[name]; i < len(fields) {
			return fields[i]
		}
		return ""
	}

	tokens := []Token{}
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, "\t", len(header))
		tokens = append(tokens, Token{
			Text:       field(fields, "text"),
			Left:       field(fields, "left"),
			Top:        field(fields, "top"),
			Width:      field(fields, "width"),
			Height:     field(fields, "height"),
			Confidence: field(fields, "conf"),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tsv: %w", err)
	}

	return tokens, nil
}
