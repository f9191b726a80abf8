package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/anubis-ocr/gateway/cli/client"
	"github.com/anubis-ocr/gateway/cli/output"
)

var (
	recognizeLanguages string
	recognizeBlocks    bool
	recognizeTextOnly  bool
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize FILE",
	Short: "Extract text from a document",
	Long: `Upload a document to the gateway and print the recognized text.

In table mode the combined text is printed after a short summary. Use --blocks
to list the OCR word boxes instead, or --text to print only the combined text.

Examples:
  ocrctl recognize invoice.pdf
  ocrctl recognize scan.png --languages eng+rus
  ocrctl recognize contract.docx -o json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: initializeClient,
	RunE:    runRecognize,
}

func init() {
	recognizeCmd.Flags().StringVarP(&recognizeLanguages, "languages", "l", "",
		"OCR language spec, e.g. eng+rus (default is the gateway's)")
	recognizeCmd.Flags().BoolVar(&recognizeBlocks, "blocks", false,
		"list OCR word boxes")
	recognizeCmd.Flags().BoolVar(&recognizeTextOnly, "text", false,
		"print only the combined text")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := apiClient.Recognize(ctx, filepath.Base(path), data, recognizeLanguages)
	if err != nil {
		return err
	}

	if result.CombinedText == "" {
		formatter.PrintWarning(fmt.Sprintf("no text recognized in %s", path))
	}
	printRecognizeResult(formatter, result)
	return nil
}

func printRecognizeResult(f *output.Formatter, result *client.RecognizeResult) {
	if recognizeTextOnly {
		f.PrintText(result.CombinedText)
		return
	}

	if f.Format != output.FormatTable {
		_ = f.Print(result)
		return
	}

	if recognizeBlocks {
		f.PrintTable(blocksTable(result.Blocks))
		return
	}

	f.PrintKeyValue("Language hint", result.LanguageHint)
	f.PrintKeyValue("OCR blocks", strconv.Itoa(len(result.Blocks)))
	f.PrintText("")
	f.PrintText(result.CombinedText)
}

func blocksTable(blocks []client.Block) output.TableData {
	data := output.TableData{
		Headers: []string{"TEXT", "LEFT", "TOP", "WIDTH", "HEIGHT", "CONFIDENCE"},
		Rows:    make([][]string, 0, len(blocks)),
	}
	for _, b := range blocks {
		data.Rows = append(data.Rows, []string{
			b.Text,
			strconv.Itoa(b.Left),
			strconv.Itoa(b.Top),
			strconv.Itoa(b.Width),
			strconv.Itoa(b.Height),
			strconv.FormatFloat(b.Confidence, 'f', 1, 64),
		})
	}
	return data
}
