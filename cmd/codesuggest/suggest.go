package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyeh/codesuggest/internal/config"
	"github.com/gyeh/codesuggest/internal/exitcode"
)

var (
	suggestNote     string
	suggestNoteFile string
	suggestTopK     int
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest billing codes for one note and print the JSON response",
	Long:  "Reads the note from --note, --note-file, or standard input.",
	RunE:  runSuggest,
}

func init() {
	addCatalogFlags(suggestCmd)
	f := suggestCmd.Flags()
	f.StringVar(&suggestNote, "note", "", "Note text")
	f.StringVar(&suggestNoteFile, "note-file", "", "Path to a file holding the note")
	f.IntVar(&suggestTopK, "top-k", 0, "Number of suggestions (1-20, default from config)")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	log := setup()
	ctx := context.Background()

	note, err := readNote(cmd.InOrStdin())
	if err != nil {
		log.Error().Err(err).Msg("failed to read note")
		os.Exit(exitcode.UsageError)
	}
	if strings.TrimSpace(note) == "" {
		log.Error().Msg("note is empty")
		os.Exit(exitcode.UsageError)
	}

	p := buildPipeline(ctx, log, nil, config.AuditNone)
	defer p.close(ctx, log)

	resp := p.service.Suggest(ctx, note, suggestTopK)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func readNote(stdin io.Reader) (string, error) {
	switch {
	case suggestNote != "":
		return suggestNote, nil
	case suggestNoteFile != "":
		data, err := os.ReadFile(suggestNoteFile)
		return string(data), err
	}
	data, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
	return string(data), err
}
