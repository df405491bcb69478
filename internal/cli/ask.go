package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"docchat/internal/app"
	"docchat/internal/domain"
)

var (
	askQuestion string
	askTopK     int
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question about the ingested documents",
	Long: `Ask retrieves the most relevant chunks for the question, generates a
grounded answer, and cites the source pages.

Examples:
  docchat ask -q "what is the vacation policy?"
  docchat ask -q "summarize chapter 2" -k 5 --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to ask (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("question")
}

// jsonAnswer mirrors the wire shape of the chat API: an answer string
// plus a metadata object per source.
type jsonAnswer struct {
	Answer  string       `json:"answer"`
	Sources []jsonSource `json:"sources"`
}

type jsonSource struct {
	Metadata domain.Citation `json:"metadata"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := app.New(ctx, cfg, rootDir)
	if err != nil {
		return err
	}
	defer a.Close()

	topK := cfg.Retrieve.TopK
	if askTopK != 0 {
		topK = askTopK
	}

	chunks, err := a.Retriever.Retrieve(ctx, askQuestion, topK)
	if err != nil {
		return err
	}

	answer, err := a.Synthesizer.Synthesize(ctx, askQuestion, chunks)
	if err != nil {
		return err
	}

	if askJSON {
		return printAnswerJSON(answer)
	}
	printAnswer(answer)
	return nil
}

func printAnswerJSON(answer *domain.Answer) error {
	out := jsonAnswer{
		Answer:  answer.Text,
		Sources: make([]jsonSource, 0, len(answer.Citations)),
	}
	for _, c := range answer.Citations {
		out.Sources = append(out.Sources, jsonSource{Metadata: c})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printAnswer(answer *domain.Answer) {
	fmt.Println(answer.Text)

	if len(answer.Citations) == 0 {
		return
	}

	fmt.Println()
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Println(bold("Sources:"))
	for _, c := range answer.Citations {
		fmt.Printf("  %s\n", cyan(c.Ref()))
	}
}
