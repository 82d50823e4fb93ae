package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"testgenpro"
)

const usage = `Usage: testgenpro <command> [flags]

Commands:
  quiz      generate a quiz from a document and take it
  notes     generate short study notes from a document
  podcast   generate an audio summary of a document

Run "testgenpro <command> -h" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := testgenpro.LoadConfig()
	if err != nil {
		testgenpro.Log.Fatalf("Failed to load config: %v", err)
	}

	switch os.Args[1] {
	case "quiz":
		err = runQuiz(cfg, os.Args[2:])
	case "notes":
		err = runNotes(cfg, os.Args[2:])
	case "podcast":
		err = runPodcast(cfg, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		testgenpro.Log.Fatalf("%v", err)
	}
}

// commonFlags registers the flags every command shares
func commonFlags(fs *flag.FlagSet, cfg *testgenpro.Config) (file *string, apiKey *string, verbose *bool) {
	file = fs.String("file", "", "PDF or text document to study (required)")
	apiKey = fs.String("api-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
	verbose = fs.Bool("verbose", cfg.Verbose, "Enable verbose debugging output")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Chat model")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Directory for LLM transcripts (empty disables)")
	return file, apiKey, verbose
}

func prepare(cfg *testgenpro.Config, file, apiKey string, verbose bool) (testgenpro.Document, error) {
	testgenpro.SetVerbose(verbose)
	if apiKey != "" {
		cfg.OpenAIKey = apiKey
	}
	if err := cfg.RequireOpenAIKey(); err != nil {
		return testgenpro.Document{}, err
	}
	if file == "" {
		return testgenpro.Document{}, fmt.Errorf("a document is required: use -file")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return testgenpro.Document{}, fmt.Errorf("failed to read %s: %w", file, err)
	}
	return testgenpro.NewDocument(file, data)
}

func runQuiz(cfg *testgenpro.Config, args []string) error {
	fs := flag.NewFlagSet("quiz", flag.ExitOnError)
	file, apiKey, verbose := commonFlags(fs, cfg)
	var (
		qtype      = fs.String("type", "mcq", "Question type: mcq, tf or descriptive")
		count      = fs.Int("questions", 5, "Number of questions (3-50)")
		subject    = fs.String("subject", "", "Subject of the quiz (required)")
		tone       = fs.String("tone", testgenpro.DefaultTone, "Complexity level of the questions")
		exportPDF  = fs.String("export", "", "Write the quiz with answers to this PDF file")
		exportText = fs.String("export-text", "", "Write the quiz with answers to this text file")
		review     = fs.Bool("review", true, "Ask the model to review the generated quiz")
		noPlay     = fs.Bool("no-play", false, "Generate and export only, do not take the quiz")
	)
	fs.Parse(args)

	doc, err := prepare(cfg, *file, *apiKey, *verbose)
	if err != nil {
		return err
	}
	qt, err := testgenpro.ParseQuestionType(*qtype)
	if err != nil {
		return err
	}

	assistant := testgenpro.NewAssistant(
		testgenpro.DocumentExtractor{},
		testgenpro.NewOpenAIGenerator(cfg.OpenAIKey, cfg.Model, cfg.RequestsPerMin),
		nil,
		testgenpro.AssistantOptions{LogDir: cfg.LogDir, Review: *review},
	)

	session := testgenpro.NewQuizSession(nil)
	history := testgenpro.NewPerformanceHistory()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	fmt.Println("⏳ Generating questions... (this may take a moment)")
	outcome, err := assistant.GenerateQuiz(ctx, session, testgenpro.RequestInput{
		Count:   *count,
		Subject: *subject,
		Tone:    *tone,
		Type:    qt,
	}, doc)
	if err != nil {
		return fmt.Errorf("failed to generate quiz: %w", err)
	}
	fmt.Printf("✅ Generated %d %s questions on %s\n\n", outcome.Quiz.Len(), qt, outcome.Quiz.Subject)
	if outcome.Review != "" {
		fmt.Printf("📝 Review: %s\n\n", outcome.Review)
	}

	if *exportPDF != "" {
		if err := writeExport(testgenpro.NewPDFExporter(), outcome.Quiz, *exportPDF); err != nil {
			return err
		}
	}
	if *exportText != "" {
		if err := writeExport(testgenpro.TextExporter{}, outcome.Quiz, *exportText); err != nil {
			return err
		}
	}
	if *noPlay {
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if err := playAssessment(scanner, os.Stdout, assistant, session, history); err != nil {
			return err
		}
		if !askYesNo(scanner, os.Stdout, "Take the assessment again? (y/N): ") {
			break
		}
		session.Replace(session.Quiz())
	}

	printPerformance(os.Stdout, history)
	return nil
}

func writeExport(exporter testgenpro.Exporter, quiz *testgenpro.Quiz, path string) error {
	data, err := exporter.Export(quiz)
	if err != nil {
		return fmt.Errorf("failed to export quiz: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	testgenpro.Log.Infof("Quiz exported to: %s", path)
	return nil
}

func runNotes(cfg *testgenpro.Config, args []string) error {
	fs := flag.NewFlagSet("notes", flag.ExitOnError)
	file, apiKey, verbose := commonFlags(fs, cfg)
	output := fs.String("output", "", "Write notes to this file (default: stdout)")
	fs.Parse(args)

	doc, err := prepare(cfg, *file, *apiKey, *verbose)
	if err != nil {
		return err
	}
	assistant := testgenpro.NewAssistantFromConfig(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	notes, err := assistant.GenerateNotes(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to generate notes: %w", err)
	}
	if *output != "" {
		return os.WriteFile(*output, []byte(notes+"\n"), 0644)
	}
	fmt.Println("### Generated Short Notes")
	fmt.Println(notes)
	return nil
}

func runPodcast(cfg *testgenpro.Config, args []string) error {
	fs := flag.NewFlagSet("podcast", flag.ExitOnError)
	file, apiKey, verbose := commonFlags(fs, cfg)
	output := fs.String("output", "speech.mp3", "Audio output file")
	fs.StringVar(&cfg.Voice, "voice", cfg.Voice, "Speech voice")
	fs.Parse(args)

	doc, err := prepare(cfg, *file, *apiKey, *verbose)
	if err != nil {
		return err
	}
	assistant := testgenpro.NewAssistantFromConfig(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Println("⏳ Generating summary and podcast...")
	podcast, err := assistant.GeneratePodcast(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to generate podcast: %w", err)
	}
	if err := os.WriteFile(*output, podcast.Audio, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *output, err)
	}
	fmt.Printf("Summary:\n%s\n\n", podcast.Summary)
	fmt.Printf("🎧 Podcast saved to %s\n", *output)
	return nil
}
