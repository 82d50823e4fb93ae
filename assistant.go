package testgenpro

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NotesPromptTemplate asks for study notes; it also produces the podcast summary
const NotesPromptTemplate = "Please generate concise and useful short notes for study preparation based on the following text:\n\n{text}"

// Assistant wires the external collaborators to the quiz lifecycle
type Assistant struct {
	extractor TextExtractor
	gen       ContentGenerator
	speech    SpeechSynthesizer
	reviewer  *QuizReviewer
	registry  *SchemaRegistry

	logDir           string
	notesMaxTokens   int
	notesTemperature float32
	voice            string
}

// AssistantOptions configures an Assistant. Zero values select the defaults.
type AssistantOptions struct {
	Registry         *SchemaRegistry
	LogDir           string // empty disables LLM transcripts
	NotesMaxTokens   int
	NotesTemperature float32
	Voice            string
	Review           bool // run the review pass after each quiz generation
}

func NewAssistant(extractor TextExtractor, gen ContentGenerator, speech SpeechSynthesizer, opts AssistantOptions) *Assistant {
	a := &Assistant{
		extractor:        extractor,
		gen:              gen,
		speech:           speech,
		registry:         opts.Registry,
		logDir:           opts.LogDir,
		notesMaxTokens:   opts.NotesMaxTokens,
		notesTemperature: opts.NotesTemperature,
		voice:            opts.Voice,
	}
	if a.extractor == nil {
		a.extractor = DocumentExtractor{}
	}
	if a.registry == nil {
		a.registry = DefaultSchemas()
	}
	if a.notesMaxTokens <= 0 {
		a.notesMaxTokens = DefaultNotesTokens
	}
	if a.notesTemperature <= 0 {
		a.notesTemperature = DefaultNotesTemp
	}
	if a.voice == "" {
		a.voice = DefaultVoice
	}
	if opts.Review {
		a.reviewer = NewQuizReviewer(gen)
	}
	return a
}

// NewAssistantFromConfig builds an Assistant backed by OpenAI
func NewAssistantFromConfig(cfg *Config) *Assistant {
	return NewAssistant(
		DocumentExtractor{},
		NewOpenAIGenerator(cfg.OpenAIKey, cfg.Model, cfg.RequestsPerMin),
		NewOpenAISpeech(cfg.OpenAIKey, cfg.TTSModel),
		AssistantOptions{
			LogDir:           cfg.LogDir,
			NotesMaxTokens:   cfg.NotesMaxTokens,
			NotesTemperature: cfg.NotesTemperature,
			Voice:            cfg.Voice,
			Review:           true,
		},
	)
}

// Registry returns the response schemas in use
func (a *Assistant) Registry() *SchemaRegistry {
	return a.registry
}

// ExtractText reads the document's text
func (a *Assistant) ExtractText(ctx context.Context, doc Document) (string, error) {
	text, err := a.extractor.ExtractText(ctx, doc.Data, doc.Kind)
	if err != nil {
		Log.WithError(err).WithField("document", doc.Name).Error("text extraction failed")
		return "", err
	}
	return text, nil
}

// GenerateQuiz generates a quiz from doc and installs it in session. The
// session is only modified when generation and parsing both succeed.
func (a *Assistant) GenerateQuiz(ctx context.Context, session *QuizSession, in RequestInput, doc Document) (*GenerationOutcome, error) {
	if strings.TrimSpace(in.SourceText) == "" {
		text, err := a.ExtractText(ctx, doc)
		if err != nil {
			return nil, err
		}
		in.SourceText = text
	}

	req, err := NewGenerationRequest(in, a.registry)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := Log.WithFields(logrus.Fields{
		"run_id":        runID,
		"session_id":    session.ID,
		"question_type": req.Type,
		"subject":       req.Subject,
	})
	log.Infof("Starting quiz generation: %d questions", req.Count)

	ll := a.openTranscript(runID, "Quiz Generation")
	defer ll.Close()
	ll.LogRequestParams(req)
	ctx = WithLLMLogger(ctx, ll)

	raw, err := a.gen.GenerateContent(ctx, QuizPromptTemplate, req.Variables(), req.Shape, WithModule("QuizGenerator"))
	if err != nil {
		log.WithError(err).Error("quiz generation failed")
		return nil, err
	}

	quiz, err := ParseQuizResponse(raw, req.Type, a.registry)
	if err != nil {
		log.WithError(err).Error("failed to parse quiz data")
		ll.LogParseFailure(err, raw)
		return nil, err
	}
	quiz.Subject = req.Subject
	if quiz.Len() != req.Count {
		log.Warnf("Requested %d questions, model returned %d", req.Count, quiz.Len())
	}

	outcome := &GenerationOutcome{Quiz: quiz}
	if a.reviewer != nil {
		review, err := a.reviewer.Review(ctx, quiz, req.Subject)
		if err != nil {
			log.WithError(err).Warn("quiz review failed; keeping quiz")
		} else {
			outcome.Review = review
		}
	}

	session.Replace(quiz)
	log.WithField("quiz_id", quiz.ID).Infof("Quiz generation complete: %d questions", quiz.Len())
	return outcome, nil
}

// GenerateNotes produces short study notes for a document
func (a *Assistant) GenerateNotes(ctx context.Context, doc Document) (string, error) {
	text, err := a.ExtractText(ctx, doc)
	if err != nil {
		return "", err
	}

	runID := uuid.NewString()
	ll := a.openTranscript(runID, "Notes")
	defer ll.Close()

	notes, err := a.notes(WithLLMLogger(ctx, ll), text, "NotesGenerator")
	if err != nil {
		Log.WithError(err).WithField("run_id", runID).Error("notes generation failed")
		return "", err
	}
	return notes, nil
}

// Podcast is a spoken summary of a document
type Podcast struct {
	Summary string
	Audio   []byte // mp3
}

// GeneratePodcast summarizes a document and synthesizes the summary as speech
func (a *Assistant) GeneratePodcast(ctx context.Context, doc Document) (*Podcast, error) {
	if a.speech == nil {
		return nil, fmt.Errorf("%w: no speech synthesizer configured", ErrSynthesis)
	}
	text, err := a.ExtractText(ctx, doc)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := Log.WithField("run_id", runID)
	ll := a.openTranscript(runID, "Podcast")
	defer ll.Close()

	summary, err := a.notes(WithLLMLogger(ctx, ll), text, "PodcastSummary")
	if err != nil {
		log.WithError(err).Error("podcast summary failed")
		return nil, err
	}

	audio, err := a.speech.SynthesizeSpeech(ctx, summary, a.voice)
	if err != nil {
		log.WithError(err).Error("speech synthesis failed")
		return nil, err
	}
	ll.Logf("Synthesized %d bytes of audio with voice %s\n", len(audio), a.voice)
	log.Infof("Podcast generated: %d bytes of audio", len(audio))
	return &Podcast{Summary: summary, Audio: audio}, nil
}

func (a *Assistant) notes(ctx context.Context, text, module string) (string, error) {
	notes, err := a.gen.GenerateContent(ctx, NotesPromptTemplate, map[string]string{"text": text}, "",
		WithTemperature(a.notesTemperature), WithMaxTokens(a.notesMaxTokens), WithModule(module))
	if err != nil {
		return "", err
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return "", fmt.Errorf("%w: the result was empty", ErrGeneration)
	}
	return notes, nil
}

// Submit evaluates the session's answers and records graded scores in history
func (a *Assistant) Submit(session *QuizSession, history *PerformanceHistory) (*Evaluation, error) {
	eval, err := Evaluate(session, history)
	if err != nil {
		Log.WithError(err).WithField("session_id", session.ID).Error("assessment evaluation failed")
		return nil, err
	}
	Log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"quiz_id":    eval.QuizID,
		"graded":     eval.Graded,
	}).Info(eval.ScoreLine())
	return eval, nil
}

func (a *Assistant) openTranscript(runID, purpose string) *LLMLogger {
	if a.logDir == "" {
		return nil
	}
	ll, err := NewLLMLogger(a.logDir, runID, purpose)
	if err != nil {
		// continue without a transcript rather than failing the request
		Log.WithError(err).Warn("failed to create LLM logger")
		return nil
	}
	return ll
}
