package testgenpro

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	exportQuestionPrefix = "Question "
	exportAnswerPrefix   = "Correct Answer: "
	exportSolutionPrefix = "Solution: "
)

// Exporter renders a quiz into a portable document
type Exporter interface {
	Export(quiz *Quiz) ([]byte, error)
	ContentType() string
	Extension() string
}

// exportLines produces the printable lines for each question, in key order
func exportLines(quiz *Quiz) ([][]string, error) {
	if quiz == nil {
		return nil, ErrNoQuiz
	}
	blocks := make([][]string, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		lines := []string{fmt.Sprintf("%s%s: %s", exportQuestionPrefix, q.Key, singleLine(q.Prompt))}
		switch quiz.Type {
		case MultipleChoice:
			for _, k := range q.OptionKeys() {
				lines = append(lines, fmt.Sprintf("%s. %s", k, singleLine(q.Options[k])))
			}
			text, ok := q.Options[q.CorrectKey]
			if !ok {
				return nil, fmt.Errorf("%w: question %s correct key %q is not an option", ErrExportInconsistency, q.Key, q.CorrectKey)
			}
			lines = append(lines, exportAnswerPrefix+singleLine(text))
		case TrueFalse:
			lines = append(lines, exportAnswerPrefix+q.CorrectKey)
		case Descriptive:
			lines = append(lines, exportSolutionPrefix+singleLine(q.ReferenceSolution))
		}
		blocks = append(blocks, lines)
	}
	return blocks, nil
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TextExporter writes the quiz as plain text, one blank-line separated block per question
type TextExporter struct{}

func (TextExporter) Export(quiz *Quiz) ([]byte, error) {
	blocks, err := exportLines(quiz)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for i, lines := range blocks {
		if i > 0 {
			buf.WriteString("\n")
		}
		for _, line := range lines {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

func (TextExporter) ContentType() string { return "text/plain; charset=utf-8" }
func (TextExporter) Extension() string   { return ".txt" }

// PDFExporter writes the quiz as an A4 PDF document
type PDFExporter struct {
	FontFamily string
	FontSize   float64
}

// NewPDFExporter returns an exporter using the Arial core font at 12pt
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{FontFamily: "Arial", FontSize: 12}
}

func (e *PDFExporter) Export(quiz *Quiz) ([]byte, error) {
	blocks, err := exportLines(quiz)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s quiz", quiz.Type), true)
	pdf.SetFont(e.FontFamily, "", e.FontSize)
	pdf.AddPage()
	// Core fonts are cp1252; translate so accented characters survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, lines := range blocks {
		for _, line := range lines {
			pdf.MultiCell(0, 10, tr(line), "", "L", false)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render quiz PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) ContentType() string { return "application/pdf" }
func (e *PDFExporter) Extension() string   { return ".pdf" }

// ExportedQuestion is one question block read back from a text export
type ExportedQuestion struct {
	Key     string
	Prompt  string
	Options []string
	Answer  string // correct answer display text, or the solution for descriptive quizzes
}

// ParseExportedText reads a TextExporter document back into display blocks
func ParseExportedText(data []byte) ([]ExportedQuestion, error) {
	var (
		out     []ExportedQuestion
		current *ExportedQuestion
	)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			current = nil
		case strings.HasPrefix(line, exportQuestionPrefix) && current == nil:
			head := strings.TrimPrefix(line, exportQuestionPrefix)
			key, prompt, ok := strings.Cut(head, ": ")
			if !ok {
				return nil, fmt.Errorf("malformed question line: %q", line)
			}
			out = append(out, ExportedQuestion{Key: key, Prompt: prompt})
			current = &out[len(out)-1]
		case current == nil:
			return nil, fmt.Errorf("line outside a question block: %q", line)
		case strings.HasPrefix(line, exportAnswerPrefix):
			current.Answer = strings.TrimPrefix(line, exportAnswerPrefix)
		case strings.HasPrefix(line, exportSolutionPrefix):
			current.Answer = strings.TrimPrefix(line, exportSolutionPrefix)
		default:
			current.Options = append(current.Options, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return out, nil
}

// RenderReview returns the lines shown when reviewing a quiz: options with
// their keys and the correct key itself, or the solution for descriptive quizzes
func RenderReview(quiz *Quiz) []string {
	if quiz == nil {
		return nil
	}
	var lines []string
	for _, q := range quiz.Questions {
		lines = append(lines, fmt.Sprintf("Question %s", q.Key), q.Prompt)
		if quiz.Type == Descriptive {
			lines = append(lines, "Solution: "+q.ReferenceSolution)
			continue
		}
		for _, k := range q.OptionKeys() {
			lines = append(lines, fmt.Sprintf("%s. %s", k, q.Options[k]))
		}
		lines = append(lines, "Correct Answer: "+q.CorrectKey)
	}
	return lines
}
