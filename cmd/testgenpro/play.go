package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"testgenpro"
)

// playAssessment asks every question on in/out, records the answers and prints the result
func playAssessment(scanner *bufio.Scanner, out io.Writer, assistant *testgenpro.Assistant, session *testgenpro.QuizSession, history *testgenpro.PerformanceHistory) error {
	quiz := session.Quiz()
	if quiz == nil {
		return testgenpro.ErrNoQuiz
	}

	for i, q := range quiz.Questions {
		fmt.Fprintf(out, "Question %s (%d/%d):\n%s\n\n", q.Key, i+1, quiz.Len(), q.Prompt)

		answer, err := readAnswer(scanner, out, quiz.Type, q)
		if err != nil {
			return err
		}
		if err := session.RecordAnswer(q.Key, answer); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	eval, err := assistant.Submit(session, history)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "📊 Assessment Results")
	fmt.Fprintln(out, eval.ScoreLine())
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Feedback")
	for _, line := range eval.Feedback {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("─", 50))
	return nil
}

// readAnswer prompts until a usable answer is entered. It returns the value
// exactly as the session expects it: option text, "True"/"False" or free text.
func readAnswer(scanner *bufio.Scanner, out io.Writer, qt testgenpro.QuestionType, q testgenpro.Question) (string, error) {
	switch qt {
	case testgenpro.MultipleChoice:
		keys := q.OptionKeys()
		for _, k := range keys {
			fmt.Fprintf(out, "%s) %s\n", k, q.Options[k])
		}
		for {
			fmt.Fprintf(out, "Your answer (%s): ", strings.Join(keys, "/"))
			line, err := scanLine(scanner)
			if err != nil {
				return "", err
			}
			if text, ok := optionByInput(q, keys, line); ok {
				return text, nil
			}
			fmt.Fprintf(out, "Please enter one of %s\n", strings.Join(keys, ", "))
		}

	case testgenpro.TrueFalse:
		for {
			fmt.Fprint(out, "True or False (T/F): ")
			line, err := scanLine(scanner)
			if err != nil {
				return "", err
			}
			switch strings.ToLower(line) {
			case "t", "true":
				return "True", nil
			case "f", "false":
				return "False", nil
			}
			fmt.Fprintln(out, "Please enter T or F")
		}

	default:
		fmt.Fprint(out, "Your answer: ")
		return scanLine(scanner)
	}
}

// optionByInput accepts an option key (any case) or its 1-based position
func optionByInput(q testgenpro.Question, keys []string, input string) (string, bool) {
	for _, k := range keys {
		if strings.EqualFold(k, input) {
			return q.Options[k], true
		}
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(keys) {
		return q.Options[keys[n-1]], true
	}
	return "", false
}

func scanLine(scanner *bufio.Scanner) (string, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func askYesNo(scanner *bufio.Scanner, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func printPerformance(out io.Writer, history *testgenpro.PerformanceHistory) {
	avg, err := history.Average()
	if err != nil {
		fmt.Fprintln(out, "No assessments graded.")
		return
	}
	fmt.Fprintln(out, "🏆 Performance")
	for i, p := range history.Series() {
		fmt.Fprintf(out, "  Attempt %d: %s%%\n", i+1, testgenpro.FormatPercentage(p))
	}
	fmt.Fprintf(out, "Average Score: %s%%\n", testgenpro.FormatPercentage(avg))
}
