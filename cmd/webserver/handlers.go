package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"testgenpro"

	"github.com/google/uuid"
)

type authedHandler func(w http.ResponseWriter, r *http.Request, sid, username string)

// requireLogin resolves the browser session to a stored session, redirecting to /login otherwise
func (s *Server) requireLogin(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, _ := s.cookies.Get(r, cookieName)
		sid, _ := cookie.Values["sid"].(string)
		if sid == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		username, err := s.store.SessionUser(sid)
		if err != nil {
			if !errors.Is(err, testgenpro.ErrSessionNotFound) {
				testgenpro.Log.WithError(err).Error("Failed to look up session")
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r, sid, username)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, "login", http.StatusOK, nil)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	if err := s.users.Authenticate(username, r.FormValue("password")); err != nil {
		testgenpro.Log.WithField("username", username).Warn("Failed login")
		s.render(w, "login", http.StatusUnauthorized, map[string]interface{}{
			"Error":    "Invalid username or password",
			"Username": username,
		})
		return
	}

	sid := uuid.NewString()
	if err := s.store.CreateSession(sid, username); err != nil {
		testgenpro.Log.WithError(err).Error("Failed to create session")
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	cookie, _ := s.cookies.Get(r, cookieName)
	cookie.Values["sid"] = sid
	if err := cookie.Save(r, w); err != nil {
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}
	testgenpro.Log.WithField("username", username).Info("Logged in")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cookie, _ := s.cookies.Get(r, cookieName)
	if sid, ok := cookie.Values["sid"].(string); ok && sid != "" {
		if err := s.store.DeleteSession(sid); err != nil {
			testgenpro.Log.WithError(err).Warn("Failed to delete session")
		}
	}
	cookie.Options.MaxAge = -1
	cookie.Save(r, w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// generateForm echoes the generation fields back into the page
type generateForm struct {
	Type     string
	Count    int
	Subject  string
	Tone     string
	Filename string
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, sid, username string) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := map[string]interface{}{
		"Tab":      "generate",
		"Username": username,
		"Types":    testgenpro.QuestionTypes,
		"Min":      testgenpro.MinQuestions,
		"Max":      testgenpro.MaxQuestions,
		"Form":     generateForm{Type: string(testgenpro.MultipleChoice), Count: 5, Tone: testgenpro.DefaultTone},
	}

	if r.Method == http.MethodGet {
		session, err := s.store.LoadSession(sid)
		if err != nil {
			s.serverError(w, "Failed to load session", err)
			return
		}
		data["HasQuiz"] = session.HasQuiz()
		s.render(w, "generate", http.StatusOK, data)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, testgenpro.MaxDocumentSize+1<<20)
	if err := r.ParseMultipartForm(testgenpro.MaxDocumentSize); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	count, _ := strconv.Atoi(r.FormValue("num_questions"))
	form := generateForm{
		Type:    r.FormValue("question_type"),
		Count:   count,
		Subject: r.FormValue("subject"),
		Tone:    r.FormValue("tone"),
	}
	data["Form"] = form

	doc, err := readDocument(r)
	if err != nil {
		data["Error"] = err.Error()
		s.render(w, "generate", http.StatusBadRequest, data)
		return
	}
	form.Filename = doc.Name
	data["Form"] = form

	qt, err := testgenpro.ParseQuestionType(form.Type)
	if err != nil {
		data["Error"] = err.Error()
		s.render(w, "generate", http.StatusBadRequest, data)
		return
	}

	session, err := s.store.LoadSession(sid)
	if err != nil {
		s.serverError(w, "Failed to load session", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	outcome, err := s.assistant.GenerateQuiz(ctx, session, testgenpro.RequestInput{
		Count:   form.Count,
		Subject: form.Subject,
		Tone:    form.Tone,
		Type:    qt,
	}, doc)
	if err != nil {
		data["HasQuiz"] = session.HasQuiz()
		data["Error"] = "Failed to generate questions: " + err.Error()
		var reqErr *testgenpro.RequestError
		if errors.As(err, &reqErr) {
			data["Error"] = "Please fix the following:"
			data["Issues"] = reqErr.Issues
		}
		s.render(w, "generate", statusFor(err), data)
		return
	}

	if err := s.store.SaveQuiz(sid, outcome.Quiz, outcome.Review); err != nil {
		s.serverError(w, "Failed to save quiz", err)
		return
	}
	http.Redirect(w, r, "/assessment", http.StatusSeeOther)
}

func readDocument(r *http.Request) (testgenpro.Document, error) {
	file, header, err := r.FormFile("document")
	if err != nil {
		return testgenpro.Document{}, fmt.Errorf("please upload a PDF or text file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, testgenpro.MaxDocumentSize+1))
	if err != nil {
		return testgenpro.Document{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > testgenpro.MaxDocumentSize {
		return testgenpro.Document{}, fmt.Errorf("file is larger than %d MB", testgenpro.MaxDocumentSize>>20)
	}
	return testgenpro.NewDocument(header.Filename, data)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, testgenpro.ErrInvalidRequest),
		errors.Is(err, testgenpro.ErrUnsupportedFormat),
		errors.Is(err, testgenpro.ErrExtraction):
		return http.StatusBadRequest
	case errors.Is(err, testgenpro.ErrMalformedResponse),
		errors.Is(err, testgenpro.ErrGeneration),
		errors.Is(err, testgenpro.ErrSynthesis):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	testgenpro.Log.WithError(err).Error(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}

type optionView struct {
	Key      string
	Text     string
	Selected bool
}

type questionView struct {
	Key     string
	Prompt  string
	Options []optionView
	Answer  string
}

// questionViews flattens a quiz for the assessment form, marking recorded answers
func questionViews(session *testgenpro.QuizSession) []questionView {
	quiz := session.Quiz()
	views := make([]questionView, 0, quiz.Len())
	for _, q := range quiz.Questions {
		view := questionView{Key: q.Key, Prompt: q.Prompt}
		if record, ok := session.Answer(q.Key); ok && record.SubmittedAnswer != nil {
			view.Answer = *record.SubmittedAnswer
		}
		switch quiz.Type {
		case testgenpro.MultipleChoice:
			for _, k := range q.OptionKeys() {
				text := q.Options[k]
				view.Options = append(view.Options, optionView{Key: k, Text: text, Selected: text == view.Answer})
			}
		case testgenpro.TrueFalse:
			for _, v := range []string{"True", "False"} {
				view.Options = append(view.Options, optionView{Key: v, Text: v, Selected: v == view.Answer})
			}
		}
		views = append(views, view)
	}
	return views
}

func (s *Server) handleAssessment(w http.ResponseWriter, r *http.Request, sid, username string) {
	session, err := s.store.LoadSession(sid)
	if err != nil {
		s.serverError(w, "Failed to load session", err)
		return
	}
	data := map[string]interface{}{
		"Tab":      "assessment",
		"Username": username,
	}
	if !session.HasQuiz() {
		s.render(w, "assessment", http.StatusOK, data)
		return
	}
	quiz := session.Quiz()
	data["Quiz"] = quiz

	if r.Method == http.MethodGet {
		data["Questions"] = questionViews(session)
		s.render(w, "assessment", http.StatusOK, data)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	// a fresh attempt: answers from the previous submission do not carry over
	session.Replace(quiz)
	for _, q := range quiz.Questions {
		values, ok := r.PostForm["answer_"+q.Key]
		if !ok || len(values) == 0 {
			continue
		}
		if quiz.Type.Gradable() && values[0] == "" {
			continue
		}
		if err := session.RecordAnswer(q.Key, values[0]); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := s.store.SaveAnswers(session); err != nil {
		s.serverError(w, "Failed to save answers", err)
		return
	}

	history, err := s.store.LoadHistory(sid)
	if err != nil {
		s.serverError(w, "Failed to load history", err)
		return
	}
	before := history.Len()
	eval, err := s.assistant.Submit(session, history)
	if err != nil {
		s.serverError(w, "Failed to evaluate assessment", err)
		return
	}
	if history.Len() > before {
		entries := history.Entries()
		if err := s.store.AppendScore(sid, entries[len(entries)-1]); err != nil {
			s.serverError(w, "Failed to save score", err)
			return
		}
	}

	data["Evaluation"] = eval
	s.render(w, "results", http.StatusOK, data)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request, sid, username string) {
	session, err := s.store.LoadSession(sid)
	if err != nil {
		s.serverError(w, "Failed to load session", err)
		return
	}
	data := map[string]interface{}{
		"Tab":      "review",
		"Username": username,
	}
	if session.HasQuiz() {
		quiz := session.Quiz()
		_, review, err := s.store.GetQuiz(quiz.ID)
		if err != nil {
			s.serverError(w, "Failed to load quiz", err)
			return
		}
		data["Quiz"] = quiz
		data["Lines"] = testgenpro.RenderReview(quiz)
		data["Review"] = review
	}
	s.render(w, "review", http.StatusOK, data)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sid, username string) {
	session, err := s.store.LoadSession(sid)
	if err != nil {
		s.serverError(w, "Failed to load session", err)
		return
	}
	if !session.HasQuiz() {
		http.Error(w, testgenpro.ErrNoQuiz.Error(), http.StatusNotFound)
		return
	}

	var exporter testgenpro.Exporter = testgenpro.NewPDFExporter()
	if r.URL.Query().Get("format") == "text" {
		exporter = testgenpro.TextExporter{}
	}
	data, err := exporter.Export(session.Quiz())
	if err != nil {
		s.serverError(w, "Failed to export quiz", err)
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="questions_answers%s"`, exporter.Extension()))
	w.Write(data)
}

// chartPoint is one vertex of the score line chart, in SVG user units
type chartPoint struct {
	X, Y       float64
	Attempt    int
	Percentage float64
}

const (
	chartWidth  = 600
	chartHeight = 240
	chartPad    = 20
)

func chartPoints(series []float64) []chartPoint {
	points := make([]chartPoint, len(series))
	step := 0.0
	if len(series) > 1 {
		step = float64(chartWidth-2*chartPad) / float64(len(series)-1)
	}
	for i, p := range series {
		points[i] = chartPoint{
			X:          chartPad + step*float64(i),
			Y:          chartPad + (100-p)/100*float64(chartHeight-2*chartPad),
			Attempt:    i + 1,
			Percentage: p,
		}
	}
	return points
}

func polyline(points []chartPoint) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("%.1f,%.1f", p.X, p.Y)
	}
	return strings.Join(parts, " ")
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request, sid, username string) {
	history, err := s.store.LoadHistory(sid)
	if err != nil {
		s.serverError(w, "Failed to load history", err)
		return
	}
	data := map[string]interface{}{
		"Tab":      "performance",
		"Username": username,
		"Width":    chartWidth,
		"Height":   chartHeight,
	}
	if avg, err := history.Average(); err == nil {
		points := chartPoints(history.Series())
		data["Average"] = avg
		data["Points"] = points
		data["Polyline"] = polyline(points)
	}
	s.render(w, "performance", http.StatusOK, data)
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request, sid, username string) {
	data := map[string]interface{}{
		"Tab":      "notes",
		"Username": username,
	}

	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, testgenpro.MaxDocumentSize+1<<20)
		if err := r.ParseMultipartForm(testgenpro.MaxDocumentSize); err != nil {
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}
		doc, err := readDocument(r)
		if err != nil {
			data["Error"] = err.Error()
			s.render(w, "notes", http.StatusBadRequest, data)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
		defer cancel()
		notes, err := s.assistant.GenerateNotes(ctx, doc)
		if err != nil {
			data["Error"] = "Failed to generate notes: " + err.Error()
			s.render(w, "notes", statusFor(err), data)
			return
		}
		if err := s.store.SaveNotes(sid, notes); err != nil {
			s.serverError(w, "Failed to save notes", err)
			return
		}
		http.Redirect(w, r, "/notes", http.StatusSeeOther)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	artifacts, err := s.store.LoadArtifacts(sid)
	if err != nil {
		s.serverError(w, "Failed to load notes", err)
		return
	}
	data["Notes"] = artifacts.Notes
	s.render(w, "notes", http.StatusOK, data)
}

func (s *Server) handlePodcast(w http.ResponseWriter, r *http.Request, sid, username string) {
	data := map[string]interface{}{
		"Tab":      "podcast",
		"Username": username,
	}

	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, testgenpro.MaxDocumentSize+1<<20)
		if err := r.ParseMultipartForm(testgenpro.MaxDocumentSize); err != nil {
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}
		doc, err := readDocument(r)
		if err != nil {
			data["Error"] = err.Error()
			s.render(w, "podcast", http.StatusBadRequest, data)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
		defer cancel()
		podcast, err := s.assistant.GeneratePodcast(ctx, doc)
		if err != nil {
			data["Error"] = "Failed to generate podcast: " + err.Error()
			s.render(w, "podcast", statusFor(err), data)
			return
		}
		if err := s.store.SavePodcast(sid, podcast); err != nil {
			s.serverError(w, "Failed to save podcast", err)
			return
		}
		http.Redirect(w, r, "/podcast", http.StatusSeeOther)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	artifacts, err := s.store.LoadArtifacts(sid)
	if err != nil {
		s.serverError(w, "Failed to load podcast", err)
		return
	}
	data["Summary"] = artifacts.Summary
	data["HasAudio"] = len(artifacts.Audio) > 0
	s.render(w, "podcast", http.StatusOK, data)
}

func (s *Server) handlePodcastAudio(w http.ResponseWriter, r *http.Request, sid, username string) {
	artifacts, err := s.store.LoadArtifacts(sid)
	if err != nil {
		s.serverError(w, "Failed to load podcast", err)
		return
	}
	if len(artifacts.Audio) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(artifacts.Audio)))
	w.Write(artifacts.Audio)
}
