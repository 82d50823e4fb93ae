package main

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"testgenpro"

	"github.com/gorilla/sessions"
)

//go:embed templates/*.html
var templateFS embed.FS

const cookieName = "testgenpro-session"

type Server struct {
	store     *testgenpro.Store
	cookies   *sessions.CookieStore
	users     *testgenpro.Users
	assistant *testgenpro.Assistant
	templates map[string]*template.Template
}

func main() {
	cfg, err := testgenpro.LoadConfig()
	if err != nil {
		testgenpro.Log.Fatalf("Failed to load config: %v", err)
	}
	testgenpro.SetVerbose(cfg.Verbose)
	if err := cfg.RequireOpenAIKey(); err != nil {
		testgenpro.Log.Fatal(err)
	}

	store, err := testgenpro.OpenStore(cfg.DBPath)
	if err != nil {
		testgenpro.Log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	users, err := testgenpro.NewUsers(cfg.Users)
	if err != nil {
		testgenpro.Log.Fatalf("Failed to set up users: %v", err)
	}

	server, err := NewServer(store, users, testgenpro.NewAssistantFromConfig(cfg), []byte(cfg.SessionSecret))
	if err != nil {
		testgenpro.Log.Fatalf("Failed to load templates: %v", err)
	}

	testgenpro.Log.Infof("Starting server on port %s", cfg.Port)
	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     server.Routes(),
		ReadTimeout: 30 * time.Second,
		// generation calls block for the length of a model round trip
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	testgenpro.Log.Fatal(httpServer.ListenAndServe())
}

// NewServer builds the web server and parses its templates
func NewServer(store *testgenpro.Store, users *testgenpro.Users, assistant *testgenpro.Assistant, secret []byte) (*Server, error) {
	cookies := sessions.NewCookieStore(secret)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 3,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	funcMap := template.FuncMap{
		"percent": testgenpro.FormatPercentage,
		"add": func(a, b int) int {
			return a + b
		},
		"lines": func(s string) []string {
			return strings.Split(s, "\n")
		},
		"isType": func(qt testgenpro.QuestionType, name string) bool {
			return string(qt) == name
		},
	}

	templates := make(map[string]*template.Template)
	for _, name := range []string{"login", "generate", "assessment", "results", "review", "performance", "notes", "podcast"} {
		tmpl, err := template.New(name).Funcs(funcMap).ParseFS(templateFS, "templates/base.html", fmt.Sprintf("templates/%s.html", name))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &Server{
		store:     store,
		cookies:   cookies,
		users:     users,
		assistant: assistant,
		templates: templates,
	}, nil
}

// Routes returns the HTTP handler for all pages
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/", s.requireLogin(s.handleGenerate))
	mux.HandleFunc("/assessment", s.requireLogin(s.handleAssessment))
	mux.HandleFunc("/review", s.requireLogin(s.handleReview))
	mux.HandleFunc("/review/export", s.requireLogin(s.handleExport))
	mux.HandleFunc("/performance", s.requireLogin(s.handlePerformance))
	mux.HandleFunc("/notes", s.requireLogin(s.handleNotes))
	mux.HandleFunc("/podcast", s.requireLogin(s.handlePodcast))
	mux.HandleFunc("/podcast/audio", s.requireLogin(s.handlePodcastAudio))
	return logRequests(mux)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		testgenpro.VerboseLog("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) render(w http.ResponseWriter, name string, status int, data map[string]interface{}) {
	tmpl, ok := s.templates[name]
	if !ok {
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		testgenpro.Log.WithError(err).Errorf("Template error in %s", name)
	}
}
