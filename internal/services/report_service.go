package services

import (
	"bytes"
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	"standup/internal/models"
)

//go:embed templates/report.md.tmpl
var defaultReportTemplate string

// RenderErrorKind classifies report render failures
type RenderErrorKind string

const (
	// RenderErrorMissingTemplate means the template resource is unavailable
	RenderErrorMissingTemplate RenderErrorKind = "missing_template"
	// RenderErrorDataBinding means the template rejected the meeting data
	RenderErrorDataBinding RenderErrorKind = "data_binding"
)

// RenderError reports a report generation failure
type RenderError struct {
	Kind RenderErrorKind
	Err  error
}

// Error implements the error interface
func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed (%s): %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *RenderError) Unwrap() error {
	return e.Err
}

// templateFrontmatter is the YAML frontmatter of a report template override
// file. All fields are optional.
type templateFrontmatter struct {
	Title        string `yaml:"title"`
	EmptyMessage string `yaml:"empty_message"`
}

// reportContext is the data bound into the report template
type reportContext struct {
	Title        string
	EmptyMessage string
	Meeting      *models.Meeting
	CreatedAt    string
	ClosedAt     string // empty for open meetings
	UpdateCount  int
}

// reportTimeLayout formats meeting timestamps in the rendered document.
// All timestamps come from the meeting itself, so output depends only on
// the snapshot.
const reportTimeLayout = "2006-01-02 15:04 MST"

// ReportService renders a meeting snapshot into a markdown document and its
// HTML projection. Rendering is a pure function of the snapshot: the same
// meeting always produces byte-identical output.
type ReportService struct {
	mu           sync.RWMutex
	tmpl         *template.Template
	title        string
	emptyMessage string
	overridePath string
	markdown     goldmark.Markdown
	metrics      *Metrics
}

// NewReportService creates a report renderer. When overridePath is non-empty
// the template (with optional YAML frontmatter) is loaded from that file and
// hot-reloaded on change; otherwise the embedded default is used.
func NewReportService(overridePath string, metrics *Metrics) *ReportService {
	s := &ReportService{
		title:        "Meeting Report",
		emptyMessage: "No updates were submitted for this meeting.",
		overridePath: overridePath,
		markdown:     goldmark.New(),
		metrics:      metrics,
	}

	if overridePath == "" {
		tmpl, err := template.New("report").Parse(defaultReportTemplate)
		if err != nil {
			// The embedded template is compiled in; a parse failure here is a
			// build defect surfaced at startup.
			log.Printf("❌ [REPORT] Embedded template is invalid: %v", err)
		} else {
			s.tmpl = tmpl
		}
		return s
	}

	if err := s.loadOverride(); err != nil {
		log.Printf("⚠️ [REPORT] Failed to load template %s: %v (renders will fail until fixed)", overridePath, err)
	}
	go s.watchOverride()

	return s
}

// loadOverride reads and parses the override template file
func (s *ReportService) loadOverride() error {
	data, err := os.ReadFile(s.overridePath)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	fm, body, err := parseTemplateFile(string(data))
	if err != nil {
		return err
	}

	tmpl, err := template.New("report").Parse(body)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	s.mu.Lock()
	s.tmpl = tmpl
	if fm.Title != "" {
		s.title = fm.Title
	}
	if fm.EmptyMessage != "" {
		s.emptyMessage = fm.EmptyMessage
	}
	s.mu.Unlock()

	log.Printf("📄 [REPORT] Loaded template from %s", s.overridePath)
	return nil
}

// parseTemplateFile splits an override file into YAML frontmatter and the
// template body. Files without frontmatter delimiters are all body.
func parseTemplateFile(content string) (*templateFrontmatter, string, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	fm := &templateFrontmatter{}

	if !strings.HasPrefix(content, "---\n") {
		return fm, content, nil
	}

	rest := content[4:]
	closingIdx := strings.Index(rest, "\n---")
	if closingIdx == -1 {
		return fm, content, nil
	}

	yamlContent := rest[:closingIdx]
	body := strings.TrimPrefix(rest[closingIdx+4:], "\n")

	if err := yaml.Unmarshal([]byte(yamlContent), fm); err != nil {
		return nil, "", fmt.Errorf("invalid YAML frontmatter: %w", err)
	}

	return fm, body, nil
}

// watchOverride reloads the override template when the file changes
func (s *ReportService) watchOverride() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️ [REPORT] Failed to create template watcher: %v", err)
		return
	}

	// Watch the directory containing the file (more reliable than watching
	// the file directly)
	absPath, err := filepath.Abs(s.overridePath)
	if err != nil {
		log.Printf("⚠️ [REPORT] Failed to resolve template path: %v", err)
		watcher.Close()
		return
	}
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️ [REPORT] Failed to watch %s: %v", dir, err)
		watcher.Close()
		return
	}

	log.Printf("👁️ [REPORT] Watching %s for changes (hot-reload enabled)", s.overridePath)

	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := s.loadOverride(); err != nil {
						log.Printf("❌ [REPORT] Failed to reload template: %v", err)
					}
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️ [REPORT] Template watcher error: %v", err)
		}
	}
}

// RenderMarkdown renders a meeting snapshot into the markdown report
func (s *ReportService) RenderMarkdown(meeting *models.Meeting) (string, error) {
	start := time.Now()

	s.mu.RLock()
	tmpl := s.tmpl
	title := s.title
	emptyMessage := s.emptyMessage
	s.mu.RUnlock()

	if tmpl == nil {
		if s.metrics != nil {
			s.metrics.RenderErrors.WithLabelValues(string(RenderErrorMissingTemplate)).Inc()
		}
		return "", &RenderError{Kind: RenderErrorMissingTemplate, Err: fmt.Errorf("no report template loaded")}
	}

	ctx := reportContext{
		Title:        title,
		EmptyMessage: emptyMessage,
		Meeting:      meeting,
		CreatedAt:    meeting.CreatedAt.UTC().Format(reportTimeLayout),
		UpdateCount:  len(meeting.Updates),
	}
	if meeting.IsClosed && meeting.ClosedAt != nil {
		ctx.ClosedAt = meeting.ClosedAt.UTC().Format(reportTimeLayout)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		if s.metrics != nil {
			s.metrics.RenderErrors.WithLabelValues(string(RenderErrorDataBinding)).Inc()
		}
		return "", &RenderError{Kind: RenderErrorDataBinding, Err: err}
	}

	if s.metrics != nil {
		s.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	}
	return buf.String(), nil
}

// RenderHTML renders a meeting snapshot into the standalone HTML report
// document archived alongside the JSON snapshot.
func (s *ReportService) RenderHTML(meeting *models.Meeting) (string, error) {
	md, err := s.RenderMarkdown(meeting)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	if err := s.markdown.Convert([]byte(md), &body); err != nil {
		if s.metrics != nil {
			s.metrics.RenderErrors.WithLabelValues(string(RenderErrorDataBinding)).Inc()
		}
		return "", &RenderError{Kind: RenderErrorDataBinding, Err: err}
	}

	s.mu.RLock()
	title := s.title
	s.mu.RUnlock()

	var doc bytes.Buffer
	doc.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	doc.WriteString(fmt.Sprintf("<title>%s - %s</title>\n", title, meeting.ID))
	doc.WriteString("<style>body{font-family:sans-serif;max-width:46rem;margin:2rem auto;padding:0 1rem;line-height:1.5}h2{border-bottom:1px solid #ddd;padding-bottom:.25rem}</style>\n")
	doc.WriteString("</head>\n<body>\n")
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")

	return doc.String(), nil
}
