package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"standup/internal/models"
	"standup/internal/services"
)

// report-preview renders a stored meeting snapshot to HTML so template
// changes can be checked without running the server.
func main() {
	input := flag.String("input", "", "path to a meeting.json snapshot")
	output := flag.String("output", "preview.html", "path to write the rendered HTML")
	template := flag.String("template", "", "optional report template override file")
	markdown := flag.Bool("markdown", false, "print the markdown report to stdout instead of writing HTML")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: report-preview -input meeting.json [-output preview.html] [-template report.md.tmpl] [-markdown]")
		os.Exit(2)
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("❌ Failed to read %s: %v", *input, err)
	}

	var meeting models.Meeting
	if err := json.Unmarshal(data, &meeting); err != nil {
		log.Fatalf("❌ Failed to parse meeting snapshot: %v", err)
	}

	reportService := services.NewReportService(*template, services.GetMetrics())

	if *markdown {
		report, err := reportService.RenderMarkdown(&meeting)
		if err != nil {
			log.Fatalf("❌ Failed to render report: %v", err)
		}
		fmt.Print(report)
		return
	}

	html, err := reportService.RenderHTML(&meeting)
	if err != nil {
		log.Fatalf("❌ Failed to render report: %v", err)
	}

	if err := os.WriteFile(*output, []byte(html), 0644); err != nil {
		log.Fatalf("❌ Failed to write %s: %v", *output, err)
	}
	fmt.Printf("✅ Rendered %s -> %s\n", meeting.ID, *output)
}
