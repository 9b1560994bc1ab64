package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/auramail/placement-ingest/internal/core"
	"github.com/auramail/placement-ingest/internal/di"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(analyze); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// analyze runs the full extraction pipeline over a single email and prints
// the merged fields and anomaly verdict.
func analyze(
	flags *di.CLIFlags,
	logger *zap.Logger,
	extraction *core.ExtractionService,
	extractor core.FieldExtractor,
) error {
	defer logger.Sync()

	// Read email body from file or stdin
	var bodyReader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		bodyReader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		bodyReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	bodyBytes, err := io.ReadAll(bodyReader)
	if err != nil {
		return fmt.Errorf("failed to read email body: %w", err)
	}
	body := string(bodyBytes)

	snippet := body
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}

	email := &core.EmailContent{
		Subject: flags.Subject,
		Snippet: snippet,
		Body:    body,
	}

	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("Subject: %s\n", flags.Subject)
	fmt.Printf("Body length: %d bytes\n", len(body))
	fmt.Printf("Provider: %s\n", flags.Provider)

	now := time.Now()
	startTime := now

	aiFields, usedFallback := extraction.Analyze(context.Background(), email)

	fullText := flags.Subject + " " + body

	// Heuristic extraction runs regardless of the AI outcome
	company := core.ParseCompany(flags.Subject, snippet)
	role := core.ParseRole(flags.Subject, snippet)
	deadline := core.ParseDeadline(fullText, now)
	applyLink := core.ParseApplyLink(fullText)

	fmt.Printf("\n=== Extracted Fields ===\n")
	printField("Summary", aiFields.Summary)
	printField("Category", aiFields.Category)
	printField("Company (AI)", aiFields.Company)
	printField("Company (heuristic)", company)
	printField("Role (AI)", aiFields.Role)
	printField("Role (heuristic)", role)
	printField("Deadline (AI)", aiFields.Deadline)
	if deadline != nil {
		fmt.Printf("Deadline (heuristic): %s\n", deadline.Format("2006-01-02"))
	} else {
		fmt.Printf("Deadline (heuristic): -\n")
	}
	printField("Apply link (AI)", aiFields.ApplyLink)
	printField("Apply link (heuristic)", applyLink)
	printField("Salary", aiFields.Salary)
	printField("Location", aiFields.Location)
	printField("Eligibility", aiFields.Eligibility)
	fmt.Printf("Used fallback: %t\n", usedFallback)

	// Anomaly detection over the merged view
	category := "announcement"
	if aiFields.Category != nil {
		category = *aiFields.Category
	}
	report := core.DetectAnomalies(&core.AnomalyInput{
		Category:  &category,
		Company:   firstNonNil(aiFields.Company, company),
		Role:      firstNonNil(aiFields.Role, role),
		Deadline:  deadline,
		ApplyLink: firstNonNil(aiFields.ApplyLink, applyLink),
		Salary:    aiFields.Salary,
		Subject:   flags.Subject,
		Body:      body,
	}, now)

	fmt.Printf("\n=== Anomaly Report ===\n")
	if report.HasAnomaly {
		fmt.Println(core.FormatAnomalyReport(report))
	} else {
		fmt.Println("No anomalies detected")
	}
	fmt.Printf("\nProcessing time: %v\n", time.Since(startTime))

	// Close any resources that need closing
	if closer, ok := extractor.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close field extractor", zap.Error(err))
		}
	}

	return nil
}

func printField(name string, value *string) {
	if value != nil {
		fmt.Printf("%s: %s\n", name, *value)
		return
	}
	fmt.Printf("%s: -\n", name)
}

func firstNonNil(a, b *string) *string {
	if a != nil {
		return a
	}
	return b
}
