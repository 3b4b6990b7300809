package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hexperiment/sircontrol/pkg/client"
	"github.com/hexperiment/sircontrol/pkg/simulation"
)

func main() {
	var (
		batchFile  string
		apiURL     string
		jsonOutput bool
		outputFile string
	)

	flag.StringVar(&batchFile, "batch", "", "Path to batch JSON file")
	flag.StringVar(&apiURL, "api", "http://127.0.0.1:8110", "Base URL of sircontrol-d API")
	flag.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	flag.StringVar(&outputFile, "out", "", "Write output to file instead of stdout")
	flag.Parse()

	var batch simulation.Batch

	if batchFile != "" {
		data, err := os.ReadFile(batchFile)
		if err != nil {
			log.Fatalf("Failed to read batch file: %v", err)
		}
		if err := json.Unmarshal(data, &batch); err != nil {
			log.Fatalf("Failed to parse batch file: %v", err)
		}
	} else {
		// Default batch: a baseline epidemic next to a lockdown variant.
		// The slow epidemic (R0 = 1.6) peaks near day 87, inside the
		// lockdown window, so the suppression invariant has teeth.
		fmt.Fprintln(os.Stderr, "No batch file provided, running default demo batch...")
		batch = simulation.Batch{
			Name:        "Default Demo",
			Description: "Baseline vs lockdown, sanity and suppression invariants",
			Workers:     2,
			Jobs: []simulation.JobConfig{
				{
					Name:  "baseline",
					Count: 3,
					Parameters: client.RunParameters{
						TransmissionRate: 0.16, RecoveryRate: 0.1,
						Population: 1000, InitialInfected: 2,
					},
				},
				{
					Name:  "lockdown",
					Count: 3,
					Parameters: client.RunParameters{
						TransmissionRate: 0.16, RecoveryRate: 0.1,
						Population: 1000, InitialInfected: 2,
						Scenario: "lockdown",
					},
				},
			},
			Invariants: []simulation.Invariant{
				{Metric: "error_rate", Condition: "==", Value: 0, Scope: "global"},
				{Metric: "conservation_drift", Condition: "<=", Value: 2, Scope: "baseline"},
				{Metric: "conservation_drift", Condition: "<=", Value: 2, Scope: "lockdown"},
				{Metric: "peak_ratio", Condition: "<=", Value: 0.9, Scope: "lockdown/baseline"},
			},
		}
	}

	result := simulation.RunBatch(batch, apiURL)

	writeReport(result, jsonOutput, outputFile)

	if !result.Success {
		os.Exit(1)
	}
}

func writeReport(res simulation.BatchResult, jsonFmt bool, filePath string) {
	var output []byte
	var err error

	if jsonFmt {
		output, err = json.MarshalIndent(res, "", "  ")
	} else {
		var buf bytes.Buffer
		buf.WriteString(fmt.Sprintf("\n--- Batch Report: %s ---\n", res.BatchName))
		buf.WriteString(fmt.Sprintf("Submitted: %d | Completed: %d | Errors: %d\n",
			res.TotalSubmitted, res.TotalCompleted, res.TotalErrors))

		for name, stats := range res.JobStats {
			buf.WriteString(fmt.Sprintf("Job %s: peak=%d (day %d) final=%d drift=%d\n",
				name, stats.PeakInfected, stats.PeakDay, stats.FinalInfected, stats.ConservationDrift))
		}

		if len(res.Invariants) > 0 {
			buf.WriteString("\nInvariants:\n")
			for _, inv := range res.Invariants {
				status := "FAIL"
				if inv.Passed {
					status = "PASS"
				}
				buf.WriteString(fmt.Sprintf("[%s] %s (%s): Expected %s, Got %s\n", status, inv.Metric, inv.Scope, inv.Expected, inv.Actual))
			}
		}
		output = buf.Bytes()
	}

	if err != nil {
		log.Fatalf("Failed to marshal report: %v", err)
	}

	if filePath != "" {
		if err := os.WriteFile(filePath, output, 0644); err != nil {
			log.Fatalf("Failed to write report to %s: %v", filePath, err)
		}
		fmt.Printf("Report written to %s\n", filePath)
	} else {
		fmt.Println(string(output))
	}
}
