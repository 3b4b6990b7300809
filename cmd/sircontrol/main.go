package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hexperiment/sircontrol/pkg/client"
)

var (
	Version   = "v1.1.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const usage = `Usage: sircontrol <command> [flags]

Commands:
  run    Run a simulation and print its summary
  get    Fetch a run by id (full daily series)
  list   List registered runs, newest first

Environment:
  SIRCONTROL_API   daemon endpoint (default http://127.0.0.1:8110)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	api := client.NewClient(os.Getenv("SIRCONTROL_API"))
	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(ctx, api, os.Args[2:])
	case "get":
		err = cmdGet(ctx, api, os.Args[2:])
	case "list":
		err = cmdList(ctx, api)
	case "version":
		fmt.Printf("sircontrol %s (%s, built %s)\n", Version, Commit, BuildTime)
	default:
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Is sircontrol-d running?")
		os.Exit(1)
	}
}

func cmdRun(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	beta := fs.Float64("beta", 0.3, "transmission rate")
	gamma := fs.Float64("gamma", 0.1, "recovery rate")
	population := fs.Int("population", 1000, "population size")
	infected := fs.Int("infected", 10, "initially infected")
	scenario := fs.String("scenario", "", "intervention scenario: none|lockdown|vaccination")
	days := fs.Int("days", 0, "simulated days (default 365)")
	fs.Parse(args)

	run, err := api.RunSimulation(ctx, client.RunParameters{
		TransmissionRate: *beta,
		RecoveryRate:     *gamma,
		Population:       *population,
		InitialInfected:  *infected,
		Scenario:         *scenario,
		DurationDays:     *days,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Run:      %s\n", run.RunID)
	fmt.Printf("Status:   %s\n", run.Status)
	fmt.Printf("Scenario: %s\n", scenarioLabel(run.Parameters.Scenario))
	fmt.Printf("Duration: %d days\n", run.Parameters.DurationDays)
	if len(run.Series) > 0 {
		peak := run.Series[0]
		for _, pt := range run.Series {
			if pt.Infected > peak.Infected {
				peak = pt
			}
		}
		final := run.Series[len(run.Series)-1]
		fmt.Printf("Peak:     %d infected on day %d\n", peak.Infected, peak.Day)
		fmt.Printf("Final:    S=%d I=%d R=%d\n", final.Susceptible, final.Infected, final.Recovered)
	}
	return nil
}

func cmdGet(ctx context.Context, api *client.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: sircontrol get <run-id>")
	}

	run, err := api.GetSimulation(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Run %s (%s, scenario %s)\n", run.RunID, run.Status, scenarioLabel(run.Parameters.Scenario))
	if run.Error != "" {
		fmt.Printf("Error: %s\n", run.Error)
	}
	fmt.Println("day\tS\tI\tR")
	for _, pt := range run.Series {
		fmt.Printf("%d\t%d\t%d\t%d\n", pt.Day, pt.Susceptible, pt.Infected, pt.Recovered)
	}
	return nil
}

func cmdList(ctx context.Context, api *client.Client) error {
	summaries, err := api.ListSimulations(ctx)
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Println("No runs registered.")
		return nil
	}

	fmt.Printf("%-36s  %-9s  %-11s  %5s  %s\n", "RUN", "STATUS", "SCENARIO", "DAYS", "CREATED")
	for _, sum := range summaries {
		fmt.Printf("%-36s  %-9s  %-11s  %5d  %s\n",
			sum.RunID,
			sum.Status,
			scenarioLabel(sum.Parameters.Scenario),
			sum.Parameters.DurationDays,
			sum.CreatedAt.Local().Format(time.RFC3339),
		)
	}
	return nil
}

func scenarioLabel(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}
