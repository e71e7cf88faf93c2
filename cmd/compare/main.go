package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/ammeterqa/ammqa/pkg/report"
)

func main() {
	var (
		resultsDir string
		deviceType string
		from       string
		to         string
	)
	pflag.StringVar(&resultsDir, "results", "results", "results directory to scan")
	pflag.StringVarP(&deviceType, "device", "d", "", "filter by device type")
	pflag.StringVar(&from, "from", "", "only include runs starting on or after this date (2006-01-02)")
	pflag.StringVar(&to, "to", "", "only include runs starting on or before this date (2006-01-02)")
	pflag.Parse()

	filter := report.Filter{DeviceType: deviceType}
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			fmt.Printf("Unrecognized --from date: %s\n", from)
			os.Exit(1)
		}
		filter.From = t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			fmt.Printf("Unrecognized --to date: %s\n", to)
			os.Exit(1)
		}
		// inclusive end of day
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}

	store, err := report.NewStore(resultsDir)
	if err != nil {
		fmt.Printf("Could not open results store: %s\n", err)
		os.Exit(1)
	}
	records, err := store.Find(filter)
	if err != nil {
		fmt.Printf("Could not scan results: %s\n", err)
		os.Exit(1)
	}

	fmt.Println(report.Summary(records))
}
