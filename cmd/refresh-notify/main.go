// Command refresh-notify tells running overlay servers that a data feed has a
// new version, optionally naming identifiers whose cached details are stale.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mohammed-shakir/county-overlay/internal/core/config"
	"github.com/mohammed-shakir/county-overlay/internal/refresh"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.LoadDotEnv(""); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg := config.FromEnv()

	dataset := flag.String("dataset", cfg.Refresh.Dataset, "dataset name carried by the event")
	seq := flag.Uint64("seq", uint64(time.Now().Unix()), "monotonically increasing version of the dataset")
	ids := flag.String("ids", "", "comma-separated identifiers whose detail changed")
	flag.Parse()

	if *dataset == "" {
		*dataset = "default"
	}
	var idList []string
	for id := range strings.SplitSeq(*ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			idList = append(idList, id)
		}
	}

	n, err := refresh.NewNotifier(cfg.KafkaBrokers, cfg.Refresh.Topic)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kafka:", err)
		return 1
	}
	defer func() { _ = n.Close() }()

	part, off, err := n.Notify(*dataset, *seq, idList...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "notify:", err)
		return 1
	}
	fmt.Printf("refresh %s seq=%d sent to %s partition=%d offset=%d\n", *dataset, *seq, cfg.Refresh.Topic, part, off)
	return 0
}
