// Command routectl runs the itinerary optimizer once and prints the result
// as JSON. Each positional argument is one day, places separated by commas:
//
//	routectl -home "Hotel X" "Marina Beach,Fort St. George" "Mahabalipuram"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/exson6969/xplorer/engine/graph"
	"github.com/exson6969/xplorer/engine/route"
)

func main() {
	var (
		neo4jURL  = flag.String("neo4j", "neo4j://localhost:7687", "Neo4j bolt URL")
		neo4jUser = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass = flag.String("neo4j-pass", "password", "Neo4j password")
		homeBase  = flag.String("home", "", "home base hotel, start and end of every day")
		pretty    = flag.Bool("pretty", true, "indent the JSON output")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	days := parseDays(flag.Args())
	if len(days) == 0 && *homeBase == "" {
		log.Error("usage: routectl [flags] \"place,place,...\" [\"place,...\"]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*neo4jUser, *neo4jPass, ""))
	if err != nil {
		log.Error("neo4j connect failed", "error", err)
		os.Exit(1)
	}
	defer driver.Close(ctx)

	optimizer := route.New(graph.New(driver), log)
	bundle := optimizer.Optimize(ctx, days, *homeBase)

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(bundle); err != nil {
		log.Error("encode failed", "error", err)
		os.Exit(1)
	}
	if bundle.Status == route.StatusFailed {
		os.Exit(1)
	}
}

// parseDays splits each argument on commas into one day's place list.
func parseDays(args []string) [][]string {
	var days [][]string
	for _, arg := range args {
		var day []string
		for _, name := range strings.Split(arg, ",") {
			if name = strings.TrimSpace(name); name != "" {
				day = append(day, name)
			}
		}
		days = append(days, day)
	}
	return days
}
