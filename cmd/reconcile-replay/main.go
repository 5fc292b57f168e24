package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/agasretail/erpsync_backend/config"
	"bitbucket.org/agasretail/erpsync_backend/hrdir"
	"bitbucket.org/agasretail/erpsync_backend/models"
	"bitbucket.org/agasretail/erpsync_backend/utils"
	"bitbucket.org/agasretail/erpsync_backend/workflow"
)

// stringList collects repeatable --order flags.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }
func (l *stringList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var orders stringList
	flag.Var(&orders, "order", "Order code to replay (repeatable)")
	fromStr := flag.String("from", "", "Replay orders with sale lines created from this date (YYYY-MM-DD)")
	toStr := flag.String("to", "", "Replay orders with sale lines created before this date (YYYY-MM-DD, exclusive)")
	printLines := flag.Bool("print-lines", false, "Print derived invoice lines as JSON instead of a summary")
	strict := flag.Bool("strict", false, "Exit non-zero if any order fails")
	flag.Parse()

	if len(orders) == 0 && (strings.TrimSpace(*fromStr) == "" || strings.TrimSpace(*toStr) == "") {
		fmt.Fprintln(os.Stderr, "either --order or both --from and --to are required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	// Redis is optional here: without it the catalog cache is skipped and
	// the live-traffic gate is off, but replays still work DB-only.
	useLock := strings.TrimSpace(os.Getenv("REDIS_ADDRESS")) != ""
	if useLock {
		config.ConnectRedisWithRetry()
	}

	ctx := context.Background()

	codes := []string(orders)
	if len(codes) == 0 {
		from, err := time.Parse("2006-01-02", strings.TrimSpace(*fromStr))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid from date: %v\n", err)
			os.Exit(1)
		}
		to, err := time.Parse("2006-01-02", strings.TrimSpace(*toStr))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid to date: %v\n", err)
			os.Exit(1)
		}
		codes, err = models.ListOrderCodesByDateRange(ctx, from, to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "discover orders: %v\n", err)
			os.Exit(1)
		}
	}

	var employees workflow.EmployeeDirectory
	if dir, err := hrdir.NewDirectory(); err != nil {
		fmt.Fprintf(os.Stderr, "employee directory disabled: %v\n", err)
	} else {
		employees = dir
	}

	var failed []string
	for _, orderCode := range codes {
		// Best-effort gate: skip orders a live instance is reconciling
		// right now. Replays are read-only, so overlap is never unsafe.
		if useLock {
			if err := utils.OrderLock(ctx, orderCode, "lock", "Main.go", "main"); err != nil {
				fmt.Fprintf(os.Stderr, "replay %s: %v (skipping)\n", orderCode, err)
				failed = append(failed, orderCode)
				continue
			}
		}

		lines, err := workflow.ReconcileOrder(ctx, orderCode, employees)
		if err != nil {
			fmt.Fprintf(os.Stderr, "replay %s: %v\n", orderCode, err)
			failed = append(failed, orderCode)
			continue
		}

		if *printLines {
			payload, err := json.Marshal(map[string]interface{}{
				"order_code": orderCode,
				"lines":      lines,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "replay %s: marshal: %v\n", orderCode, err)
				failed = append(failed, orderCode)
				continue
			}
			fmt.Println(string(payload))
			continue
		}

		var matched, synthetic, passThrough int
		for _, line := range lines {
			switch line.Provenance {
			case models.ProvenanceMatched:
				matched++
			case models.ProvenanceSynthetic:
				synthetic++
			case models.ProvenancePassThrough:
				passThrough++
			}
		}
		fmt.Printf("replayed %s: lines=%d matched=%d synthetic=%d pass_through=%d\n",
			orderCode, len(lines), matched, synthetic, passThrough)
	}

	fmt.Printf("reconcile replay complete: %d orders, %d failed\n", len(codes), len(failed))
	if *strict && len(failed) > 0 {
		os.Exit(1)
	}
}
