// Command optimizectl runs a single optimize() call against a JSON
// request file and prints the resulting schedule, for batch/offline
// invocation and the spec's test scenarios (spec.md §6).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/schedcu/surgopt/internal/api"
	"github.com/schedcu/surgopt/internal/feasibility"
	"github.com/schedcu/surgopt/internal/optimizer"
	"github.com/schedcu/surgopt/internal/repository"
	"github.com/schedcu/surgopt/internal/repository/memory"
	"github.com/schedcu/surgopt/internal/repository/postgres"
)

const (
	exitSuccess            = 0
	exitConfigurationError = 1
	exitDataError          = 2
	exitOptimizationFailed = 3
	exitCancelled          = 4
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: optimizectl <request.json>")
		return exitConfigurationError
	}

	body, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "reading request file: %v\n", err)
		return exitConfigurationError
	}

	var req api.OptimizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		fmt.Fprintf(stderr, "parsing request file: %v\n", err)
		return exitConfigurationError
	}

	params, date, validationResult := req.ToParams()
	if !validationResult.IsValid() {
		fmt.Fprintln(stderr, validationResult.Summary())
		return exitConfigurationError
	}

	log := zap.NewNop().Sugar()
	refRepo, closeRepo, err := buildRepository()
	if err != nil {
		fmt.Fprintf(stderr, "configuring reference data repository: %v\n", err)
		return exitConfigurationError
	}
	defer closeRepo()

	ctx := context.Background()
	ref, err := refRepo.Load(ctx, date)
	if err != nil {
		fmt.Fprintf(stderr, "loading reference data: %v\n", err)
		return exitDataError
	}

	oracle := feasibility.New(ref, feasibility.Config{}, log)
	driver := optimizer.New(ref, oracle, rand.New(rand.NewSource(time.Now().UnixNano())))

	result, err := driver.Optimize(ctx, params, nil)
	if err != nil {
		fmt.Fprintf(stderr, "optimize: %v\n", err)
		return exitOptimizationFailed
	}
	if result.Reason == optimizer.TerminatedCancelled {
		return exitCancelled
	}
	if result.Reason == optimizer.TerminatedEmptyInitial || len(result.Best) == 0 {
		fmt.Fprintln(stderr, "optimizer produced no feasible solution")
		return exitOptimizationFailed
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "encoding result: %v\n", err)
		return exitDataError
	}
	fmt.Fprintln(stdout, string(encoded))
	return exitSuccess
}

func buildRepository() (repository.ReferenceDataRepository, func() error, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return memory.NewReferenceDataRepository(), func() error { return nil }, nil
	}
	db, err := postgres.New(dsn)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewReferenceDataRepository(db.DB), db.Close, nil
}
