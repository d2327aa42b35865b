package health_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/counterhealth/health"
)

func ExampleWorst() {
	fmt.Println(health.Worst(health.StatusHealthy, health.StatusDegraded))
	fmt.Println(health.Worst(health.StatusDegraded, health.StatusUnhealthy, health.StatusHealthy))
	fmt.Println(health.Worst())
	// Output:
	// degraded
	// unhealthy
	// healthy
}

func ExampleNewAggregator() {
	agg := health.NewAggregator()
	agg.Register("database", health.NewCheckerFunc("database", func(ctx context.Context) health.Result {
		return health.Healthy("connected")
	}))
	agg.Register("cache", health.NewCheckerFunc("cache", func(ctx context.Context) health.Result {
		return health.Degraded("high latency")
	}))

	results := agg.CheckAll(context.Background())

	fmt.Println("Checkers:", agg.CheckerNames())
	fmt.Println("database:", results["database"].Status)
	fmt.Println("cache:", results["cache"].Description)
	// Output:
	// Checkers: [database cache]
	// database: healthy
	// cache: high latency
}

func ExampleAggregator_OverallStatus() {
	agg := health.NewAggregator()

	results := map[string]health.Result{
		"api":     health.Healthy("ok"),
		"queue":   health.Degraded("backlog growing"),
		"storage": health.Healthy("ok"),
	}
	fmt.Println("Overall:", agg.OverallStatus(results))

	results["storage"] = health.Unhealthy("disk full", nil)
	fmt.Println("Overall:", agg.OverallStatus(results))
	// Output:
	// Overall: degraded
	// Overall: unhealthy
}

func ExampleResult_WithData() {
	result := health.Degraded("").WithData(map[string]any{
		"cpu-usage": "current=85, degraded=80, unhealthy=95",
	})

	fmt.Println(result.Status)
	fmt.Println(result.Data["cpu-usage"])
	// Output:
	// degraded
	// current=85, degraded=80, unhealthy=95
}
