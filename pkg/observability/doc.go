/*
Package observability turns engine lifecycle hooks into logs and Prometheus metrics.

Both helpers return domain.LifecycleHooks, so they compose with each other and with
caller hooks through the engine's WithLifecycleHooks option:

	metrics, _ := observability.NewMetrics(prometheus.NewRegistry())
	eng, _ := storyweave.New(graph,
		storyweave.WithLifecycleHooks(metrics.Hooks()),
		storyweave.WithLifecycleHooks(observability.LogHooks(logger)),
	)
*/
package observability
