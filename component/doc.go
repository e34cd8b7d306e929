// Package component manages the lifecycle of long-lived parts of a
// sparqlkit process, such as protocol clients.
//
// A Lazy builds its resource on Start and releases it on Stop. A Registry
// starts components in registration order, stops them in reverse and
// aggregates their health:
//
//	reg := component.NewRegistry()
//	_ = reg.Register(sparql.NewComponent("dbpedia", cfg))
//	if err := reg.Start(ctx); err != nil {
//		return err
//	}
//	defer reg.Stop(context.Background())
package component
