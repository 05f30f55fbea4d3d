// Package backend aggregates tools from heterogeneous providers into one
// principal-scoped registry.
//
// A backend is described by a Descriptor and reached through a Provider:
//
//   - Local: in-process operations built by a factory registered in a
//     FactoryTable (see backend/local and the providers packages)
//   - Remote: MCP servers reached over stdio, SSE, or streamable HTTP
//     (see backend/remote)
//
// # Tool IDs
//
// Every tool is addressed as "<backend>.<name>". Backend names may not
// contain a dot; tool names may. Use FormatToolID and ParseToolID.
//
// # Aggregation
//
// The Aggregator lists descriptors from a Source, keeps those that are
// enabled and allowed for the principal, builds their providers
// concurrently, and registers their tools into a fresh ToolRegistry:
//
//	agg, err := backend.NewAggregator(backend.Config{
//	    Source:    src,
//	    Connector: remote.NewConnector(),
//	})
//	session, err := agg.Aggregate(ctx, backend.Principal{UserID: "alice", Role: "admin"})
//	defer session.Close()
//
//	result, err := session.Call(ctx, "hr.get_policy", map[string]any{"country": "DE"})
//
// Backends that cannot be built are reported in Session.Failures and do not
// fail the aggregation. Two providers exposing the same tool id do.
//
// # Authorization
//
// IsAllowed applies a descriptor's RequiredRoles (any-of, case-insensitive)
// and AllowedUsers (exact) to a Principal. Empty sets are unrestricted.
package backend
