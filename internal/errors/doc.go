// Package errors provides coded, structured errors for the vango runtime.
//
// Every fault the runtime can surface to a host has a stable code (e.g. "E001")
// registered with a category, a short message and a longer explanation. Codes
// let hosts and tooling match on a failure without parsing message strings.
//
// # Error Categories
//
//   - runtime: scope, hook and diff faults raised while rendering
//   - task: failures of asynchronous work spawned by scopes
//   - protocol: malformed frames exchanged with a renderer
//   - config: invalid project configuration
//   - cli: command line usage problems
//
// # Usage
//
//	err := errors.New("E001").
//	    WithComponent("TodoList").
//	    WithSuggestion("Call hooks unconditionally at the top of the render function")
//
//	fmt.Println(err.Format())
//	// ERROR E001: Hook order changed between renders
//	//
//	//   in component TodoList
//	//   ...
package errors
