// Package render turns mutation streams into something a person or a browser
// can look at.
//
// Document is a MutationSink that keeps an in-memory node tree, applying
// every edit with the stack semantics a browser client uses. It backs the
// headless CLI, the test harness, and the snapshot the server embeds in the
// host page. Renderer writes a Document (or any node in it) as HTML:
//
//	doc := render.NewDocument()
//	rt.Rebuild(doc)
//	fmt.Println(render.HTML(doc.Root()))
//
// Placeholders render as an HTML comment so that empty slots stay visible in
// snapshots.
package render
