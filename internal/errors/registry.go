package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (E001-E099)
	// ============================================

	"E001": {
		Category: CategoryRuntime,
		Message:  "Hook order changed between renders",
		Detail:   "Hooks are stored by call order. A component must call the same hooks in the same order on every render; conditional or looped hook calls break this contract.",
		DocURL:   "https://vango.dev/docs/errors/E001",
	},
	"E002": {
		Category: CategoryRuntime,
		Message:  "Context value not found",
		Detail:   "No ancestor scope provides a value of the requested type. Provide it with ProvideContext in an ancestor or with WithRootContext when creating the runtime.",
		DocURL:   "https://vango.dev/docs/errors/E002",
	},
	"E004": {
		Category: CategoryRuntime,
		Message:  "Unhandled render fault",
		Detail:   "A component failed to render and no error boundary encloses it. The runtime has stopped because its tree can no longer be trusted.",
		DocURL:   "https://vango.dev/docs/errors/E004",
	},
	"E005": {
		Category: CategoryRuntime,
		Message:  "Diff invariant violated",
		Detail:   "The diff engine found a node in a state it cannot reconcile, such as a node that was never mounted or a list mixing keyed and unkeyed siblings.",
		DocURL:   "https://vango.dev/docs/errors/E005",
	},
	"E006": {
		Category: CategoryRuntime,
		Message:  "Component panicked",
		Detail:   "The render function or an event listener panicked. The panic was recovered and routed to the nearest error boundary.",
		DocURL:   "https://vango.dev/docs/errors/E006",
	},
	"E007": {
		Category: CategoryRuntime,
		Message:  "Runtime terminated",
		Detail:   "The runtime hit a fatal fault or was closed. Create a new runtime to continue.",
		DocURL:   "https://vango.dev/docs/errors/E007",
	},
	"E008": {
		Category: CategoryRuntime,
		Message:  "Render did not converge",
		Detail:   "Rendering kept marking scopes dirty past the configured pass limit. A component is probably writing state on every render.",
		DocURL:   "https://vango.dev/docs/errors/E008",
	},

	// ============================================
	// Task Errors (E020-E039)
	// ============================================

	"E020": {
		Category: CategoryTask,
		Message:  "Task panicked",
		Detail:   "A spawned task panicked. The panic was recovered and reported as the task's error.",
		DocURL:   "https://vango.dev/docs/errors/E020",
	},
	"E021": {
		Category: CategoryTask,
		Message:  "Task cancelled",
		Detail:   "The scope that owned the task was unmounted before the task finished.",
		DocURL:   "https://vango.dev/docs/errors/E021",
	},

	// ============================================
	// Protocol Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryProtocol,
		Message:  "Malformed frame",
		Detail:   "A frame could not be decoded. The peer may be using an incompatible protocol version.",
		DocURL:   "https://vango.dev/docs/errors/E060",
	},
	"E061": {
		Category: CategoryProtocol,
		Message:  "Unknown mutation opcode",
		Detail:   "The mutation batch contains an opcode this decoder does not understand.",
		DocURL:   "https://vango.dev/docs/errors/E061",
	},
	"E062": {
		Category: CategoryProtocol,
		Message:  "Unknown template",
		Detail:   "A LoadTemplate edit referenced a template that was never sent on this connection.",
		DocURL:   "https://vango.dev/docs/errors/E062",
	},
	"E063": {
		Category: CategoryProtocol,
		Message:  "Unsupported codec",
		Detail:   "The requested wire codec is not available. Supported codecs are binary and cbor.",
		DocURL:   "https://vango.dev/docs/errors/E063",
	},

	"E064": {
		Category: CategoryProtocol,
		Message:  "Protocol version mismatch",
		Detail:   "The client speaks a different major protocol version than this server. Reload the page to fetch a matching client.",
		DocURL:   "https://vango.dev/docs/errors/E064",
	},
	"E065": {
		Category: CategoryProtocol,
		Message:  "Unexpected frame",
		Detail:   "The peer sent a frame type that is not valid at this point of the connection, such as an event before the handshake.",
		DocURL:   "https://vango.dev/docs/errors/E065",
	},

	// ============================================
	// Session Errors (E080-E099)
	// ============================================

	"E080": {
		Category: CategorySession,
		Message:  "Session limit reached",
		Detail:   "The server is already hosting its configured maximum number of sessions.",
		DocURL:   "https://vango.dev/docs/errors/E080",
	},
	"E081": {
		Category: CategorySession,
		Message:  "Event queue full",
		Detail:   "The client sent events faster than the session could render them. The event was dropped.",
		DocURL:   "https://vango.dev/docs/errors/E081",
	},

	// ============================================
	// Config Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "vango.json or vango.yaml could not be parsed.",
		DocURL:   "https://vango.dev/docs/errors/E100",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration field has a value outside its allowed range.",
		DocURL:   "https://vango.dev/docs/errors/E101",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No vango.json or vango.yaml exists at the given location.",
		DocURL:   "https://vango.dev/docs/errors/E102",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Invalid scripted event",
		Detail:   "Scripted events use the form name:elementID, for example click:4.",
		DocURL:   "https://vango.dev/docs/errors/E140",
	},
}

// Lookup returns the template for a code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
