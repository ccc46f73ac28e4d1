package render

import (
	"fmt"
	"io"
)

// PageData describes the host page a liveview session is served in.
type PageData struct {
	// Title is the page title.
	Title string

	// Lang is the html lang attribute. Defaults to "en".
	Lang string

	// Body is a snapshot of the application, rendered inside the mount
	// container so the page has content before the socket connects. May be
	// nil.
	Body *Node

	// SocketPath is the websocket endpoint the client script connects to.
	SocketPath string

	// Codec is announced to the client in the handshake ("binary" or "cbor").
	Codec string

	// ClientScript is the path of the client script. Defaults to
	// "/_vango/client.js".
	ClientScript string

	// StyleSheets are linked in the head.
	StyleSheets []string
}

// MountElement is the id attribute of the container the runtime's root
// element maps to.
const MountElement = "vango-root"

// RenderPage writes the host page.
func (r *Renderer) RenderPage(w io.Writer, page PageData) error {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}
	script := page.ClientScript
	if script == "" {
		script = "/_vango/client.js"
	}

	ew := &errWriter{w: w}
	ew.str("<!DOCTYPE html>\n")
	ew.str(fmt.Sprintf(`<html lang="%s">`+"\n", escapeAttr(lang)))
	ew.str("<head>\n")
	ew.str(`<meta charset="utf-8">` + "\n")
	ew.str(`<meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")
	if page.Title != "" {
		ew.str("<title>" + escapeHTML(page.Title) + "</title>\n")
	}
	for _, href := range page.StyleSheets {
		ew.str(`<link rel="stylesheet" href="` + escapeAttr(href) + `">` + "\n")
	}
	ew.str("</head>\n<body>\n")

	ew.str(fmt.Sprintf(`<main id="%s" data-socket="%s" data-codec="%s">`,
		MountElement, escapeAttr(page.SocketPath), escapeAttr(page.Codec)))
	if page.Body != nil {
		if ew.err == nil {
			ew.err = r.WriteChildren(w, page.Body)
		}
	}
	ew.str("</main>\n")

	ew.str(`<script src="` + escapeAttr(script) + `" defer></script>` + "\n")
	ew.str("</body>\n</html>\n")
	return ew.err
}
