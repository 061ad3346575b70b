package pptdeck

import (
	"bytes"
	"html/template"

	"github.com/connctd/pptdeck/internal/store"
)

var indexTmpl = `
[[ define "index" ]]
<html>
	<head>
		<title>[[ .Title ]]</title>
	</head>
	<body>
		<h1>[[ .Title ]]</h1>
		[[ if .Error ]]
		<p class="error">Last build failed: [[ .Error ]]</p>
		[[ end ]]
		[[ if .HasDeck ]]
		<p><a href="/deck.pptx">Download [[ .FileName ]]</a> ([[ .SlideCount ]] slides)</p>
		[[ end ]]
		[[ if .Decks ]]
		<h2>Generated decks</h2>
		<ul>
		[[ range .Decks ]]
			<li><a href="/download/[[ .ID ]]">[[ .Name ]]</a> ([[ .SlideCount ]] slides)</li>
		[[ end ]]
		</ul>
		[[ end ]]
		<footer>pptdeck [[ .Version ]]</footer>
		[[ template "livereload" ]]
	</body>
</html>
[[ end ]]
`

var livereloadTmpl = `
[[ define "livereload" ]]
<script>
	(function() {
		var proto = location.protocol === "https:" ? "wss://" : "ws://";
		var ws = new WebSocket(proto + location.host + "/livereload");
		ws.onmessage = function(evt) {
			if (evt.data === "Reload") {
				location.reload();
			}
		};
	})();
</script>
[[ end ]]
`

type indexPage struct {
	Title      string
	Version    string
	HasDeck    bool
	FileName   string
	SlideCount int
	Error      string
	Decks      []*store.Record
}

func indexRenderer() *template.Template {
	var err error
	tmpl := template.New("index")
	tmpl.Delims("[[", "]]")
	for _, tmplStr := range []string{indexTmpl, livereloadTmpl} {
		tmpl, err = tmpl.Parse(tmplStr)
		if err != nil {
			panic(err)
		}
	}
	return tmpl
}

func renderIndex(page *indexPage) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := indexRenderer().ExecuteTemplate(buf, "index", page)
	return buf.Bytes(), err
}
