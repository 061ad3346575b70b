package pptdeck

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/connctd/pptdeck/internal/store"
	"github.com/connctd/pptdeck/pptx"
)

var (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second

	maxRequestBytes int64 = 10 << 20
)

type ServerOptions struct {
	Addr string
	// DeckPath is the deck served at /deck.pptx and rebuilt by Rerender.
	// It may be empty.
	DeckPath       string
	Builder        *Builder
	Store          *store.Store
	AllowedOrigins []string
	Log            logrus.FieldLogger
}

type PresentationServer struct {
	opts       ServerOptions
	log        logrus.FieldLogger
	ctx        context.Context
	httpServer *http.Server
	router     *mux.Router
	wsUpgrader websocket.Upgrader

	deckBytes  []byte
	deckName   string
	deckSlides int
	deckErr    error
	deckLock   *sync.Mutex

	livereloadConns map[*websocket.Conn]context.CancelFunc
	connLock        *sync.Mutex
	// writeLock serializes reload broadcasts, a connection takes one writer
	// at a time.
	writeLock *sync.Mutex
}

func NewPresentationServer(ctx context.Context, opts ServerOptions) (*PresentationServer, error) {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Builder == nil {
		opts.Builder = NewBuilder(DefaultConfig(), opts.Log)
	}

	p := &PresentationServer{
		opts:            opts,
		log:             opts.Log,
		ctx:             ctx,
		deckLock:        &sync.Mutex{},
		connLock:        &sync.Mutex{},
		writeLock:       &sync.Mutex{},
		wsUpgrader:      websocket.Upgrader{CheckOrigin: opts.checkOrigin},
		livereloadConns: make(map[*websocket.Conn]context.CancelFunc),
	}

	if err := p.Rerender(); err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.HandleFunc("/", p.serveIndex).Methods(http.MethodGet)
	r.HandleFunc("/health", p.health).Methods(http.MethodGet)
	r.HandleFunc("/generate-ppt", p.generate).Methods(http.MethodPost)
	r.HandleFunc("/generate-ppt/", p.generate).Methods(http.MethodPost)
	r.HandleFunc("/download/{id}", p.download).Methods(http.MethodGet)
	r.HandleFunc("/decks", p.listDecks).Methods(http.MethodGet)
	r.HandleFunc("/deck.pptx", p.serveDeck).Methods(http.MethodGet)
	r.HandleFunc("/livereload", p.livereloadHandler)
	p.router = r

	p.httpServer = &http.Server{
		Addr:    opts.Addr,
		Handler: p.Handler(),
	}
	return p, nil
}

// Handler returns the routes wrapped in CORS and request logging.
func (p *PresentationServer) Handler() http.Handler {
	return requestLogger(p.log, cors(p.opts.AllowedOrigins, p.router))
}

func (p *PresentationServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateResponse struct {
	Message     string `json:"message"`
	OutputFile  string `json:"output_file"`
	SlidesCount int    `json:"slides_count"`
	PPTID       string `json:"ppt_id,omitempty"`
}

// generate builds the posted slides. Without a store the presentation is
// returned as the response body.
func (p *PresentationServer) generate(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("no slides provided"))
		return
	}
	deck, err := DecodeSlides(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	data, err := p.opts.Builder.BuildBytes(r.Context(), deck)
	if err != nil {
		p.log.WithError(err).Error("Failed to build presentation")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	name := deck.FileName()

	if p.opts.Store == nil {
		writePresentation(w, name, data)
		return
	}
	rec, err := p.opts.Store.Put(r.Context(), name, len(deck.Slides), data)
	if err != nil {
		p.log.WithError(err).Error("Failed to store presentation")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	p.log.WithFields(logrus.Fields{"ppt_id": rec.ID, "output": name}).Info("Final PPT created")
	writeJSON(w, http.StatusOK, &generateResponse{
		Message:     "PPT generated successfully",
		OutputFile:  name,
		SlidesCount: len(deck.Slides),
		PPTID:       rec.ID,
	})
}

func (p *PresentationServer) download(w http.ResponseWriter, r *http.Request) {
	if p.opts.Store == nil {
		writeError(w, http.StatusNotFound, store.ErrNotFound)
		return
	}
	rec, data, err := p.opts.Store.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	etag := `"` + rec.Checksum + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writePresentation(w, rec.Name, data)
}

func (p *PresentationServer) listDecks(w http.ResponseWriter, r *http.Request) {
	records := []*store.Record{}
	if p.opts.Store != nil {
		var err error
		if records, err = p.opts.Store.List(r.Context(), 100); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, records)
}

func (p *PresentationServer) serveDeck(w http.ResponseWriter, r *http.Request) {
	p.deckLock.Lock()
	data, name := p.deckBytes, p.deckName
	p.deckLock.Unlock()

	if data == nil {
		writeError(w, http.StatusNotFound, errors.New("no deck is being watched"))
		return
	}
	writePresentation(w, name, data)
}

func (p *PresentationServer) serveIndex(w http.ResponseWriter, r *http.Request) {
	page := &indexPage{Title: "pptdeck", Version: Version}

	p.deckLock.Lock()
	if p.deckBytes != nil {
		page.HasDeck = true
		page.FileName = p.deckName
		page.SlideCount = p.deckSlides
	}
	if p.deckErr != nil {
		page.Error = p.deckErr.Error()
	}
	p.deckLock.Unlock()

	if p.opts.Store != nil {
		decks, err := p.opts.Store.List(r.Context(), 20)
		if err != nil {
			p.log.WithError(err).Warn("Could not list decks")
		}
		page.Decks = decks
	}

	out, err := renderIndex(page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(out)
}

func (p *PresentationServer) livereloadHandler(w http.ResponseWriter, r *http.Request) {
	ws, err := p.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(p.ctx)
	p.connLock.Lock()
	p.livereloadConns[ws] = cancel
	p.connLock.Unlock()

	go p.ping(ctx, ws)
	go p.discardIncoming(ws)
}

func (p *PresentationServer) ping(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer p.dropConn(ws)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				p.log.WithError(err).Debug("Livereload ping failed")
				return
			}
		}
	}
}

// discardIncoming reads until the client goes away so that close frames
// and pongs are processed.
func (p *PresentationServer) discardIncoming(ws *websocket.Conn) {
	for {
		if _, _, err := ws.NextReader(); err != nil {
			p.dropConn(ws)
			return
		}
	}
}

func (p *PresentationServer) dropConn(ws *websocket.Conn) {
	p.connLock.Lock()
	cancel, ok := p.livereloadConns[ws]
	delete(p.livereloadConns, ws)
	p.connLock.Unlock()
	if ok {
		cancel()
		ws.Close()
	}
}

func (p *PresentationServer) connectionCount() int {
	p.connLock.Lock()
	defer p.connLock.Unlock()
	return len(p.livereloadConns)
}

// Rerender rebuilds the watched deck and tells every live reload client to
// reload. A failed build keeps the previous presentation and is reported
// on the index page.
func (p *PresentationServer) Rerender() (err error) {
	if p.opts.DeckPath == "" {
		return nil
	}

	deck, err := LoadDeck(p.opts.DeckPath)
	var data []byte
	if err == nil {
		data, err = p.opts.Builder.BuildBytes(p.ctx, deck)
	}

	p.deckLock.Lock()
	p.deckErr = err
	if err == nil {
		p.deckBytes = data
		p.deckName = deck.FileName()
		p.deckSlides = len(deck.Slides)
	}
	p.deckLock.Unlock()

	if err != nil {
		p.log.WithError(err).WithField("deck", p.opts.DeckPath).Error("Failed to build deck")
	} else {
		p.log.WithField("deck", p.opts.DeckPath).Info("Deck rebuilt")
	}

	p.connLock.Lock()
	conns := make([]*websocket.Conn, 0, len(p.livereloadConns))
	for ws := range p.livereloadConns {
		conns = append(conns, ws)
	}
	p.connLock.Unlock()

	go func() {
		p.writeLock.Lock()
		defer p.writeLock.Unlock()
		for _, ws := range conns {
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, []byte(`Reload`)); err != nil {
				p.dropConn(ws)
			}
		}
	}()
	return
}

func (p *PresentationServer) Close() error {
	ctx, cancel := context.WithTimeout(p.ctx, time.Second*15)
	defer cancel()

	p.connLock.Lock()
	conns := make([]*websocket.Conn, 0, len(p.livereloadConns))
	for ws := range p.livereloadConns {
		conns = append(conns, ws)
	}
	p.connLock.Unlock()
	for _, ws := range conns {
		p.dropConn(ws)
	}
	return p.httpServer.Shutdown(ctx)
}

func (p *PresentationServer) Run() {
	go func() {
		if err := p.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.WithError(err).Error("HTTP server stopped")
		}
	}()
}

func (o ServerOptions) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	return originAllowed(o.AllowedOrigins, origin)
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func cors(allowed []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && originAllowed(allowed, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the live reload websocket upgrade through the logger.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func writePresentation(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", pptx.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
