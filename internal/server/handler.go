package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/san-kum/sortviz/internal/config"
	"github.com/san-kum/sortviz/internal/loader"
)

const defaultMaxSize = 1 << 16

// Options configures the HTTP handler.
type Options struct {
	Catalog *config.Catalog
	Loader  *loader.Loader
	Logger  *zap.Logger

	// Width and Height are the size of the streamed frames in pixels.
	Width, Height int
	// FPS bounds the number of frames streamed per second.
	FPS int
	// MaxSize is the largest array a client may ask for.
	MaxSize int
}

type Handler struct {
	opts Options
}

func NewHandler(opts Options) *Handler {
	if opts.Catalog == nil {
		opts.Catalog = config.DefaultCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Loader == nil {
		l, err := loader.New(loader.DefaultConfig(), opts.Logger)
		if err != nil {
			panic(err)
		}
		opts.Loader = l
	}
	if opts.Width <= 0 {
		opts.Width = config.DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = config.DefaultHeight
	}
	if opts.FPS <= 0 {
		opts.FPS = config.DefaultFPS
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = defaultMaxSize
	}
	return &Handler{opts: opts}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /presets", h.handlePresets)
	mux.HandleFunc("GET /ws", h.handleWS)
	return mux
}

type presetView struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Code string `json:"code"`
	Size int    `json:"size"`
	Skip int    `json:"skip"`
}

func (h *Handler) handlePresets(w http.ResponseWriter, r *http.Request) {
	presets := h.opts.Catalog.All()
	out := make([]presetView, len(presets))
	for i, p := range presets {
		out[i] = presetView{Name: p.Name, Slug: p.Slug(), Code: p.Code, Size: p.Size, Skip: p.Skip}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		h.opts.Logger.Warn("encode presets", zap.Error(err))
	}
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

// resolve builds the preset a start request asks for.
func (h *Handler) resolve(in inbound) (config.Preset, error) {
	var p config.Preset
	switch {
	case in.Preset != "":
		found := h.opts.Catalog.Get(in.Preset)
		if found == nil {
			return p, fmt.Errorf("unknown preset %q", in.Preset)
		}
		p = *found
	case in.Code != "":
		p = config.Preset{Name: "Custom", Size: 1024, Skip: 1}
	default:
		return p, fmt.Errorf("preset or code is required")
	}
	if in.Code != "" {
		p.Code = in.Code
	}
	if in.Size > 0 {
		p.Size = in.Size
	}
	if in.Skip > 0 {
		p.Skip = in.Skip
	}
	if p.Size > h.opts.MaxSize {
		return p, fmt.Errorf("size %d exceeds the limit of %d", p.Size, h.opts.MaxSize)
	}
	return p, p.Validate()
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>sortviz</title>
<style>
body { background: #0a0a0a; color: #ddd; font-family: monospace; margin: 2em; }
img { image-rendering: pixelated; border: 1px solid #444466; }
button, select { background: #1a1a2a; color: #ddd; border: 1px solid #444466; padding: 4px 10px; }
#status { margin-top: 1em; }
</style>
</head>
<body>
<div>
<select id="preset"></select>
<button id="start">Start</button>
<button id="cancel">Cancel</button>
</div>
<p><img id="frame" width="512" height="512" alt=""></p>
<div id="status">connecting</div>
<script>
const status = document.getElementById("status");
const frame = document.getElementById("frame");
const select = document.getElementById("preset");
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.binaryType = "blob";
let last = null;

fetch("/presets").then(r => r.json()).then(list => {
  for (const p of list) {
    const opt = document.createElement("option");
    opt.value = p.slug;
    opt.textContent = p.name;
    select.appendChild(opt);
  }
});

ws.onopen = () => { status.textContent = "ready"; };
ws.onclose = () => { status.textContent = "disconnected"; };
ws.onmessage = (ev) => {
  if (ev.data instanceof Blob) {
    const url = URL.createObjectURL(ev.data);
    frame.src = url;
    if (last) URL.revokeObjectURL(last);
    last = url;
    return;
  }
  const msg = JSON.parse(ev.data);
  if (msg.type === "started") status.textContent = "running " + msg.preset;
  if (msg.type === "done") status.textContent = msg.outcome + (msg.error ? ": " + msg.error : "");
  if (msg.type === "error") status.textContent = "error: " + msg.error;
};

document.getElementById("start").onclick = () => ws.send(JSON.stringify({ type: "start", preset: select.value }));
document.getElementById("cancel").onclick = () => ws.send(JSON.stringify({ type: "cancel" }));
</script>
</body>
</html>
`
