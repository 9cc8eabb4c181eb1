package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
)

// Dashboard serves a single observational page over websocket, reporting
// each round's per-method outcomes as they are published. It is never on
// the training critical path (§6.4): Publish drops a snapshot rather than
// block the caller when nothing is ready to receive it.
//
// Serving a single page to a single client mirrors the teacher's
// server.Server; the one addition grounded on the wider example pack is
// the /methods/{method} drill-down route, served with gorilla/mux rather
// than the teacher's bare net/http, since mux gives path-parameter
// extraction the stdlib mux does not.
type Dashboard struct {
	addr   string
	inbox  chan Snapshot
	view   ViewComponent

	mu     sync.Mutex
	latest map[string]MethodRow
	router *mux.Router
}

// NewDashboard builds the view pipeline and returns a Dashboard ready to Serve.
//
// Publish feeds a single inbox channel. A dispatcher goroutine is the
// inbox's only consumer: it updates the /methods/{method} lookup table and
// forwards the snapshot on to the view pipeline. A plain channel cannot
// fan the same value out to two independent readers, so the dispatcher -
// not the channel - is what makes both downstream consumers see every
// published snapshot.
func NewDashboard(ctx context.Context, addr string) (*Dashboard, error) {
	inbox := make(chan Snapshot, 8)
	toView := make(chan Snapshot, 8)

	views, err := NewViewBuilder[Snapshot, []MethodRow]().
		WithContext(ctx).
		WithModel(toView, Convert).
		WithView(func(done <-chan struct{}, rows <-chan []MethodRow) ViewComponent {
			return NewMethodsTable(done, rows)
		}).
		Build()
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		addr:   addr,
		inbox:  inbox,
		view:   views[0],
		latest: make(map[string]MethodRow),
	}

	go d.dispatch(ctx, inbox, toView)

	d.router = mux.NewRouter()
	d.router.HandleFunc("/", d.serveIndex).Methods(http.MethodGet)
	d.router.HandleFunc("/ws", d.serveWebsocket).Methods(http.MethodGet)
	d.router.HandleFunc("/methods/{method}", d.serveMethod).Methods(http.MethodGet)

	return d, nil
}

// dispatch is the inbox's sole consumer: it mirrors every published
// snapshot's rows into the /methods/{method} lookup table, then forwards
// the snapshot to the view pipeline, dropping it if the view is backlogged
// rather than block either producer or the other consumer.
func (d *Dashboard) dispatch(ctx context.Context, inbox <-chan Snapshot, toView chan<- Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-inbox:
			if !ok {
				return
			}
			d.mu.Lock()
			for _, row := range Convert(snap) {
				d.latest[row.Method] = row
			}
			d.mu.Unlock()

			select {
			case toView <- snap:
			default:
				log.Printf("progress: dropped snapshot for round %d, view backlogged", snap.Round.Round)
			}
		}
	}
}

// Publish offers a snapshot to the dashboard. If nothing is ready to
// receive it, the snapshot is dropped rather than block the caller.
func (d *Dashboard) Publish(snap Snapshot) {
	select {
	case d.inbox <- snap:
	default:
		log.Printf("progress: dropped snapshot for round %d, dashboard backlogged", snap.Round.Round)
	}
}

// Serve blocks, serving the dashboard until the listener fails.
func (d *Dashboard) Serve() error {
	if err := http.ListenAndServe(d.addr, d.router); err != nil {
		return fmt.Errorf("progress: serve: %w", err)
	}
	return nil
}

func (d *Dashboard) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := newClient[[]EleUpdate](d.view.Updates(), w, r)
	if err != nil {
		log.Println("progress: upgrade:", err)
		return
	}
	if err := cli.Sync(); err != nil {
		log.Println("progress: websocket closed:", err)
	}
}

func (d *Dashboard) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := renderIndex(w, d.view, d.addr); err != nil {
		_, _ = w.Write([]byte(err.Error()))
	}
}

func (d *Dashboard) serveMethod(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["method"]

	d.mu.Lock()
	row, ok := d.latest[name]
	d.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no data for method " + name})
		return
	}
	_ = json.NewEncoder(w).Encode(row)
}

// renderIndex builds the bootstrap page: the view's own template plus the
// client-side websocket glue, following the teacher's root_view.Parse.
func renderIndex(w io.Writer, vc ViewComponent, addr string) error {
	t := template.New("index.html")
	tname, err := vc.Parse(t)
	if err != nil {
		return err
	}

	indexSpec := `
	<!DOCTYPE html>
	<html>
		<head><link rel="icon" href="data:,"></head>
		<body>
			{{ template "` + tname + `" . }}
			<script>
				const ws = new WebSocket("ws://` + addr + `/ws");
				ws.onmessage = function (event) {
					const updates = JSON.parse(event.data);
					for (const u of updates) {
						const el = document.getElementById(u.EleId);
						if (!el) continue;
						for (const op of u.Ops) {
							if (op.Key === "textContent") {
								el.textContent = op.Value;
							} else {
								el.setAttribute(op.Key, op.Value);
							}
						}
					}
				};
			</script>
		</body>
	</html>`

	if _, err = t.Parse(indexSpec); err != nil {
		return err
	}
	return t.Execute(w, nil)
}
