package progress

import (
	"fmt"
	"html/template"

	channerics "github.com/niceyeti/channerics/channels"
)

// MethodsTable renders the per-method round outcomes as an html table,
// pushing one EleUpdate per row whenever a new snapshot arrives.
// Adapted from the teacher's cell_views views: same Parse/Updates shape,
// table rows standing in for grid cells since this domain has no 2D
// geometry to project.
type MethodsTable struct {
	id      string
	updates <-chan []EleUpdate
}

// NewMethodsTable builds a MethodsTable fed by the given view-model channel.
func NewMethodsTable(
	done <-chan struct{},
	rows <-chan []MethodRow,
) *MethodsTable {
	mt := &MethodsTable{id: "methodstable"}
	mt.updates = channerics.Convert(done, rows, mt.onUpdate)
	return mt
}

func (mt *MethodsTable) Updates() <-chan []EleUpdate {
	return mt.updates
}

func (mt *MethodsTable) onUpdate(rows []MethodRow) []EleUpdate {
	updates := make([]EleUpdate, 0, len(rows))
	for _, row := range rows {
		eleID := rowEleID(row.Method)
		text := fmt.Sprintf("%s: succeeded=%d gacked=%d", row.Method, row.NumSucceeded, row.NumGacked)
		updates = append(updates, EleUpdate{
			EleId: eleID,
			Ops: []Op{
				{Key: "textContent", Value: text},
			},
		})
	}
	return updates
}

func rowEleID(method string) string {
	return template.HTMLEscapeString("row-" + method)
}

// Parse registers the table's template under the view's id with the parent
// template, following the teacher's view-component convention of each view
// owning its own fragment.
func (mt *MethodsTable) Parse(t *template.Template) (name string, err error) {
	name = mt.id
	_, err = t.Parse(`{{ define "` + name + `" }}
		<table id="` + mt.id + `">
			<thead><tr><th>Method</th><th>Status</th></tr></thead>
			<tbody id="` + mt.id + `-body"></tbody>
		</table>
		{{ end }}`)
	return
}
