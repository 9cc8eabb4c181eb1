package progress

import (
	"fmt"

	"jitrlcse/internal/greedyeval"
	"jitrlcse/internal/trainer"
)

// Snapshot is the data model published to the dashboard after every round
// (§6.4). Convert reads only Round; the trainer's progress hook in
// cmd/jitrlcse sets only Round, leaving Greedy and Methods unset.
type Snapshot struct {
	Round   trainer.RoundSummary
	Greedy  *greedyeval.Result
	Methods []MethodRow
}

// MethodRow is the view model for one method's row in the round table.
type MethodRow struct {
	Method       string
	NumSucceeded int
	NumGacked    int
}

// Convert transforms a Snapshot into the rows the dashboard table renders.
// This is the viewModelFn plugged into ViewBuilder.WithModel, following the
// teacher's cell_views.Convert.
func Convert(snap Snapshot) []MethodRow {
	rows := make([]MethodRow, 0, len(snap.Round.MethodStats))
	for _, s := range snap.Round.MethodStats {
		rows = append(rows, MethodRow{
			Method:       fmt.Sprintf("%s", s.Method),
			NumSucceeded: s.NumSucceeded,
			NumGacked:    s.NumGacked,
		})
	}
	return rows
}
