package movement

import (
	"encoding/json"
	"fmt"

	"github.com/wricardo/rescue-grid/game/grid"
)

// Outcome is the result of checking one move
type Outcome int

const (
	Accepted Outcome = iota
	RejectedBounds
	RejectedOccupied
	RejectedForbiddenTerrain
	RejectedImpassable
)

var outcomeNames = map[Outcome]string{
	Accepted:                 "accepted",
	RejectedBounds:           "rejected_bounds",
	RejectedOccupied:         "rejected_occupied",
	RejectedForbiddenTerrain: "rejected_forbidden_terrain",
	RejectedImpassable:       "rejected_impassable",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// MarshalJSON encodes the outcome by name
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON decodes an outcome name
func (o *Outcome) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for k, v := range outcomeNames {
		if v == s {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", s)
}

// RoadSource records which stage of the road resolution chain answered
type RoadSource string

const (
	RoadSourceNone       RoadSource = ""
	RoadSourceClassifier RoadSource = "classifier"
	RoadSourceLayer      RoadSource = "layer"
	RoadSourceCellType   RoadSource = "cell_type"
)

// Decision describes a checked move
type Decision struct {
	Outcome    Outcome       `json:"outcome"`
	Actor      Kind          `json:"actor"`
	From       grid.Position `json:"from"`
	To         grid.Position `json:"to"`
	RoadSource RoadSource    `json:"road_source,omitempty"`
}

// Accepted reports whether the move may be committed
func (d Decision) Accepted() bool { return d.Outcome == Accepted }

func (d Decision) String() string {
	return fmt.Sprintf("%s %s->%s: %s", d.Actor, d.From, d.To, d.Outcome)
}
