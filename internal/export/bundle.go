package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/phaseplane/internal/analysis"
	"github.com/san-kum/phaseplane/internal/dynamo"
	"github.com/san-kum/phaseplane/internal/equations"
	"github.com/san-kum/phaseplane/internal/field"
	"github.com/san-kum/phaseplane/internal/nullcline"
	"github.com/san-kum/phaseplane/internal/phase"
)

// Bundle is the self-contained record of one phase portrait.
type Bundle struct {
	ID           string                 `json:"id"`
	Created      time.Time              `json:"created"`
	Coords       []string               `json:"system_coords"`
	Exprs        []string               `json:"ode_expr_strings"`
	Params       equations.ParameterSet `json:"params"`
	Window       dynamo.Window          `json:"axes_limits"`
	Bounds       dynamo.TimeBounds      `json:"time_bounds"`
	Method       string                 `json:"method"`
	Field        *field.Grid            `json:"field"`
	Trajectories []*dynamo.Pair         `json:"trajectories"`
	Nullclines   nullcline.Result       `json:"nullclines,omitempty"`
	FixedPoints  []analysis.FixedPoint  `json:"fixed_points,omitempty"`
}

func NewBundle(s *phase.Snapshot) *Bundle {
	return &Bundle{
		ID:           uuid.NewString(),
		Created:      time.Now().UTC(),
		Coords:       s.Coords,
		Exprs:        s.Exprs,
		Params:       s.Params,
		Window:       s.Window,
		Bounds:       s.Bounds,
		Method:       s.Method,
		Field:        finiteField(s.Field),
		Trajectories: s.Trajectories,
		Nullclines:   s.Nullclines,
		FixedPoints:  s.FixedPoints,
	}
}

// finiteField copies the grid with invalid vectors zeroed; JSON has no
// encoding for NaN or infinities. Valid stays false on those points.
func finiteField(g *field.Grid) *field.Grid {
	if g == nil {
		return nil
	}
	out := *g
	out.Points = make([]field.Point, len(g.Points))
	for i, p := range g.Points {
		if !p.Valid {
			p.Vec, p.Unit = [2]float64{}, [2]float64{}
		}
		out.Points[i] = p
	}
	return &out
}

func (b *Bundle) AxisLabels() [2]string {
	if len(b.Coords) == 1 {
		return [2]string{"t", b.Coords[0]}
	}
	return [2]string{b.Coords[0], b.Coords[1]}
}

// System renders the equations as "x' = ..., y' = ...".
func (b *Bundle) System() string {
	parts := make([]string, len(b.Coords))
	for i, c := range b.Coords {
		parts[i] = fmt.Sprintf("%s' = %s", c, b.Exprs[i])
	}
	return strings.Join(parts, ", ")
}

func WriteJSON(w io.Writer, b *Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

func SaveJSON(path string, b *Bundle) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, b)
}

func LoadJSON(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &b, nil
}
