package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/san-kum/phaseplane/internal/dynamo"
)

const (
	FieldCSV       = "field.csv"
	TrajectoryCSV  = "trajectories.csv"
	NullclineCSV   = "nullclines.csv"
	branchForward  = "forward"
	branchBackward = "backward"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes field.csv, trajectories.csv and nullclines.csv into dir,
// creating it if needed. Column names use the bundle's axis labels.
func WriteCSV(dir string, b *Bundle) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := writeFieldCSV(filepath.Join(dir, FieldCSV), b); err != nil {
		return err
	}
	if err := writeTrajectoryCSV(filepath.Join(dir, TrajectoryCSV), b); err != nil {
		return err
	}
	return writeNullclineCSV(filepath.Join(dir, NullclineCSV), b)
}

func writeRecords(path string, header []string, rows func(w *csv.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := rows(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeFieldCSV(path string, b *Bundle) error {
	ax := b.AxisLabels()
	header := []string{ax[0], ax[1], "d" + ax[0], "d" + ax[1], "unit_" + ax[0], "unit_" + ax[1], "valid"}
	return writeRecords(path, header, func(w *csv.Writer) error {
		if b.Field == nil {
			return nil
		}
		for _, p := range b.Field.Points {
			row := []string{
				formatFloat(p.Pos[0]), formatFloat(p.Pos[1]),
				formatFloat(p.Vec[0]), formatFloat(p.Vec[1]),
				formatFloat(p.Unit[0]), formatFloat(p.Unit[1]),
				strconv.FormatBool(p.Valid),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeTrajectoryCSV(path string, b *Bundle) error {
	header := append([]string{"trajectory", "branch", "t"}, b.Coords...)
	return writeRecords(path, header, func(w *csv.Writer) error {
		for i, pair := range b.Trajectories {
			id := strconv.Itoa(i)
			for _, br := range []struct {
				name string
				tr   *dynamo.Trajectory
			}{
				{branchBackward, pair.Backward},
				{branchForward, pair.Forward},
			} {
				if br.tr == nil {
					continue
				}
				for k, t := range br.tr.Times {
					row := []string{id, br.name, formatFloat(t)}
					for _, v := range br.tr.States[k] {
						row = append(row, formatFloat(v))
					}
					if err := w.Write(row); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func writeNullclineCSV(path string, b *Bundle) error {
	ax := b.AxisLabels()
	header := []string{"coord", "curve", ax[0], ax[1]}
	return writeRecords(path, header, func(w *csv.Writer) error {
		for _, set := range b.Nullclines {
			for ci, curve := range set.Curves {
				id := strconv.Itoa(ci)
				for _, p := range curve {
					if err := w.Write([]string{set.Coord, id, formatFloat(p[0]), formatFloat(p[1])}); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}
