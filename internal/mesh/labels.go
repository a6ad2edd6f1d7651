package mesh

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Label is a discrete semantic class id.
type Label uint8

// Color is an RGBA vertex color.
type Color struct {
	R, G, B, A uint8
}

// Opaque returns the color with alpha forced to 255. Label lookups are
// keyed on opaque colors so mesh alpha never affects classification.
func (c Color) Opaque() Color {
	c.A = 255
	return c
}

func (c Color) String() string {
	return fmt.Sprintf("[%d, %d, %d, %d]", c.R, c.G, c.B, c.A)
}

// LabelEntry is one row of a semantic color table.
type LabelEntry struct {
	Name  string
	Label Label
	Color Color
}

// LabelMap translates vertex colors to semantic labels.
type LabelMap struct {
	byColor map[Color]Label
	byLabel map[Label]LabelEntry
}

// NewLabelMap builds a LabelMap from entries. Later entries win on
// duplicate colors.
func NewLabelMap(entries ...LabelEntry) *LabelMap {
	m := &LabelMap{
		byColor: make(map[Color]Label, len(entries)),
		byLabel: make(map[Label]LabelEntry, len(entries)),
	}
	for _, e := range entries {
		m.Add(e)
	}
	return m
}

// Add inserts or replaces a table row.
func (m *LabelMap) Add(e LabelEntry) {
	e.Color = e.Color.Opaque()
	m.byColor[e.Color] = e.Label
	m.byLabel[e.Label] = e
}

// LabelOf returns the semantic label for a color, ignoring alpha.
func (m *LabelMap) LabelOf(c Color) (Label, bool) {
	if m == nil {
		return 0, false
	}
	label, ok := m.byColor[c.Opaque()]
	return label, ok
}

// ColorOf returns the table color for a label.
func (m *LabelMap) ColorOf(label Label) (Color, bool) {
	if m == nil {
		return Color{}, false
	}
	e, ok := m.byLabel[label]
	return e.Color, ok
}

// Entries returns the table rows sorted by label.
func (m *LabelMap) Entries() []LabelEntry {
	out := make([]LabelEntry, 0, len(m.byLabel))
	for _, e := range m.byLabel {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Len returns the number of labels in the table.
func (m *LabelMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.byLabel)
}

// LoadLabelMapCSV reads a semantic color table with the header
// name,red,green,blue,alpha,id.
func LoadLabelMapCSV(path string) (*LabelMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open label map: %w", err)
	}
	defer f.Close()

	m, err := ReadLabelMapCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read label map %s: %w", path, err)
	}
	return m, nil
}

// ReadLabelMapCSV parses a semantic color table from r.
func ReadLabelMapCSV(r io.Reader) (*LabelMap, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 6 || !strings.EqualFold(strings.TrimSpace(header[0]), "name") {
		return nil, errors.New("expected header name,red,green,blue,alpha,id")
	}

	m := NewLabelMap()
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var fields [5]uint8
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseUint(strings.TrimSpace(record[i+1]), 10, 8)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, i+2, err)
			}
			fields[i] = uint8(v)
		}

		m.Add(LabelEntry{
			Name:  strings.TrimSpace(record[0]),
			Color: Color{R: fields[0], G: fields[1], B: fields[2], A: fields[3]},
			Label: Label(fields[4]),
		})
	}

	return m, nil
}
