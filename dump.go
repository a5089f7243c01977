package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/milk9111/mapengine/person"
	"github.com/milk9111/mapengine/rmp"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file.rmp>",
	Short: "Print the contents of a map file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := rmp.Load(args[0])
		if err != nil {
			return err
		}
		dumpMap(cmd.OutOrStdout(), m)
		return nil
	},
}

var stringNames = [rmp.NumMapStrings]string{
	rmp.StringTileset:    "tileset",
	rmp.StringMusic:      "music",
	rmp.StringScript:     "script",
	rmp.StringEnter:      "enter",
	rmp.StringLeave:      "leave",
	rmp.StringLeaveNorth: "leave north",
	rmp.StringLeaveEast:  "leave east",
	rmp.StringLeaveSouth: "leave south",
	rmp.StringLeaveWest:  "leave west",
}

func dumpMap(w io.Writer, m *rmp.Map) {
	h := m.Header
	fmt.Fprintln(w, headingStyle.Render("Header"))
	fmt.Fprintf(w, "  version %d, %d layers, %d entities, %d zones, toric %v\n",
		h.Version, len(m.Layers), len(m.Entities), len(m.Zones), m.Toric())
	fmt.Fprintf(w, "  start %d,%d on layer %d facing %s\n",
		h.StartX, h.StartY, h.StartLayer, person.Direction(h.StartDirection))

	fmt.Fprintln(w, headingStyle.Render("Strings"))
	for i, s := range m.Strings {
		name := "#" + strconv.Itoa(i)
		if i < len(stringNames) {
			name = stringNames[i]
		}
		fmt.Fprintf(w, "  %-12s %s\n", name, quoted(s))
	}

	fmt.Fprintln(w, headingStyle.Render("Layers"))
	layers := table.New().Border(lipgloss.NormalBorder()).Headers("#", "name", "size", "hidden", "segments")
	for i, l := range m.Layers {
		layers.Row(strconv.Itoa(i), l.Name, fmt.Sprintf("%dx%d", l.Width, l.Height),
			strconv.FormatBool(l.Hidden()), strconv.Itoa(len(l.Segments)))
	}
	fmt.Fprintln(w, layers.String())

	if len(m.Entities) > 0 {
		fmt.Fprintln(w, headingStyle.Render("Entities"))
		ents := table.New().Border(lipgloss.NormalBorder()).Headers("type", "name", "position", "layer", "scripts")
		for _, e := range m.Entities {
			kind, name := "trigger", ""
			if e.Type == rmp.EntityPerson {
				kind, name = "person", e.Name
				if e.Spriteset != "" {
					name += " (" + e.Spriteset + ")"
				}
			}
			ents.Row(kind, name, fmt.Sprintf("%d,%d", e.X, e.Y), strconv.Itoa(e.Layer), scriptSummary(e.Scripts))
		}
		fmt.Fprintln(w, ents.String())
	}

	if len(m.Zones) > 0 {
		fmt.Fprintln(w, headingStyle.Render("Zones"))
		zones := table.New().Border(lipgloss.NormalBorder()).Headers("area", "layer", "reach", "script")
		for _, z := range m.Zones {
			zones.Row(fmt.Sprintf("%d,%d-%d,%d", z.X1, z.Y1, z.X2, z.Y2),
				strconv.Itoa(z.Layer), strconv.Itoa(z.Reach), oneLine(z.Script))
		}
		fmt.Fprintln(w, zones.String())
	}
}

func quoted(s string) string {
	if s == "" {
		return dimStyle.Render("(empty)")
	}
	return oneLine(s)
}

// scriptSummary counts the non-empty scripts of an entity.
func scriptSummary(scripts []string) string {
	n := 0
	for _, s := range scripts {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return fmt.Sprintf("%d/%d", n, len(scripts))
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 48 {
		s = s[:45] + "..."
	}
	return s
}
