package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/Faultbox/wg3d/pkg/convert"
)

// Summary counts the contents of a converted model.
type Summary struct {
	Meshes     int
	Primitives int
	Vertices   int
	Triangles  int
	Skeletons  int
	Joints     int
	Animations int
	Channels   int
	Materials  int
	Textures   int
	Images     int

	Formats map[string]int // Primitives per vertex format
}

// Summarize counts the contents of model.
func Summarize(model *convert.Model) Summary {
	s := Summary{
		Meshes:     len(model.Meshes),
		Skeletons:  len(model.Skeletons),
		Animations: len(model.Animations),
		Materials:  len(model.Materials),
		Textures:   len(model.Textures),
		Images:     len(model.Images),
		Formats:    make(map[string]int),
	}
	for _, m := range model.Meshes {
		for _, p := range m.Primitives {
			s.Primitives++
			s.Vertices += len(p.Vertices.Vertices)
			s.Triangles += len(p.Indices) / 3
			s.Formats[p.Vertices.Format.String()]++
		}
	}
	for _, sk := range model.Skeletons {
		s.Joints += len(sk.Joints)
	}
	for _, a := range model.Animations {
		s.Channels += len(a.Channels)
	}
	return s
}

// Print writes the summary as an aligned table.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Meshes:     %d (%d primitives)\n", s.Meshes, s.Primitives)
	fmt.Fprintf(w, "Vertices:   %d\n", s.Vertices)
	fmt.Fprintf(w, "Triangles:  %d\n", s.Triangles)
	fmt.Fprintf(w, "Skeletons:  %d (%d joints)\n", s.Skeletons, s.Joints)
	fmt.Fprintf(w, "Animations: %d (%d channels)\n", s.Animations, s.Channels)
	fmt.Fprintf(w, "Materials:  %d\n", s.Materials)
	fmt.Fprintf(w, "Textures:   %d (%d images)\n", s.Textures, s.Images)

	if len(s.Formats) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Vertex formats:")

	formats := make([]string, 0, len(s.Formats))
	for f := range s.Formats {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	for _, f := range formats {
		fmt.Fprintf(w, "  %-28s %d\n", f, s.Formats[f])
	}
}
