package network

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"outbreaksim/domain/core"
)

// Load reads an edge list: one "u<sep>v" pair per line. Blank lines and
// lines starting with '#' are skipped, as are self-loops. An empty separator
// splits on whitespace.
func Load(r io.Reader, name, separator string) (*Graph, error) {
	g := NewGraph(name)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var tokens []string
		if separator == "" {
			tokens = strings.Fields(line)
		} else {
			tokens = strings.Split(line, separator)
		}
		if len(tokens) < 2 {
			return nil, core.NewValidationError("edge list", fmt.Sprintf("line %d: want two vertices, got %q", lineNo, line))
		}

		u, err := strconv.Atoi(strings.TrimSpace(tokens[0]))
		if err != nil {
			return nil, core.NewValidationError("edge list", fmt.Sprintf("line %d: %v", lineNo, err))
		}
		v, err := strconv.Atoi(strings.TrimSpace(tokens[1]))
		if err != nil {
			return nil, core.NewValidationError("edge list", fmt.Sprintf("line %d: %v", lineNo, err))
		}

		if u == v {
			_ = g.AddVertex(u)
			continue
		}
		if err := g.AddEdge(u, v); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read edge list: %w", err)
	}
	return g, nil
}

// LoadFile reads an edge list from path. An empty name defaults to the file
// name without extension.
func LoadFile(path, name, separator string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open network file: %w", err)
	}
	defer f.Close()

	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return Load(f, name, separator)
}

// Write emits g as an edge list ("u v" per edge), or in forward-star form
// ("v: n1 n2 ...", one line per vertex) when forwardStar is set.
func Write(w io.Writer, g *Graph, forwardStar bool) error {
	bw := bufio.NewWriter(w)
	if forwardStar {
		for _, v := range g.vertices {
			parts := make([]string, 0, len(g.adj[v]))
			for _, n := range g.adj[v] {
				parts = append(parts, strconv.Itoa(n))
			}
			if _, err := fmt.Fprintf(bw, "%d: %s\n", v, strings.Join(parts, " ")); err != nil {
				return err
			}
		}
	} else {
		for _, e := range g.Edges() {
			if _, err := fmt.Fprintf(bw, "%d %d\n", e[0], e[1]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteFile writes g to path, creating parent directories.
func WriteFile(path string, g *Graph, forwardStar bool) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create network directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create network file: %w", err)
	}
	if err := Write(f, g, forwardStar); err != nil {
		f.Close()
		return fmt.Errorf("failed to write network file: %w", err)
	}
	return f.Close()
}
