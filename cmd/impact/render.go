package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ngo-impact/impact-client/internal/models"
)

const barWidth = 30

// progressLine renders one snapshot as a single terminal line.
func progressLine(s models.UploadSession) string {
	filled := s.Progress * barWidth / 100
	bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)

	line := fmt.Sprintf("[%s] %3d%% %s", bar, s.Progress, s.Phase)
	if text := s.StatusText(); text != "" {
		line += " " + text
	}
	return line
}

// progressWriter redraws the progress line in place.
type progressWriter struct {
	w    io.Writer
	last string
}

func (p *progressWriter) update(s models.UploadSession) {
	line := progressLine(s)
	if line == p.last {
		return
	}
	pad := ""
	if n := len(p.last) - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(p.w, "\r%s%s", line, pad)
	p.last = line
}

func (p *progressWriter) finish() {
	if p.last != "" {
		fmt.Fprintln(p.w)
	}
}
