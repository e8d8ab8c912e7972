// Package report renders a finished search session for human
// consumption. The core never depends on a concrete renderer.
package report

import (
	"io"

	"github.com/raphaelgruber/jobsurfer/internal/metrics"
	"github.com/raphaelgruber/jobsurfer/internal/models"
)

// Generator renders a session summary to a writer.
type Generator interface {
	Generate(w io.Writer, session *models.SearchSession, usage metrics.Snapshot) error
}
