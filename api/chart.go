package api

import (
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/dvl.report/internal/httputil"
)

// chartHandler renders a quick HTML line chart of recent bottom-track
// velocities. This is a debugging view, not the primary UI.
func (s *Server) chartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	records, err := s.db.Records(limitParam(r, 500))
	if err != nil {
		httputil.InternalServerError(w, "failed to retrieve records: "+err.Error())
		return
	}

	// Records come back newest first; plot them chronologically.
	timestamps := make([]string, len(records))
	velX := make([]opts.LineData, len(records))
	velY := make([]opts.LineData, len(records))
	velZ := make([]opts.LineData, len(records))
	for i, rec := range records {
		j := len(records) - 1 - i
		timestamps[j] = rec.Timestamp.Format(time.TimeOnly)
		velX[j] = opts.LineData{Value: rec.VelX}
		velY[j] = opts.LineData{Value: rec.VelY}
		velZ[j] = opts.LineData{Value: rec.VelZ}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Bottom-track velocity",
			Subtitle: "device frame, most recent records",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	line.SetXAxis(timestamps).
		AddSeries("vel_x", velX).
		AddSeries("vel_y", velY).
		AddSeries("vel_z", velZ)

	if err := line.Render(w); err != nil {
		httputil.InternalServerError(w, "failed to render chart: "+err.Error())
	}
}
