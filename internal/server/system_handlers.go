package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/aristath/mjhmc/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves host and process monitoring endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	runsDB      *database.DB
	// cpuSample is the CPU measurement window. Short so the endpoint stays fast.
	cpuSample time.Duration
}

// NewSystemHandlers creates system handlers. runsDB may be nil.
func NewSystemHandlers(log zerolog.Logger, runsDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		startupTime: time.Now(),
		runsDB:      runsDB,
		cpuSample:   100 * time.Millisecond,
	}
}

// SystemStatusResponse is the body of GET /api/system.
type SystemStatusResponse struct {
	CPUPercent    float64         `json:"cpu_percent"`
	MemPercent    float64         `json:"mem_percent"`
	MemTotalBytes uint64          `json:"mem_total_bytes"`
	NumCPU        int             `json:"num_cpu"`
	Goroutines    int             `json:"goroutines"`
	GoVersion     string          `json:"go_version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Database      *database.Stats `json:"database,omitempty"`
	Timestamp     string          `json:"timestamp"`
}

// HandleSystemStatus handles GET /api/system
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	resp := SystemStatusResponse{
		NumCPU:        runtime.NumCPU(),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		Timestamp:     time.Now().Format(time.RFC3339),
	}
	resp.CPUPercent, resp.MemPercent, resp.MemTotalBytes = h.getSystemStats()

	if h.runsDB != nil {
		stats, err := h.runsDB.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get database statistics")
		} else {
			resp.Database = stats
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// getSystemStats returns CPU usage, RAM usage and total RAM.
func (h *SystemHandlers) getSystemStats() (float64, float64, uint64) {
	cpuPercent, err := cpu.Percent(h.cpuSample, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent, memStat.Total
}
