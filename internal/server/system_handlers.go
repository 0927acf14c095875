package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/SzymonLiszewski/investfolio/internal/database"
	"github.com/SzymonLiszewski/investfolio/internal/scheduler"
)

// SystemHandlers serves health and system monitoring endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases map[string]*database.DB
	sched     *scheduler.Scheduler
	jobs      []scheduler.Job
	startedAt time.Time
}

// NewSystemHandlers creates system monitoring handlers
func NewSystemHandlers(dataDir string, databases map[string]*database.DB, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		databases: databases,
		startedAt: time.Now(),
	}
}

// SetScheduler registers the scheduler and its jobs for manual triggering
func (h *SystemHandlers) SetScheduler(sched *scheduler.Scheduler, jobs ...scheduler.Job) {
	h.sched = sched
	h.jobs = jobs
}

// DBInfo describes one database file
type DBInfo struct {
	Name    string  `json:"name"`
	SizeMB  float64 `json:"size_mb"`
	Healthy bool    `json:"healthy"`
}

// HandleHealth is the liveness probe: it pings every database
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	for name, db := range h.databases {
		if err := db.QuickCheck(r.Context()); err != nil {
			h.log.Error().Err(err).Str("database", name).Msg("Health check failed")
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "unhealthy",
				"database": name,
			})
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSystemStatus returns process uptime and host CPU/memory usage
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.getSystemStats()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"cpu_percent":    cpuPct,
		"memory_percent": memPct,
		"checked_at":     time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleDatabaseStats returns per-database file sizes and health
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := make([]DBInfo, 0, len(h.databases))
	totalMB := 0.0

	for name, db := range h.databases {
		info := DBInfo{Name: name, Healthy: db.QuickCheck(r.Context()) == nil}
		if fi, err := os.Stat(filepath.Join(h.dataDir, name+".db")); err == nil {
			info.SizeMB = float64(fi.Size()) / 1024 / 1024
			totalMB += info.SizeMB
		}
		stats = append(stats, info)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"databases":     stats,
		"total_size_mb": totalMB,
	})
}

// HandleTriggerJob runs a registered background job immediately.
// POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	for _, job := range h.jobs {
		if job.Name() != name {
			continue
		}
		if h.sched == nil {
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scheduler not running"})
			return
		}
		if err := h.sched.RunNow(job); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "job": name})
		return
	}

	h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job: " + name})
}

// getSystemStats samples CPU over a short window to keep the endpoint fast
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
