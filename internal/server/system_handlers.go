package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/aristath/investlog/internal/database"
	"github.com/aristath/investlog/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// TransactionCounter counts stored transactions
type TransactionCounter interface {
	Count(ctx context.Context) (int, error)
}

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	Status        string           `json:"status"`
	Uptime        string           `json:"uptime"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Transactions  int              `json:"transactions"`
	Providers     []string         `json:"providers"`
	CPUPercent    float64          `json:"cpu_percent"`
	RAMPercent    float64          `json:"ram_percent"`
	Databases     []DatabaseHealth `json:"databases"`
	Timestamp     string           `json:"timestamp"`
}

// DatabaseHealth is the quick-check result of one database
type DatabaseHealth struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// DatabaseStats describes the on-disk footprint of one database
type DatabaseStats struct {
	Name          string `json:"name"`
	SizeBytes     int64  `json:"size_bytes"`
	WALSizeBytes  int64  `json:"wal_size_bytes"`
	PageCount     int64  `json:"page_count"`
	FreelistCount int64  `json:"freelist_count"`
}

// SystemHandlers handles health, database and job endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	databases   []*database.DB
	counter     TransactionCounter
	providers   []string
	jobs        map[string]scheduler.Job
	systemStats func() (float64, float64)
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	databases []*database.DB,
	counter TransactionCounter,
	providers []string,
) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		startupTime: time.Now(),
		databases:   databases,
		counter:     counter,
		providers:   providers,
		jobs:        make(map[string]scheduler.Job),
	}
	h.systemStats = h.getSystemStats
	return h
}

// SetJobs registers jobs for manual triggering. Nil jobs are ignored.
func (h *SystemHandlers) SetJobs(jobs ...scheduler.Job) {
	for _, job := range jobs {
		if job != nil {
			h.jobs[job.Name()] = job
		}
	}
}

// HandleHealth returns uptime, transaction count, host load and database
// health. Any failing database turns the status to degraded (503).
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uptime := time.Since(h.startupTime)
	response := HealthResponse{
		Status:        "healthy",
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		Providers:     h.providers,
		Databases:     make([]DatabaseHealth, 0, len(h.databases)),
		Timestamp:     time.Now().Format(time.RFC3339),
	}

	if h.counter != nil {
		count, err := h.counter.Count(ctx)
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to count transactions")
			response.Status = "degraded"
		}
		response.Transactions = count
	}

	for _, db := range h.databases {
		dh := DatabaseHealth{Name: db.Name(), OK: true}
		if err := db.QuickCheck(ctx); err != nil {
			dh.OK = false
			dh.Error = err.Error()
			response.Status = "degraded"
		}
		response.Databases = append(response.Databases, dh)
	}

	response.CPUPercent, response.RAMPercent = h.systemStats()

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, response)
}

// HandleDatabaseStats returns size statistics of every database
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	stats := make([]DatabaseStats, 0, len(h.databases))
	var total int64
	for _, db := range h.databases {
		s, err := db.GetStats()
		if err != nil {
			h.log.Error().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get database stats"})
			return
		}
		stats = append(stats, DatabaseStats{
			Name:          db.Name(),
			SizeBytes:     s.SizeBytes,
			WALSizeBytes:  s.WALSizeBytes,
			PageCount:     s.PageCount,
			FreelistCount: s.FreelistCount,
		})
		total += s.SizeBytes + s.WALSizeBytes
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"databases":   stats,
		"total_bytes": total,
		"checked_at":  time.Now().Format(time.RFC3339),
	})
}

// HandleListJobs lists the jobs that can be triggered manually
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": names})
}

// HandleTriggerJob runs a job in the background
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request, name string) {
	job, ok := h.jobs[name]
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job: " + name})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job triggered")
	go func() {
		if err := job.Run(); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		}
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "triggered",
		"message": name + " started",
	})
}

// getSystemStats returns CPU and RAM usage percentages. The CPU sample is
// kept short so the health endpoint stays fast.
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
