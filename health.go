package audioremoted

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/process"
)

var processStart = time.Now()

type healthResponse struct {
	Status          string  `json:"status"`
	Version         string  `json:"version"`
	PID             int     `json:"pid"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	CPUPercent      float64 `json:"cpu_percent"`
	MemoryRSSBytes  uint64  `json:"memory_rss_bytes"`
	BridgeConnected bool    `json:"bridge_connected"`
}

func (s *WebServer) handleHealthz(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       Version,
		PID:           os.Getpid(),
		UptimeSeconds: time.Since(processStart).Seconds(),
	}
	if s.dispatcher != nil {
		resp.BridgeConnected = s.dispatcher.Connected()
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if cpu, err := p.CPUPercent(); err == nil {
			resp.CPUPercent = cpu
		}
		if mem, err := p.MemoryInfo(); err == nil && mem != nil {
			resp.MemoryRSSBytes = mem.RSS
		}
	}

	c.JSON(http.StatusOK, resp)
}
