package endpoints

import (
	"embed"
	"net/http"

	"metrics-monitor/internal/util"
)

//go:embed web/*.html
var pageFiles embed.FS

type Pages struct {
	logger *util.MetricsLogger
}

func (p *Pages) Init(webSlogger *util.MetricsLogger) {
	p.logger = webSlogger
}

func (p *Pages) serve(w http.ResponseWriter, name string) {
	body, err := pageFiles.ReadFile("web/" + name)
	if err != nil {
		p.logger.LogEvent(util.LOG_LEVEL_ERROR, "missing page", name+":", err)
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}

func (p *Pages) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	p.serve(w, "index.html")
}

func (p *Pages) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	p.serve(w, "history.html")
}
